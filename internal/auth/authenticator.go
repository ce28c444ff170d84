package auth

import "context"

// Identity is what the identity provider vouches for: a stable user ID and
// the user's display details.
type Identity struct {
	UserID   string
	Email    string
	Name     string
	PhotoURL string
}

// IdentityProvider resolves a bearer credential into an Identity.
// This abstraction allows swapping between token formats or external
// providers without changing the interceptors or services.
type IdentityProvider interface {
	// Resolve verifies the credential and returns the identity it carries.
	// Returns an error wrapping ErrInvalidToken if verification fails.
	Resolve(ctx context.Context, credential string) (Identity, error)
}
