package models

// Profile is the user profile stored at users/{userId}. Identity itself is
// owned by the external identity provider; the profile only keeps what the
// exchange needs for display and search.
type Profile struct {
	// ID is the stable user ID issued by the identity provider.
	ID string `json:"id"`

	// Email is the user's email address as reported by the provider.
	Email string `json:"email,omitempty"`

	// DisplayName is the name shown to other members.
	DisplayName string `json:"displayName"`

	// PhotoURL is an optional avatar.
	PhotoURL string `json:"photoUrl,omitempty"`

	// SearchName is DisplayName lower-cased with accents stripped, used for
	// prefix search.
	SearchName string `json:"searchName"`

	// CreatedAt is the Unix timestamp of the first sync.
	CreatedAt int64 `json:"createdAt"`

	// LastLogin is the Unix timestamp of the latest sync.
	LastLogin int64 `json:"lastLogin"`
}
