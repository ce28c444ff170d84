package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestJWTManager(t *testing.T) {
	m := NewJWTManager("test-secret-0123456789", time.Hour)
	id := Identity{UserID: "u1", Email: "ann@example.com", Name: "Ann", PhotoURL: "https://example.com/a.png"}

	token, err := m.Generate(id)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	t.Run("Validate", func(t *testing.T) {
		claims, err := m.Validate(token)
		if err != nil {
			t.Fatalf("Validate failed: %v", err)
		}
		if claims.UserID != "u1" || claims.Subject != "u1" || claims.Email != id.Email {
			t.Errorf("unexpected claims: %+v", claims)
		}
	})

	t.Run("Resolve", func(t *testing.T) {
		got, err := m.Resolve(context.Background(), token)
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if got != id {
			t.Errorf("got %+v, want %+v", got, id)
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewJWTManager("another-secret-9876543210", time.Hour)
		if _, err := other.Validate(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("expired", func(t *testing.T) {
		expired := NewJWTManager("test-secret-0123456789", -time.Minute)
		old, err := expired.Generate(id)
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		if _, err := m.Validate(old); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("missing user", func(t *testing.T) {
		anon, err := m.Generate(Identity{Email: "nobody@example.com"})
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		if _, err := m.Validate(anon); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("garbage", func(t *testing.T) {
		if _, err := m.Validate("not-a-token"); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})
}
