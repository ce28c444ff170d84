// Package profiles keeps the users/{id} documents: display names for
// assignments and member lists, and the normalised name used by user search.
package profiles

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/mmynk/secretsanta/internal/auth"
	"github.com/mmynk/secretsanta/internal/models"
	"github.com/mmynk/secretsanta/internal/storage"
)

const searchLimit = 5

// Service reads and writes profiles.
type Service struct {
	store storage.Store
	now   func() time.Time
}

// NewService creates a profile Service.
func NewService(store storage.Store) *Service {
	return &Service{store: store, now: time.Now}
}

// Sync records the identity's profile, creating it on first sight and
// refreshing name, email and last login afterwards.
func (s *Service) Sync(ctx context.Context, id auth.Identity) (*models.Profile, error) {
	if id.UserID == "" {
		return nil, fmt.Errorf("user id required: %w", models.ErrInvalidArgument)
	}

	now := s.now().Unix()
	profile, err := s.Get(ctx, id.UserID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		profile = &models.Profile{ID: id.UserID, CreatedAt: now}
	case err != nil:
		return nil, err
	}

	profile.Email = id.Email
	profile.DisplayName = strings.TrimSpace(id.Name)
	profile.SearchName = Normalize(id.Name)
	profile.LastLogin = now
	if id.PhotoURL != "" {
		profile.PhotoURL = id.PhotoURL
	}

	if err := s.store.Commit(ctx, storage.NewBatch().Set(storage.UserPath(id.UserID), profile)); err != nil {
		return nil, fmt.Errorf("failed to save profile: %w", err)
	}
	return profile, nil
}

// Get returns the profile of userID.
func (s *Service) Get(ctx context.Context, userID string) (*models.Profile, error) {
	var p models.Profile
	if err := s.store.Get(ctx, storage.UserPath(userID), &p); err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &p, nil
}

// GetMany returns the profiles of ids keyed by user ID.
// Users without a profile are omitted from the result.
func (s *Service) GetMany(ctx context.Context, ids []string) (map[string]*models.Profile, error) {
	out := make(map[string]*models.Profile, len(ids))
	for _, id := range ids {
		if _, done := out[id]; done {
			continue
		}
		p, err := s.Get(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[id] = p
	}
	return out, nil
}

// Search returns up to five profiles whose normalised name starts with term.
func (s *Service) Search(ctx context.Context, term string) ([]models.Profile, error) {
	prefix := Normalize(term)
	if prefix == "" {
		return []models.Profile{}, nil
	}

	snaps, err := s.store.Query(ctx, storage.Query{
		Collection: storage.Users,
		Filters: []storage.Filter{
			storage.Where("searchName", storage.OpGreaterEqual, prefix),
			storage.Where("searchName", storage.OpLessEqual, storage.PrefixEnd(prefix)),
		},
		OrderBy: "searchName",
		Limit:   searchLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search profiles: %w", err)
	}

	profiles := make([]models.Profile, 0, len(snaps))
	for _, snap := range snaps {
		var p models.Profile
		if err := snap.Decode(&p); err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

// Normalize lower-cases s, strips diacritics and collapses whitespace:
// "  José  Álvarez" becomes "jose alvarez".
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.Join(strings.Fields(strings.ToLower(out)), " ")
}
