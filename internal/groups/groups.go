// Package groups owns the Group aggregate: creation, the openness gate and
// soft deletion. Deleted groups are reported as storage.ErrNotFound by every
// lookup other than Get.
package groups

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/secretsanta/internal/models"
	"github.com/mmynk/secretsanta/internal/storage"
)

const searchLimit = 10

// Service manages groups on top of a document store.
type Service struct {
	store storage.Store
	now   func() time.Time
}

// NewService creates a new group Service with the given storage backend.
func NewService(store storage.Store) *Service {
	return &Service{store: store, now: time.Now}
}

// Create establishes a group and its creator's admin membership. Both
// documents are written in one batch, so the creator never sees the group
// without an active member.
func (s *Service) Create(ctx context.Context, creatorID, name, description string) (*models.Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("group name required: %w", models.ErrInvalidArgument)
	}
	if !storage.ValidID(creatorID) {
		return nil, fmt.Errorf("creator %q: %w", creatorID, models.ErrInvalidArgument)
	}

	now := s.now().Unix()
	group := &models.Group{
		ID:          uuid.New().String(),
		Name:        name,
		Description: strings.TrimSpace(description),
		CreatorID:   creatorID,
		IsOpen:      true,
		MemberIDs:   []string{creatorID},
		Status:      models.GroupActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	creator := models.Member{
		UserID:   creatorID,
		Role:     models.RoleAdmin,
		Status:   models.StatusActive,
		JoinedAt: now,
	}

	batch := storage.NewBatch().
		Create(storage.GroupPath(group.ID), group).
		Create(storage.MemberPath(group.ID, creatorID), creator)
	if err := s.store.Commit(ctx, batch); err != nil {
		return nil, fmt.Errorf("failed to create group: %w", err)
	}

	slog.Info("Group created", "group_id", group.ID, "creator_id", creatorID)
	return group, nil
}

// Get returns the group, including soft-deleted ones.
func (s *Service) Get(ctx context.Context, groupID string) (*models.Group, error) {
	if !storage.ValidID(groupID) {
		return nil, fmt.Errorf("group id %q: %w", groupID, models.ErrInvalidArgument)
	}
	var group models.Group
	if err := s.store.Get(ctx, storage.GroupPath(groupID), &group); err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	group.ID = groupID
	return &group, nil
}

// GetActive returns the group unless it is missing or soft-deleted.
func (s *Service) GetActive(ctx context.Context, groupID string) (*models.Group, error) {
	group, err := s.Get(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group.Deleted() {
		return nil, fmt.Errorf("group %s was deleted: %w", groupID, storage.ErrNotFound)
	}
	return group, nil
}

// Member returns the membership document of userID in groupID.
func (s *Service) Member(ctx context.Context, groupID, userID string) (*models.Member, error) {
	if !storage.ValidID(groupID) || !storage.ValidID(userID) {
		return nil, fmt.Errorf("member %q of %q: %w", userID, groupID, models.ErrInvalidArgument)
	}
	var member models.Member
	if err := s.store.Get(ctx, storage.MemberPath(groupID, userID), &member); err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return &member, nil
}

// RequireAdmin fails with models.ErrForbidden unless userID is an active
// admin of groupID.
func (s *Service) RequireAdmin(ctx context.Context, groupID, userID string) error {
	member, err := s.Member(ctx, groupID, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("user %s is not a member of %s: %w", userID, groupID, models.ErrForbidden)
	}
	if err != nil {
		return err
	}
	if !member.IsAdmin() {
		return fmt.Errorf("user %s is not an admin of %s: %w", userID, groupID, models.ErrForbidden)
	}
	return nil
}

// ListForUser returns the active groups the user is an active member of.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]models.Group, error) {
	return s.query(ctx, storage.Query{
		Collection: storage.Groups,
		Filters: []storage.Filter{
			storage.Where("memberIds", storage.OpArrayContains, userID),
			storage.Where("status", storage.OpEqual, string(models.GroupActive)),
		},
		OrderBy: "createdAt",
	})
}

// Search returns up to ten open, active groups whose name starts with term.
func (s *Service) Search(ctx context.Context, term string) ([]models.Group, error) {
	term = strings.TrimSpace(term)
	return s.query(ctx, storage.Query{
		Collection: storage.Groups,
		Filters: []storage.Filter{
			storage.Where("isOpen", storage.OpEqual, true),
			storage.Where("status", storage.OpEqual, string(models.GroupActive)),
			storage.Where("name", storage.OpGreaterEqual, term),
			storage.Where("name", storage.OpLessEqual, storage.PrefixEnd(term)),
		},
		OrderBy: "name",
		Limit:   searchLimit,
	})
}

// SetOpen toggles whether the group accepts invitations and join requests.
func (s *Service) SetOpen(ctx context.Context, actorID, groupID string, open bool) (*models.Group, error) {
	group, err := s.GetActive(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if err := s.RequireAdmin(ctx, groupID, actorID); err != nil {
		return nil, err
	}

	now := s.now().Unix()
	batch := storage.NewBatch().
		Require(storage.GroupPath(groupID), "status", models.GroupActive).
		Update(storage.GroupPath(groupID),
			storage.SetField("isOpen", open),
			storage.SetField("updatedAt", now),
		)
	if err := s.store.Commit(ctx, batch); err != nil {
		return nil, fmt.Errorf("failed to update group: %w", err)
	}

	group.IsOpen = open
	group.UpdatedAt = now
	slog.Info("Group openness changed", "group_id", groupID, "is_open", open, "actor_id", actorID)
	return group, nil
}

// SoftDelete marks the group deleted. The documents are kept.
func (s *Service) SoftDelete(ctx context.Context, actorID, groupID string) error {
	if _, err := s.GetActive(ctx, groupID); err != nil {
		return err
	}
	if err := s.RequireAdmin(ctx, groupID, actorID); err != nil {
		return err
	}

	now := s.now().Unix()
	batch := storage.NewBatch().Update(storage.GroupPath(groupID),
		storage.SetField("status", models.GroupDeleted),
		storage.SetField("deletedAt", now),
		storage.SetField("updatedAt", now),
	)
	if err := s.store.Commit(ctx, batch); err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}

	slog.Info("Group soft-deleted", "group_id", groupID, "actor_id", actorID)
	return nil
}

func (s *Service) query(ctx context.Context, q storage.Query) ([]models.Group, error) {
	snaps, err := s.store.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}

	groups := make([]models.Group, 0, len(snaps))
	for _, snap := range snaps {
		var g models.Group
		if err := snap.Decode(&g); err != nil {
			return nil, err
		}
		g.ID = snap.Path.ID()
		// Filters already exclude deleted groups; keep the invariant local too.
		if g.Deleted() {
			continue
		}
		groups = append(groups, g)
	}
	return groups, nil
}
