// Package membership implements the lifecycle of a (group, user)
// relationship:
//
//	none ──Invite──────► invited    ──Approve (by the user)──► active
//	none ──RequestJoin─► requesting ──Approve (by an admin)──► active
//	invited | requesting | active ──Remove──► none
//
// Every transition into or out of active changes the Member document and the
// group's memberIds in one storage batch.
package membership

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/secretsanta/internal/groups"
	"github.com/mmynk/secretsanta/internal/models"
	"github.com/mmynk/secretsanta/internal/storage"
)

// Policy holds the product decisions the state machine leaves open.
type Policy struct {
	// AllowClosedInvites lets admins invite into a closed group. Join
	// requests are always refused on closed groups.
	AllowClosedInvites bool
}

// Observer is told about every committed transition.
// Transition names: invite, request, approve, remove.
type Observer interface {
	Transition(name string)
}

// Service runs membership operations.
type Service struct {
	store    storage.Store
	groups   *groups.Service
	policy   Policy
	observer Observer
	now      func() time.Time
}

// NewService creates a membership Service.
func NewService(store storage.Store, groupSvc *groups.Service, policy Policy) *Service {
	return &Service{
		store:  store,
		groups: groupSvc,
		policy: policy,
		now:    time.Now,
	}
}

// WithObserver registers o for transition notifications.
func (s *Service) WithObserver(o Observer) *Service {
	s.observer = o
	return s
}

// Invite creates an invited membership for userID. actorID must be an
// active admin of the group.
func (s *Service) Invite(ctx context.Context, actorID, groupID, userID string) (*models.Member, error) {
	if !storage.ValidID(userID) {
		return nil, fmt.Errorf("user id %q: %w", userID, models.ErrInvalidArgument)
	}
	group, err := s.groups.GetActive(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if err := s.groups.RequireAdmin(ctx, groupID, actorID); err != nil {
		return nil, err
	}
	if !group.IsOpen && !s.policy.AllowClosedInvites {
		return nil, models.ErrGroupClosed
	}

	member, err := s.create(ctx, groupID, userID, models.StatusInvited)
	if err != nil {
		return nil, err
	}
	slog.Info("User invited", "group_id", groupID, "user_id", userID, "actor_id", actorID)
	s.notify("invite")
	return member, nil
}

// RequestJoin creates a requesting membership for the calling user.
func (s *Service) RequestJoin(ctx context.Context, userID, groupID string) (*models.Member, error) {
	if !storage.ValidID(userID) {
		return nil, fmt.Errorf("user id %q: %w", userID, models.ErrInvalidArgument)
	}
	group, err := s.groups.GetActive(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !group.IsOpen {
		return nil, models.ErrGroupClosed
	}

	member, err := s.create(ctx, groupID, userID, models.StatusRequesting)
	if err != nil {
		return nil, err
	}
	slog.Info("Join requested", "group_id", groupID, "user_id", userID)
	s.notify("request")
	return member, nil
}

func (s *Service) create(ctx context.Context, groupID, userID string, status models.MemberStatus) (*models.Member, error) {
	member := &models.Member{
		UserID:   userID,
		Role:     models.RoleMember,
		Status:   status,
		JoinedAt: s.now().Unix(),
	}

	batch := storage.NewBatch().
		Require(storage.GroupPath(groupID), "status", models.GroupActive).
		Create(storage.MemberPath(groupID, userID), member)
	err := s.store.Commit(ctx, batch)
	if errors.Is(err, storage.ErrAlreadyExists) {
		return nil, fmt.Errorf("user %s in group %s: %w", userID, groupID, models.ErrAlreadyMember)
	}
	if errors.Is(err, storage.ErrConflict) {
		return nil, fmt.Errorf("group %s was deleted: %w", groupID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create membership: %w", err)
	}
	return member, nil
}

// Approve makes a pending membership active. A join request needs an admin;
// an invitation is accepted by the invited user.
func (s *Service) Approve(ctx context.Context, actorID, groupID, userID string) (*models.Member, error) {
	if _, err := s.groups.GetActive(ctx, groupID); err != nil {
		return nil, err
	}
	member, err := s.groups.Member(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}

	switch member.Status {
	case models.StatusInvited:
		if actorID != userID {
			return nil, fmt.Errorf("only the invited user can accept: %w", models.ErrForbidden)
		}
	case models.StatusRequesting:
		if err := s.groups.RequireAdmin(ctx, groupID, actorID); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("member %s is %s: %w", userID, member.Status, models.ErrInvalidTransition)
	}

	memberPath := storage.MemberPath(groupID, userID)
	groupPath := storage.GroupPath(groupID)
	batch := storage.NewBatch().
		Require(memberPath, "status", member.Status).
		Update(memberPath, storage.SetField("status", models.StatusActive)).
		Update(groupPath,
			storage.ArrayUnion("memberIds", userID),
			storage.SetField("updatedAt", s.now().Unix()),
		)
	if err := s.store.Commit(ctx, batch); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, fmt.Errorf("member %s changed concurrently: %w", userID, models.ErrInvalidTransition)
		}
		return nil, fmt.Errorf("failed to approve member: %w", err)
	}

	member.Status = models.StatusActive
	slog.Info("Member approved", "group_id", groupID, "user_id", userID, "actor_id", actorID)
	s.notify("approve")
	return member, nil
}

// Remove ends the relationship. It covers declining an invitation, leaving
// (actorID == userID) and an admin rejecting or removing someone.
func (s *Service) Remove(ctx context.Context, actorID, groupID, userID string) error {
	if _, err := s.groups.GetActive(ctx, groupID); err != nil {
		return err
	}
	if _, err := s.groups.Member(ctx, groupID, userID); err != nil {
		return err
	}
	if actorID != userID {
		if err := s.groups.RequireAdmin(ctx, groupID, actorID); err != nil {
			return err
		}
	}

	batch := storage.NewBatch().
		Delete(storage.MemberPath(groupID, userID)).
		Update(storage.GroupPath(groupID),
			storage.ArrayRemove("memberIds", userID),
			storage.SetField("updatedAt", s.now().Unix()),
		)
	if err := s.store.Commit(ctx, batch); err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}

	slog.Info("Member removed", "group_id", groupID, "user_id", userID, "actor_id", actorID)
	s.notify("remove")
	return nil
}

// AddWishlistItem appends an item to the member's own wishlist.
func (s *Service) AddWishlistItem(ctx context.Context, actorID, groupID, userID, name, url string) (*models.WishlistItem, error) {
	if actorID != userID {
		return nil, fmt.Errorf("wishlists are edited by their owner: %w", models.ErrForbidden)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("item name required: %w", models.ErrInvalidArgument)
	}

	item := &models.WishlistItem{
		ID:        uuid.New().String(),
		Name:      name,
		URL:       strings.TrimSpace(url),
		CreatedAt: s.now().Unix(),
	}
	batch := storage.NewBatch().Update(storage.MemberPath(groupID, userID),
		storage.ArrayUnion("wishlist", item),
	)
	if err := s.store.Commit(ctx, batch); err != nil {
		return nil, fmt.Errorf("failed to add wishlist item: %w", err)
	}
	return item, nil
}

// RemoveWishlistItem drops the item with itemID. Removing an unknown item
// is a no-op.
func (s *Service) RemoveWishlistItem(ctx context.Context, actorID, groupID, userID, itemID string) error {
	if actorID != userID {
		return fmt.Errorf("wishlists are edited by their owner: %w", models.ErrForbidden)
	}

	batch := storage.NewBatch().Update(storage.MemberPath(groupID, userID),
		storage.RemoveWhere("wishlist", "id", itemID),
	)
	if err := s.store.Commit(ctx, batch); err != nil {
		return fmt.Errorf("failed to remove wishlist item: %w", err)
	}
	return nil
}

// GetGroupMembers returns every Member document of the group, whatever its
// status.
func (s *Service) GetGroupMembers(ctx context.Context, groupID string) ([]models.Member, error) {
	snaps, err := s.store.Query(ctx, storage.Query{
		Parent:     storage.GroupPath(groupID),
		Collection: storage.Members,
		OrderBy:    "joinedAt",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}

	members := make([]models.Member, 0, len(snaps))
	for _, snap := range snaps {
		var m models.Member
		if err := snap.Decode(&m); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, nil
}

// PendingInvite pairs an invitation with the group it is for.
type PendingInvite struct {
	Group  models.Group
	Member models.Member
}

// GetPendingInvitesForUser finds the user's invitations across all groups.
// Invitations whose group is missing or deleted are dropped.
func (s *Service) GetPendingInvitesForUser(ctx context.Context, userID string) ([]PendingInvite, error) {
	snaps, err := s.store.Query(ctx, storage.Query{
		Collection: storage.Members,
		Filters: []storage.Filter{
			storage.Where("userId", storage.OpEqual, userID),
			storage.Where("status", storage.OpEqual, string(models.StatusInvited)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find invitations: %w", err)
	}

	invites := make([]PendingInvite, 0, len(snaps))
	for _, snap := range snaps {
		var m models.Member
		if err := snap.Decode(&m); err != nil {
			return nil, err
		}

		owner := snap.Path.Owner()
		if owner.Collection() != storage.Groups {
			continue
		}
		group, err := s.groups.GetActive(ctx, owner.ID())
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		invites = append(invites, PendingInvite{Group: *group, Member: m})
	}
	return invites, nil
}

func (s *Service) notify(name string) {
	if s.observer != nil {
		s.observer.Transition(name)
	}
}
