package service

import (
	"context"
	"errors"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/secretsanta/internal/groups"
	"github.com/mmynk/secretsanta/internal/membership"
	"github.com/mmynk/secretsanta/internal/middleware"
	"github.com/mmynk/secretsanta/internal/models"
	"github.com/mmynk/secretsanta/internal/profiles"
	"github.com/mmynk/secretsanta/internal/storage"
)

// MembershipService serves santa.v1.MembershipService.
type MembershipService struct {
	groups     *groups.Service
	membership *membership.Service
	profiles   *profiles.Service
}

// NewMembershipService creates a MembershipService.
func NewMembershipService(groupSvc *groups.Service, memberSvc *membership.Service, profileSvc *profiles.Service) *MembershipService {
	return &MembershipService{groups: groupSvc, membership: memberSvc, profiles: profileSvc}
}

// Invite invites a user into the group. Admins only.
func (s *MembershipService) Invite(ctx context.Context, req *connect.Request[MemberRequest]) (*connect.Response[MemberResponse], error) {
	member, err := s.membership.Invite(ctx, middleware.GetUserID(ctx), req.Msg.GroupID, req.Msg.UserID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&MemberResponse{Member: member}), nil
}

// RequestJoin asks to join an open group as the caller.
func (s *MembershipService) RequestJoin(ctx context.Context, req *connect.Request[RequestJoinRequest]) (*connect.Response[MemberResponse], error) {
	member, err := s.membership.RequestJoin(ctx, middleware.GetUserID(ctx), req.Msg.GroupID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&MemberResponse{Member: member}), nil
}

// Approve accepts an invitation (as the invited user) or a join request
// (as an admin).
func (s *MembershipService) Approve(ctx context.Context, req *connect.Request[MemberRequest]) (*connect.Response[MemberResponse], error) {
	member, err := s.membership.Approve(ctx, middleware.GetUserID(ctx), req.Msg.GroupID, req.Msg.UserID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&MemberResponse{Member: member}), nil
}

// Remove declines, rejects, leaves or removes.
func (s *MembershipService) Remove(ctx context.Context, req *connect.Request[MemberRequest]) (*connect.Response[Empty], error) {
	if err := s.membership.Remove(ctx, middleware.GetUserID(ctx), req.Msg.GroupID, req.Msg.UserID); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&Empty{}), nil
}

// ListMembers lists every membership of the group with display names.
// The caller needs a membership of their own, in any status.
func (s *MembershipService) ListMembers(ctx context.Context, req *connect.Request[ListMembersRequest]) (*connect.Response[ListMembersResponse], error) {
	userID := middleware.GetUserID(ctx)
	if _, err := s.groups.GetActive(ctx, req.Msg.GroupID); err != nil {
		return nil, toConnectError(err)
	}
	if _, err := s.groups.Member(ctx, req.Msg.GroupID, userID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			err = models.ErrForbidden
		}
		return nil, toConnectError(err)
	}

	members, err := s.membership.GetGroupMembers(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, toConnectError(err)
	}

	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.UserID
	}
	names, err := s.profiles.GetMany(ctx, ids)
	if err != nil {
		return nil, toConnectError(err)
	}

	views := make([]MemberView, len(members))
	for i, m := range members {
		views[i] = MemberView{Member: m}
		if p, ok := names[m.UserID]; ok {
			views[i].DisplayName = p.DisplayName
		}
	}

	slog.Debug("ListMembers successful", "group_id", req.Msg.GroupID, "count", len(views))
	return connect.NewResponse(&ListMembersResponse{Members: views}), nil
}

// ListPendingInvites lists the caller's open invitations.
func (s *MembershipService) ListPendingInvites(ctx context.Context, _ *connect.Request[ListPendingInvitesRequest]) (*connect.Response[ListPendingInvitesResponse], error) {
	pending, err := s.membership.GetPendingInvitesForUser(ctx, middleware.GetUserID(ctx))
	if err != nil {
		return nil, toConnectError(err)
	}

	invites := make([]InviteView, len(pending))
	for i, p := range pending {
		invites[i] = InviteView{Group: p.Group, Member: p.Member}
	}
	return connect.NewResponse(&ListPendingInvitesResponse{Invites: invites}), nil
}

// AddWishlistItem adds an item to the caller's wishlist in a group.
func (s *MembershipService) AddWishlistItem(ctx context.Context, req *connect.Request[AddWishlistItemRequest]) (*connect.Response[WishlistItemResponse], error) {
	userID := middleware.GetUserID(ctx)
	item, err := s.membership.AddWishlistItem(ctx, userID, req.Msg.GroupID, userID, req.Msg.Name, req.Msg.URL)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&WishlistItemResponse{Item: item}), nil
}

// RemoveWishlistItem removes an item from the caller's wishlist.
func (s *MembershipService) RemoveWishlistItem(ctx context.Context, req *connect.Request[RemoveWishlistItemRequest]) (*connect.Response[Empty], error) {
	userID := middleware.GetUserID(ctx)
	if err := s.membership.RemoveWishlistItem(ctx, userID, req.Msg.GroupID, userID, req.Msg.ItemID); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&Empty{}), nil
}
