package service

import (
	"context"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/secretsanta/internal/groups"
	"github.com/mmynk/secretsanta/internal/middleware"
)

// GroupService serves santa.v1.GroupService.
type GroupService struct {
	groups *groups.Service
}

// NewGroupService creates a new GroupService on top of the group aggregate.
func NewGroupService(groupSvc *groups.Service) *GroupService {
	return &GroupService{groups: groupSvc}
}

// CreateGroup creates a group with the caller as its admin.
func (s *GroupService) CreateGroup(ctx context.Context, req *connect.Request[CreateGroupRequest]) (*connect.Response[GroupResponse], error) {
	userID := middleware.GetUserID(ctx)
	slog.Debug("CreateGroup request received", "name", req.Msg.Name, "user_id", userID)

	group, err := s.groups.Create(ctx, userID, req.Msg.Name, req.Msg.Description)
	if err != nil {
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&GroupResponse{Group: group}), nil
}

// GetGroup retrieves an active group by ID.
func (s *GroupService) GetGroup(ctx context.Context, req *connect.Request[GetGroupRequest]) (*connect.Response[GroupResponse], error) {
	slog.Debug("GetGroup request received", "group_id", req.Msg.GroupID)

	group, err := s.groups.GetActive(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&GroupResponse{Group: group}), nil
}

// ListMyGroups lists the active groups the caller is an active member of.
func (s *GroupService) ListMyGroups(ctx context.Context, _ *connect.Request[ListMyGroupsRequest]) (*connect.Response[GroupsResponse], error) {
	userID := middleware.GetUserID(ctx)

	list, err := s.groups.ListForUser(ctx, userID)
	if err != nil {
		return nil, toConnectError(err)
	}

	slog.Debug("ListMyGroups successful", "user_id", userID, "count", len(list))
	return connect.NewResponse(&GroupsResponse{Groups: list}), nil
}

// SearchGroups finds open groups by name prefix.
func (s *GroupService) SearchGroups(ctx context.Context, req *connect.Request[SearchGroupsRequest]) (*connect.Response[GroupsResponse], error) {
	list, err := s.groups.Search(ctx, req.Msg.Term)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&GroupsResponse{Groups: list}), nil
}

// SetGroupOpen opens or closes a group to join requests.
func (s *GroupService) SetGroupOpen(ctx context.Context, req *connect.Request[SetGroupOpenRequest]) (*connect.Response[GroupResponse], error) {
	group, err := s.groups.SetOpen(ctx, middleware.GetUserID(ctx), req.Msg.GroupID, req.Msg.IsOpen)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&GroupResponse{Group: group}), nil
}

// DeleteGroup soft-deletes a group.
func (s *GroupService) DeleteGroup(ctx context.Context, req *connect.Request[DeleteGroupRequest]) (*connect.Response[Empty], error) {
	if err := s.groups.SoftDelete(ctx, middleware.GetUserID(ctx), req.Msg.GroupID); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&Empty{}), nil
}
