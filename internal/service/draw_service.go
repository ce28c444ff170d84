package service

import (
	"context"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/secretsanta/internal/draw"
	"github.com/mmynk/secretsanta/internal/groups"
	"github.com/mmynk/secretsanta/internal/membership"
	"github.com/mmynk/secretsanta/internal/middleware"
	"github.com/mmynk/secretsanta/internal/profiles"
)

// DrawService serves santa.v1.DrawService.
type DrawService struct {
	groups     *groups.Service
	membership *membership.Service
	profiles   *profiles.Service
	engine     *draw.Engine
}

// NewDrawService creates a DrawService.
func NewDrawService(groupSvc *groups.Service, memberSvc *membership.Service, profileSvc *profiles.Service, engine *draw.Engine) *DrawService {
	return &DrawService{groups: groupSvc, membership: memberSvc, profiles: profileSvc, engine: engine}
}

// RunDraw draws the group's active members. Admins only. The response
// carries only the participant count.
func (s *DrawService) RunDraw(ctx context.Context, req *connect.Request[RunDrawRequest]) (*connect.Response[RunDrawResponse], error) {
	userID := middleware.GetUserID(ctx)
	groupID := req.Msg.GroupID
	slog.Debug("RunDraw request received", "group_id", groupID, "user_id", userID)

	if err := s.groups.RequireAdmin(ctx, groupID, userID); err != nil {
		return nil, toConnectError(err)
	}

	members, err := s.membership.GetGroupMembers(ctx, groupID)
	if err != nil {
		return nil, toConnectError(err)
	}

	var ids []string
	for _, m := range members {
		if m.IsActive() {
			ids = append(ids, m.UserID)
		}
	}
	names, err := s.profiles.GetMany(ctx, ids)
	if err != nil {
		return nil, toConnectError(err)
	}

	participants := make([]draw.Participant, 0, len(ids))
	for _, m := range members {
		if !m.IsActive() {
			continue
		}
		p := draw.Participant{Member: m}
		if profile, ok := names[m.UserID]; ok {
			p.DisplayName = profile.DisplayName
		}
		participants = append(participants, p)
	}

	assignments, err := s.engine.Run(ctx, groupID, participants)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&RunDrawResponse{Participants: len(assignments)}), nil
}

// GetMyAssignment returns the caller's own assignment in the group.
func (s *DrawService) GetMyAssignment(ctx context.Context, req *connect.Request[GetMyAssignmentRequest]) (*connect.Response[GetMyAssignmentResponse], error) {
	a, err := s.engine.MyAssignment(ctx, req.Msg.GroupID, middleware.GetUserID(ctx))
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&GetMyAssignmentResponse{Drawn: a != nil, Assignment: a}), nil
}
