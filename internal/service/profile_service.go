package service

import (
	"context"

	"connectrpc.com/connect"

	"github.com/mmynk/secretsanta/internal/middleware"
	"github.com/mmynk/secretsanta/internal/profiles"
)

// ProfileService serves santa.v1.ProfileService.
type ProfileService struct {
	profiles *profiles.Service
}

// NewProfileService creates a ProfileService.
func NewProfileService(profileSvc *profiles.Service) *ProfileService {
	return &ProfileService{profiles: profileSvc}
}

// SyncProfile records the caller's profile from their token claims.
func (s *ProfileService) SyncProfile(ctx context.Context, _ *connect.Request[SyncProfileRequest]) (*connect.Response[ProfileResponse], error) {
	id, _ := middleware.GetIdentity(ctx)
	profile, err := s.profiles.Sync(ctx, id)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ProfileResponse{Profile: profile}), nil
}

func (s *ProfileService) GetProfile(ctx context.Context, req *connect.Request[GetProfileRequest]) (*connect.Response[ProfileResponse], error) {
	profile, err := s.profiles.Get(ctx, req.Msg.UserID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ProfileResponse{Profile: profile}), nil
}

func (s *ProfileService) SearchUsers(ctx context.Context, req *connect.Request[SearchUsersRequest]) (*connect.Response[ProfilesResponse], error) {
	list, err := s.profiles.Search(ctx, req.Msg.Term)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ProfilesResponse{Profiles: list}), nil
}
