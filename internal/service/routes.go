package service

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
	"github.com/go-chi/chi/v5"
)

// Procedure paths. Every service lives under the santa.v1 package.
const (
	CreateGroupProcedure  = "/santa.v1.GroupService/CreateGroup"
	GetGroupProcedure     = "/santa.v1.GroupService/GetGroup"
	ListMyGroupsProcedure = "/santa.v1.GroupService/ListMyGroups"
	SearchGroupsProcedure = "/santa.v1.GroupService/SearchGroups"
	SetGroupOpenProcedure = "/santa.v1.GroupService/SetGroupOpen"
	DeleteGroupProcedure  = "/santa.v1.GroupService/DeleteGroup"

	InviteProcedure             = "/santa.v1.MembershipService/Invite"
	RequestJoinProcedure        = "/santa.v1.MembershipService/RequestJoin"
	ApproveProcedure            = "/santa.v1.MembershipService/Approve"
	RemoveProcedure             = "/santa.v1.MembershipService/Remove"
	ListMembersProcedure        = "/santa.v1.MembershipService/ListMembers"
	ListPendingInvitesProcedure = "/santa.v1.MembershipService/ListPendingInvites"
	AddWishlistItemProcedure    = "/santa.v1.MembershipService/AddWishlistItem"
	RemoveWishlistItemProcedure = "/santa.v1.MembershipService/RemoveWishlistItem"

	RunDrawProcedure         = "/santa.v1.DrawService/RunDraw"
	GetMyAssignmentProcedure = "/santa.v1.DrawService/GetMyAssignment"

	SyncProfileProcedure = "/santa.v1.ProfileService/SyncProfile"
	GetProfileProcedure  = "/santa.v1.ProfileService/GetProfile"
	SearchUsersProcedure = "/santa.v1.ProfileService/SearchUsers"
)

func unary[Req, Res any](r chi.Router, procedure string, fn func(context.Context, *connect.Request[Req]) (*connect.Response[Res], error), opts []connect.HandlerOption) {
	r.Method(http.MethodPost, procedure, connect.NewUnaryHandler(procedure, fn, opts...))
}

// Register mounts the GroupService procedures on r.
func (s *GroupService) Register(r chi.Router, opts ...connect.HandlerOption) {
	unary(r, CreateGroupProcedure, s.CreateGroup, opts)
	unary(r, GetGroupProcedure, s.GetGroup, opts)
	unary(r, ListMyGroupsProcedure, s.ListMyGroups, opts)
	unary(r, SearchGroupsProcedure, s.SearchGroups, opts)
	unary(r, SetGroupOpenProcedure, s.SetGroupOpen, opts)
	unary(r, DeleteGroupProcedure, s.DeleteGroup, opts)
}

// Register mounts the MembershipService procedures on r.
func (s *MembershipService) Register(r chi.Router, opts ...connect.HandlerOption) {
	unary(r, InviteProcedure, s.Invite, opts)
	unary(r, RequestJoinProcedure, s.RequestJoin, opts)
	unary(r, ApproveProcedure, s.Approve, opts)
	unary(r, RemoveProcedure, s.Remove, opts)
	unary(r, ListMembersProcedure, s.ListMembers, opts)
	unary(r, ListPendingInvitesProcedure, s.ListPendingInvites, opts)
	unary(r, AddWishlistItemProcedure, s.AddWishlistItem, opts)
	unary(r, RemoveWishlistItemProcedure, s.RemoveWishlistItem, opts)
}

// Register mounts the DrawService procedures on r.
func (s *DrawService) Register(r chi.Router, opts ...connect.HandlerOption) {
	unary(r, RunDrawProcedure, s.RunDraw, opts)
	unary(r, GetMyAssignmentProcedure, s.GetMyAssignment, opts)
}

// Register mounts the ProfileService procedures on r.
func (s *ProfileService) Register(r chi.Router, opts ...connect.HandlerOption) {
	unary(r, SyncProfileProcedure, s.SyncProfile, opts)
	unary(r, GetProfileProcedure, s.GetProfile, opts)
	unary(r, SearchUsersProcedure, s.SearchUsers, opts)
}
