package service

import (
	"github.com/mmynk/secretsanta/internal/models"
)

// GroupService

type CreateGroupRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description,omitempty" validate:"max=500"`
}

type GroupResponse struct {
	Group *models.Group `json:"group"`
}

type GetGroupRequest struct {
	GroupID string `json:"groupId" validate:"required,excludes=/"`
}

type ListMyGroupsRequest struct{}

type SearchGroupsRequest struct {
	Term string `json:"term" validate:"max=100"`
}

type GroupsResponse struct {
	Groups []models.Group `json:"groups"`
}

type SetGroupOpenRequest struct {
	GroupID string `json:"groupId" validate:"required,excludes=/"`
	IsOpen  bool   `json:"isOpen"`
}

type DeleteGroupRequest struct {
	GroupID string `json:"groupId" validate:"required,excludes=/"`
}

type Empty struct{}

// MembershipService

type MemberRequest struct {
	GroupID string `json:"groupId" validate:"required,excludes=/"`
	UserID  string `json:"userId" validate:"required,excludes=/"`
}

type RequestJoinRequest struct {
	GroupID string `json:"groupId" validate:"required,excludes=/"`
}

type MemberResponse struct {
	Member *models.Member `json:"member"`
}

type ListMembersRequest struct {
	GroupID string `json:"groupId" validate:"required,excludes=/"`
}

// MemberView is a member joined with their profile's display name.
type MemberView struct {
	models.Member
	DisplayName string `json:"displayName,omitempty"`
}

type ListMembersResponse struct {
	Members []MemberView `json:"members"`
}

type ListPendingInvitesRequest struct{}

type InviteView struct {
	Group  models.Group  `json:"group"`
	Member models.Member `json:"member"`
}

type ListPendingInvitesResponse struct {
	Invites []InviteView `json:"invites"`
}

type AddWishlistItemRequest struct {
	GroupID string `json:"groupId" validate:"required,excludes=/"`
	Name    string `json:"name" validate:"required,max=200"`
	URL     string `json:"url,omitempty" validate:"omitempty,url,max=2000"`
}

type WishlistItemResponse struct {
	Item *models.WishlistItem `json:"item"`
}

type RemoveWishlistItemRequest struct {
	GroupID string `json:"groupId" validate:"required,excludes=/"`
	ItemID  string `json:"itemId" validate:"required,excludes=/"`
}

// DrawService

type RunDrawRequest struct {
	GroupID string `json:"groupId" validate:"required,excludes=/"`
}

// RunDrawResponse carries no assignments. Members read their own through
// GetMyAssignment.
type RunDrawResponse struct {
	Participants int `json:"participants"`
}

type GetMyAssignmentRequest struct {
	GroupID string `json:"groupId" validate:"required,excludes=/"`
}

type GetMyAssignmentResponse struct {
	Drawn      bool                    `json:"drawn"`
	Assignment *models.GroupAssignment `json:"assignment,omitempty"`
}

// ProfileService

type SyncProfileRequest struct{}

type ProfileResponse struct {
	Profile *models.Profile `json:"profile"`
}

type GetProfileRequest struct {
	UserID string `json:"userId" validate:"required,excludes=/"`
}

type SearchUsersRequest struct {
	Term string `json:"term" validate:"required,max=100"`
}

type ProfilesResponse struct {
	Profiles []models.Profile `json:"profiles"`
}
