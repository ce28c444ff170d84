package service

import (
	"context"

	"connectrpc.com/connect"
)

// Client calls every procedure over the Connect protocol with the JSON codec.
type Client struct {
	CreateGroup  *connect.Client[CreateGroupRequest, GroupResponse]
	GetGroup     *connect.Client[GetGroupRequest, GroupResponse]
	ListMyGroups *connect.Client[ListMyGroupsRequest, GroupsResponse]
	SearchGroups *connect.Client[SearchGroupsRequest, GroupsResponse]
	SetGroupOpen *connect.Client[SetGroupOpenRequest, GroupResponse]
	DeleteGroup  *connect.Client[DeleteGroupRequest, Empty]

	Invite             *connect.Client[MemberRequest, MemberResponse]
	RequestJoin        *connect.Client[RequestJoinRequest, MemberResponse]
	Approve            *connect.Client[MemberRequest, MemberResponse]
	Remove             *connect.Client[MemberRequest, Empty]
	ListMembers        *connect.Client[ListMembersRequest, ListMembersResponse]
	ListPendingInvites *connect.Client[ListPendingInvitesRequest, ListPendingInvitesResponse]
	AddWishlistItem    *connect.Client[AddWishlistItemRequest, WishlistItemResponse]
	RemoveWishlistItem *connect.Client[RemoveWishlistItemRequest, Empty]

	RunDraw         *connect.Client[RunDrawRequest, RunDrawResponse]
	GetMyAssignment *connect.Client[GetMyAssignmentRequest, GetMyAssignmentResponse]

	SyncProfile *connect.Client[SyncProfileRequest, ProfileResponse]
	GetProfile  *connect.Client[GetProfileRequest, ProfileResponse]
	SearchUsers *connect.Client[SearchUsersRequest, ProfilesResponse]
}

// NewClient creates a Client for the server at baseURL. token, when set, is
// sent as a bearer credential on every call.
func NewClient(httpClient connect.HTTPClient, baseURL, token string, opts ...connect.ClientOption) *Client {
	opts = append([]connect.ClientOption{connect.WithCodec(jsonCodec{})}, opts...)
	if token != "" {
		opts = append(opts, connect.WithInterceptors(bearer(token)))
	}

	return &Client{
		CreateGroup:  connect.NewClient[CreateGroupRequest, GroupResponse](httpClient, baseURL+CreateGroupProcedure, opts...),
		GetGroup:     connect.NewClient[GetGroupRequest, GroupResponse](httpClient, baseURL+GetGroupProcedure, opts...),
		ListMyGroups: connect.NewClient[ListMyGroupsRequest, GroupsResponse](httpClient, baseURL+ListMyGroupsProcedure, opts...),
		SearchGroups: connect.NewClient[SearchGroupsRequest, GroupsResponse](httpClient, baseURL+SearchGroupsProcedure, opts...),
		SetGroupOpen: connect.NewClient[SetGroupOpenRequest, GroupResponse](httpClient, baseURL+SetGroupOpenProcedure, opts...),
		DeleteGroup:  connect.NewClient[DeleteGroupRequest, Empty](httpClient, baseURL+DeleteGroupProcedure, opts...),

		Invite:             connect.NewClient[MemberRequest, MemberResponse](httpClient, baseURL+InviteProcedure, opts...),
		RequestJoin:        connect.NewClient[RequestJoinRequest, MemberResponse](httpClient, baseURL+RequestJoinProcedure, opts...),
		Approve:            connect.NewClient[MemberRequest, MemberResponse](httpClient, baseURL+ApproveProcedure, opts...),
		Remove:             connect.NewClient[MemberRequest, Empty](httpClient, baseURL+RemoveProcedure, opts...),
		ListMembers:        connect.NewClient[ListMembersRequest, ListMembersResponse](httpClient, baseURL+ListMembersProcedure, opts...),
		ListPendingInvites: connect.NewClient[ListPendingInvitesRequest, ListPendingInvitesResponse](httpClient, baseURL+ListPendingInvitesProcedure, opts...),
		AddWishlistItem:    connect.NewClient[AddWishlistItemRequest, WishlistItemResponse](httpClient, baseURL+AddWishlistItemProcedure, opts...),
		RemoveWishlistItem: connect.NewClient[RemoveWishlistItemRequest, Empty](httpClient, baseURL+RemoveWishlistItemProcedure, opts...),

		RunDraw:         connect.NewClient[RunDrawRequest, RunDrawResponse](httpClient, baseURL+RunDrawProcedure, opts...),
		GetMyAssignment: connect.NewClient[GetMyAssignmentRequest, GetMyAssignmentResponse](httpClient, baseURL+GetMyAssignmentProcedure, opts...),

		SyncProfile: connect.NewClient[SyncProfileRequest, ProfileResponse](httpClient, baseURL+SyncProfileProcedure, opts...),
		GetProfile:  connect.NewClient[GetProfileRequest, ProfileResponse](httpClient, baseURL+GetProfileProcedure, opts...),
		SearchUsers: connect.NewClient[SearchUsersRequest, ProfilesResponse](httpClient, baseURL+SearchUsersProcedure, opts...),
	}
}

func bearer(token string) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			req.Header().Set("Authorization", "Bearer "+token)
			return next(ctx, req)
		}
	}
}
