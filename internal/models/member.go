package models

// Role is a member's authority within a group.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// MemberStatus is the lifecycle state of a (group, user) relationship.
// The absence of a Member document is the "no relationship" state.
type MemberStatus string

const (
	StatusInvited    MemberStatus = "invited"
	StatusRequesting MemberStatus = "requesting"
	StatusActive     MemberStatus = "active"
)

// Member is the relationship of one user to one group, stored at
// groups/{groupId}/members/{userId}.
type Member struct {
	UserID   string         `json:"userId"`
	Role     Role           `json:"role"`
	Status   MemberStatus   `json:"status"`
	JoinedAt int64          `json:"joinedAt"`
	Wishlist []WishlistItem `json:"wishlist,omitempty"`
}

// IsActive reports whether the member takes part in draws.
func (m *Member) IsActive() bool {
	return m.Status == StatusActive
}

// IsAdmin reports whether the member is an active admin.
func (m *Member) IsAdmin() bool {
	return m.Role == RoleAdmin && m.Status == StatusActive
}

// WishlistItem is one wish of a member. IDs are unique per member.
type WishlistItem struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	URL       string `json:"url,omitempty"`
	CreatedAt int64  `json:"createdAt"`
}
