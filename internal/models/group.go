package models

// GroupStatus is the soft-delete state of a group.
type GroupStatus string

const (
	GroupActive  GroupStatus = "active"
	GroupDeleted GroupStatus = "deleted"
)

// DrawCompleted is the DrawStatus of a group after a successful draw.
const DrawCompleted = "completed"

// Group represents a gift exchange.
//
// Invariant: MemberIDs holds exactly the user IDs of the group's Member
// documents whose status is active. Both sides are only ever changed in the
// same storage batch.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string `json:"id"`

	// Name is the display name of the group (e.g., "Office 2026").
	Name string `json:"name"`

	// Description is optional free text.
	Description string `json:"description,omitempty"`

	// CreatorID is the user who created the group; they start as its admin.
	CreatorID string `json:"creatorId"`

	// IsOpen gates new invitations and join requests. Existing members
	// are unaffected when it is turned off.
	IsOpen bool `json:"isOpen"`

	// MemberIDs is the denormalised set of active member user IDs.
	MemberIDs []string `json:"memberIds"`

	// Status is active until the group is soft-deleted.
	Status GroupStatus `json:"status"`

	// DrawStatus is empty until a draw completes, then DrawCompleted.
	DrawStatus string `json:"drawStatus,omitempty"`

	// DrawVersion counts completed draws. A draw commits only if the
	// version it read is still current.
	DrawVersion int `json:"drawVersion"`

	// DrawnAt is the Unix timestamp of the last completed draw.
	DrawnAt int64 `json:"drawnAt,omitempty"`

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64 `json:"createdAt"`

	// UpdatedAt is the Unix timestamp of the last change to the group.
	UpdatedAt int64 `json:"updatedAt"`

	// DeletedAt is the Unix timestamp of the soft delete, zero otherwise.
	DeletedAt int64 `json:"deletedAt,omitempty"`
}

// Deleted reports whether the group was soft-deleted.
func (g *Group) Deleted() bool {
	return g.Status == GroupDeleted
}

// HasMember reports whether userID is in MemberIDs.
func (g *Group) HasMember(userID string) bool {
	for _, id := range g.MemberIDs {
		if id == userID {
			return true
		}
	}
	return false
}
