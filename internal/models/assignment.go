package models

// UnknownReceiver is the ReceiverName used when no display name was known
// at draw time.
const UnknownReceiver = "Unknown"

// GroupAssignment says whom a giver buys a gift for. It is stored at
// groups/{groupId}/assignments/{giverId} and replaced on every draw.
type GroupAssignment struct {
	GroupID    string `json:"groupId"`
	GiverID    string `json:"giverId"`
	ReceiverID string `json:"receiverId"`

	// ReceiverName is a copy of the receiver's display name taken when the
	// draw ran. It is not updated when the receiver later renames.
	ReceiverName string `json:"receiverName"`
}
