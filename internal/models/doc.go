// Package models defines the documents of the gift exchange.
//
// # Documents
//
//   - Group: the exchange itself, with its openness gate and soft-delete state
//   - Member: one (group, user) relationship, keyed by user ID under the group
//   - WishlistItem: an entry on a member's wishlist, owned by that member
//   - GroupAssignment: the result of a draw for one giver
//   - Profile: the user profile kept for display names and search
//
// # Design Principles
//
// 1. **Documents, not rows**: every type here is stored as one JSON document
// at the path given in package storage; JSON field names are the wire names.
// 2. **IDs over pointers**: relationships are expressed with user and group IDs.
// 3. **Denormalisation is explicit**: Group.MemberIDs mirrors the active
// Member documents and GroupAssignment.ReceiverName is a snapshot.
package models
