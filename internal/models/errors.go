package models

import "errors"

var (
	// ErrInsufficientMembers is returned when a draw has fewer than two
	// active participants.
	ErrInsufficientMembers = errors.New("at least two active members are required")

	// ErrGroupClosed is returned when joining or inviting into a closed group.
	ErrGroupClosed = errors.New("group is closed to new members")

	// ErrAlreadyMember is returned when a relationship already exists.
	ErrAlreadyMember = errors.New("user is already related to this group")

	// ErrForbidden is returned when the acting user may not perform the operation.
	ErrForbidden = errors.New("operation not permitted")

	// ErrInvalidTransition is returned when the member's current status
	// does not allow the requested change.
	ErrInvalidTransition = errors.New("invalid membership transition")

	// ErrInvalidArgument is returned for malformed input such as an empty name.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrDrawConflict is returned when another draw committed first.
	ErrDrawConflict = errors.New("group was drawn concurrently")
)
