package service

import (
	"errors"

	"connectrpc.com/connect"

	"github.com/mmynk/secretsanta/internal/models"
	"github.com/mmynk/secretsanta/internal/storage"
)

// toConnectError maps domain and storage errors onto Connect codes.
func toConnectError(err error) *connect.Error {
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		return connectErr
	}
	return connect.NewError(codeOf(err), err)
}

func codeOf(err error) connect.Code {
	switch {
	case errors.Is(err, models.ErrInvalidArgument):
		return connect.CodeInvalidArgument
	case errors.Is(err, storage.ErrNotFound):
		return connect.CodeNotFound
	case errors.Is(err, models.ErrForbidden):
		return connect.CodePermissionDenied
	case errors.Is(err, models.ErrAlreadyMember), errors.Is(err, storage.ErrAlreadyExists):
		return connect.CodeAlreadyExists
	case errors.Is(err, models.ErrGroupClosed),
		errors.Is(err, models.ErrInsufficientMembers),
		errors.Is(err, models.ErrInvalidTransition):
		return connect.CodeFailedPrecondition
	case errors.Is(err, models.ErrDrawConflict), errors.Is(err, storage.ErrConflict):
		return connect.CodeAborted
	case errors.Is(err, storage.ErrUnavailable):
		return connect.CodeUnavailable
	default:
		return connect.CodeInternal
	}
}
