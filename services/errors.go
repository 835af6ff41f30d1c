package services

import (
	"errors"
	"fmt"
)

var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrRoomClosed     = errors.New("room is closed")
	ErrInvalidSession = errors.New("invalid session")
	ErrForbidden      = errors.New("only the room admin can do that")
	ErrBadRequest     = errors.New("bad request")
)

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrBadRequest, fmt.Sprintf(format, args...))
}
