package server

import (
	"errors"
	"net/http"

	"github.com/wfunc/impostor/game"
	"github.com/wfunc/impostor/services"
)

// statusFor maps service and engine errors onto HTTP status codes; the same codes
// travel in websocket error messages.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrRoomClosed):
		return http.StatusGone
	case errors.Is(err, services.ErrBadRequest), errors.Is(err, game.ErrPrecondition):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrInvalidSession):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, services.ErrRoomNotFound):
		return http.StatusNotFound
	case errors.Is(err, game.ErrStructural):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage hides internal errors from clients.
func publicMessage(status int, err error) string {
	if status == http.StatusInternalServerError {
		return "internal error"
	}
	return err.Error()
}
