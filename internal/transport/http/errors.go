package http

import (
	"errors"
	"net/http"

	"quiz-battle-arena/internal/domain"
)

// errorKinds maps each domain error kind to its HTTP status and wire code, in match order.
var errorKinds = []struct {
	kind   error
	status int
	code   string
}{
	{domain.ErrValidation, http.StatusBadRequest, "validation"},
	{domain.ErrAccessDenied, http.StatusForbidden, "access_denied"},
	{domain.ErrNotFound, http.StatusNotFound, "not_found"},
	{domain.ErrStateConflict, http.StatusConflict, "state_conflict"},
	{domain.ErrExpired, http.StatusGone, "expired"},
	{domain.ErrOpponentUnavailable, http.StatusConflict, "opponent_unavailable"},
	{domain.ErrStorage, http.StatusServiceUnavailable, "storage"},
}

func classify(err error) (int, string) {
	for _, k := range errorKinds {
		if errors.Is(err, k.kind) {
			return k.status, k.code
		}
	}
	return http.StatusInternalServerError, "internal"
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func newErrorPayload(err error) errorPayload {
	_, code := classify(err)
	return errorPayload{Code: code, Message: err.Error()}
}
