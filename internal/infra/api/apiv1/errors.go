package apiv1

import (
	"encoding/json"
	"errors"
	"net/http"

	"codehub-mentor/internal/domain"
)

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Field string `json:"field,omitempty"`
}

// statusOf maps domain errors to HTTP statuses. Anything unknown is a 500
// and its text is not shown to the client.
func statusOf(err error) (int, errorBody) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, errorBody{Error: ve.Message, Code: "validation", Field: ve.Field}
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest, errorBody{Error: err.Error(), Code: "validation"}
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden, errorBody{Error: "forbidden", Code: "forbidden"}
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, errorBody{Error: "not found", Code: "not_found"}
	case errors.Is(err, domain.ErrAlreadyExists):
		return http.StatusConflict, errorBody{Error: err.Error(), Code: "conflict"}
	case errors.Is(err, domain.ErrSessionBusy):
		return http.StatusConflict, errorBody{Error: err.Error(), Code: "session_busy"}
	case errors.Is(err, domain.ErrSessionClosed):
		return http.StatusConflict, errorBody{Error: err.Error(), Code: "session_closed"}
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests, errorBody{Error: "Too many messages. Please slow down.", Code: "rate_limited"}
	default:
		return http.StatusInternalServerError, errorBody{Error: "internal error", Code: "unexpected"}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: msg, Code: "bad_request"})
}
