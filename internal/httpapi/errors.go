package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"llmapi/internal/chat"
	"llmapi/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}

// statusFor maps a service error to its HTTP status and the message safe to
// show the client. Errors without a status are internal: the caller logs the
// detail and the client only sees the generic text.
func statusFor(err error) (int, string) {
	if chat.IsTooBusy(err) {
		IncrementBackpressure("queue_timeout")
		return http.StatusTooManyRequests, err.Error()
	}
	var he HTTPError
	if errors.As(err, &he) {
		return he.StatusCode(), he.Error()
	}
	return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
}
