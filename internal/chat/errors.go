package chat

import (
	"errors"
	"net/http"
)

// ErrRejected is returned by Query when the encoded messages do not fit in the
// token budget. It is a defined outcome, not a fault: callers answer with
// Fallback.
var ErrRejected = errors.New("max query length exceeded")

// queryLengthError signals a budget whose maximum query length would fall
// below the configured minimum.
type queryLengthError struct{ min, max int }

func (e queryLengthError) Error() string {
	return "the minimum query length cannot be greater than the maximum query length"
}

// IsQueryLength reports whether err is a token budget configuration error.
func IsQueryLength(err error) bool {
	var e queryLengthError
	return errors.As(err, &e)
}

// invalidInputError marks malformed client input (empty messages, unknown
// roles, prompts the tokenizer rejects).
type invalidInputError struct{ msg string }

func (e invalidInputError) Error() string   { return e.msg }
func (e invalidInputError) StatusCode() int { return http.StatusBadRequest }

// ErrInvalidInput constructs an invalidInputError.
func ErrInvalidInput(msg string) error { return invalidInputError{msg: msg} }

// IsInvalidInput reports whether err is a client input error.
func IsInvalidInput(err error) bool {
	var e invalidInputError
	return errors.As(err, &e)
}

// tooBusyError signals queue timeout/overflow for 429 mapping.
type tooBusyError struct{}

func (tooBusyError) Error() string   { return "too busy: generation queue is full" }
func (tooBusyError) StatusCode() int { return http.StatusTooManyRequests }

// IsTooBusy reports whether err indicates backpressure (return 429).
func IsTooBusy(err error) bool {
	var e tooBusyError
	return errors.As(err, &e)
}

// engineUnavailableError signals that the inference runtime cannot be reached
// or was not built in, so the HTTP layer can return 503 instead of 500.
type engineUnavailableError struct{ msg string }

func (e engineUnavailableError) Error() string   { return e.msg }
func (e engineUnavailableError) StatusCode() int { return http.StatusServiceUnavailable }

// ErrEngineUnavailable constructs an engineUnavailableError.
func ErrEngineUnavailable(msg string) error { return engineUnavailableError{msg: msg} }

// IsEngineUnavailable reports whether err indicates a missing or unreachable runtime.
func IsEngineUnavailable(err error) bool {
	var e engineUnavailableError
	return errors.As(err, &e)
}
