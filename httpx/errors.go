package httpx

import (
	"errors"
	"fmt"
)

// ErrTimeout is returned when a request exceeds the per-request timeout.
var ErrTimeout = errors.New("httpx: request timed out")

// StatusError is returned for non-2xx responses. Body holds the raw response
// body so callers can surface server-provided error messages.
type StatusError struct {
	Code int
	Body []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("httpx: unexpected status %d", e.Code)
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}

// retryable reports whether an error should trigger another attempt.
// Network errors and 5xx responses are transient; 4xx responses are not.
func retryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= 500
	}
	return err != nil
}
