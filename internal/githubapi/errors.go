package githubapi

import (
	"errors"
	"fmt"
)

const maxErrorBody = 500

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Status int
	Path   string
	Body   string // truncated to 500 characters
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("github: GET %s: HTTP %d", e.Path, e.Status)
	}
	return fmt.Sprintf("github: GET %s: HTTP %d: %s", e.Path, e.Status, e.Body)
}

// TransportError wraps failures that never produced a usable HTTP response:
// DNS, connection resets, TLS, timeouts and undecodable bodies.
type TransportError struct {
	Op   string // "request", "read" or "decode"
	Path string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("github: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// HTTPStatus reports the status carried by err, or 0 if err is not a StatusError.
func HTTPStatus(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status
	}
	return 0
}

// IsStatus reports whether err is a StatusError with one of the given codes.
func IsStatus(err error, codes ...int) bool {
	status := HTTPStatus(err)
	if status == 0 {
		return false
	}
	for _, code := range codes {
		if status == code {
			return true
		}
	}
	return false
}

func truncateBody(body []byte) string {
	runes := []rune(string(body))
	if len(runes) <= maxErrorBody {
		return string(runes)
	}
	return string(runes[:maxErrorBody])
}
