// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// Common sentinels across gateway/store layers.
var (
	// ErrUnauthenticated indicates the session is missing or expired (HTTP 401).
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrForbidden indicates the server rejected a mutation, e.g. a wrong item password (HTTP 403).
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates a malformed payload or argument.
	ErrValidation = errors.New("validation")

	// ErrConflict indicates a unique constraint violation (e.g., username taken).
	ErrConflict = errors.New("conflict")

	// ErrRateLimited indicates temporary login lock due to rate limiting (HTTP 429).
	ErrRateLimited = errors.New("rate limited")

	// ErrNetwork indicates a transport failure; no HTTP response was received.
	ErrNetwork = errors.New("network")

	// ErrUnexpected covers any other non-2xx status.
	ErrUnexpected = errors.New("unexpected status")
)

// HTTPError is a non-2xx reply from the site API.
type HTTPError struct {
	Status  int
	Method  string
	Path    string
	Message string // server-provided {"message": ...}, may be empty
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, http.StatusText(e.Status))
}

// Unwrap maps the status to its kind sentinel so callers can use errors.Is.
func (e *HTTPError) Unwrap() error { return KindOf(e.Status) }

// KindOf returns the sentinel for an HTTP status code.
func KindOf(status int) error {
	switch status {
	case http.StatusUnauthorized:
		return ErrUnauthenticated
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return ErrValidation
	case http.StatusConflict:
		return ErrConflict
	case http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		return ErrUnexpected
	}
}

// IsStatus reports whether err carries an HTTPError with the given status.
func IsStatus(err error, status int) bool {
	var he *HTTPError
	return errors.As(err, &he) && he.Status == status
}

// Validation wraps ErrValidation with a formatted reason.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
