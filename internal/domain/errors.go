package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for domain error conditions.
// Use errors.Is() for matching - never compare error strings.
var (
	// Session lifecycle errors
	ErrNoSession      = errors.New("no active session")
	ErrSessionExpired = errors.New("session has expired")
	ErrNoRefreshToken = errors.New("no refresh token available")
	ErrRefreshFailed  = errors.New("token refresh failed")

	// Transport errors
	ErrRequestFailed = errors.New("request failed")
	ErrNetwork       = errors.New("network error")

	// HTTP error kinds carried by RequestError
	ErrUnauthorized  = errors.New("authentication required")
	ErrForbidden     = errors.New("permission denied")
	ErrNotFound      = errors.New("resource not found")
	ErrAlreadyExists = errors.New("resource already exists")
	ErrInvalidInput  = errors.New("invalid input")
	ErrRateLimited   = errors.New("rate limit exceeded")
	ErrUnavailable   = errors.New("service temporarily unavailable")

	// ID validation errors
	ErrEmptyID   = errors.New("ID cannot be empty")
	ErrInvalidID = errors.New("invalid ID format")

	// Configuration errors
	ErrConfigRequired = errors.New("required configuration key missing")
)

// RequestError is a non-2xx response from the backend. It unwraps to
// ErrRequestFailed and to the error kind derived from the status code, so
// callers can match either errors.Is(err, ErrRequestFailed) or a specific
// kind such as ErrUnauthorized.
type RequestError struct {
	Op         string // logical operation, e.g. "login", "todos.list"
	StatusCode int
	Message    string // server-provided message, if any
	Kind       error
}

func (e *RequestError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Op == "" {
		return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, msg)
	}
	return fmt.Sprintf("%s: request failed with status %d: %s", e.Op, e.StatusCode, msg)
}

// Unwrap exposes both the generic failure and the specific kind.
func (e *RequestError) Unwrap() []error {
	if e.Kind == nil {
		return []error{ErrRequestFailed}
	}
	return []error{ErrRequestFailed, e.Kind}
}

// StatusCode returns the HTTP status of the first RequestError in err's
// chain, or 0 when there is none.
func StatusCode(err error) int {
	var re *RequestError
	if errors.As(err, &re) {
		return re.StatusCode
	}
	return 0
}

// IsRetryable returns true if the error represents a transient condition
// that may succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrUnavailable) ||
		errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrNetwork)
}

// clientErrors enumerates all domain errors that represent client-side issues.
var clientErrors = []error{
	ErrInvalidInput,
	ErrNotFound,
	ErrForbidden,
	ErrUnauthorized,
	ErrAlreadyExists,
	ErrEmptyID,
	ErrInvalidID,
	ErrNoSession,
	ErrSessionExpired,
	ErrNoRefreshToken,
	ErrRefreshFailed,
}

// IsClientError returns true if the error represents a client-side issue
// that will not succeed on retry without client-side changes.
func IsClientError(err error) bool {
	for _, target := range clientErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsSessionError returns true if the error means the user must log in again.
func IsSessionError(err error) bool {
	return errors.Is(err, ErrNoSession) ||
		errors.Is(err, ErrSessionExpired) ||
		errors.Is(err, ErrNoRefreshToken) ||
		errors.Is(err, ErrRefreshFailed)
}
