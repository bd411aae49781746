package errmap

import (
	"context"
	"errors"

	"github.com/aelexs/todoclient/internal/domain"
)

// User-facing messages. Raw error text is never shown to end users.
const (
	MsgNetwork            = "Network error. Please check your internet connection."
	MsgTimeout            = "Request timeout. Please try again."
	MsgServer             = "Server error. Please try again later."
	MsgInvalidCredentials = "Invalid email or password. Please try again."
	MsgUserExists         = "An account with this email already exists."
	MsgSessionExpired     = "Your session has expired. Please login again."
	MsgNotLoggedIn        = "You are not logged in. Please login first."
	MsgUnauthorized       = "You are not authorized to perform this action."
	MsgNotFound           = "Todo item not found."
	MsgInvalidInput       = "Some of the provided values are invalid. Please check them and try again."
	MsgRateLimited        = "Too many requests. Please wait a moment and try again."
	MsgUnknown            = "An unexpected error occurred. Please try again."
)

type messageMapping struct {
	err error
	msg string
}

// messageMappings is consulted in order; the first errors.Is match wins.
var messageMappings = []messageMapping{
	{domain.ErrNoSession, MsgNotLoggedIn},
	{domain.ErrSessionExpired, MsgSessionExpired},
	{domain.ErrNoRefreshToken, MsgSessionExpired},
	{domain.ErrRefreshFailed, MsgSessionExpired},
	{context.DeadlineExceeded, MsgTimeout},
	{domain.ErrNetwork, MsgNetwork},
	{domain.ErrInvalidInput, MsgInvalidInput},
	{domain.ErrEmptyID, MsgInvalidInput},
	{domain.ErrInvalidID, MsgInvalidInput},
	{domain.ErrUnauthorized, MsgUnauthorized},
	{domain.ErrForbidden, MsgUnauthorized},
	{domain.ErrNotFound, MsgNotFound},
	{domain.ErrRateLimited, MsgRateLimited},
	{domain.ErrUnavailable, MsgServer},
	{domain.ErrRequestFailed, MsgServer},
}

// UserMessage returns the message to show for a failed resource operation.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	for _, m := range messageMappings {
		if errors.Is(err, m.err) {
			return m.msg
		}
	}
	return MsgUnknown
}

// AuthMessage returns the message to show for a failed login or
// registration. Unknown account, wrong password and forbidden all collapse
// into one message so responses cannot be used to probe for accounts.
func AuthMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrNetwork), errors.Is(err, context.DeadlineExceeded):
		return UserMessage(err)
	case errors.Is(err, domain.ErrInvalidInput):
		return MsgInvalidInput
	case errors.Is(err, domain.ErrAlreadyExists):
		return MsgUserExists
	case errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, domain.ErrForbidden),
		errors.Is(err, domain.ErrNotFound):
		return MsgInvalidCredentials
	}
	return UserMessage(err)
}

// UserError carries a user-facing message while keeping the underlying
// failure reachable through errors.Is and errors.As.
type UserError struct {
	Message string
	Err     error
}

// NewUserError wraps err with msg.
func NewUserError(msg string, err error) *UserError {
	return &UserError{Message: msg, Err: err}
}

func (e *UserError) Error() string { return e.Message }

func (e *UserError) Unwrap() error { return e.Err }
