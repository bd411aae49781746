// Package domain contains the client's data model, error taxonomy and
// compiled defaults. It depends on nothing else in this module.
package domain

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// TodoID is the backend-assigned identifier of a todo item.
type TodoID int64

// ParseTodoID parses a decimal todo ID as typed by a user.
func ParseTodoID(raw string) (TodoID, error) {
	if raw == "" {
		return 0, ErrEmptyID
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid todo ID %q: %w", raw, ErrInvalidID)
	}
	return TodoID(n), nil
}

func (id TodoID) String() string { return strconv.FormatInt(int64(id), 10) }
func (id TodoID) IsZero() bool   { return id == 0 }

// NewRequestID returns a random correlation ID for an outbound request.
func NewRequestID() string {
	return uuid.NewString()
}

// IsRequestID reports whether raw is a well-formed request ID.
func IsRequestID(raw string) bool {
	_, err := uuid.Parse(raw)
	return err == nil
}
