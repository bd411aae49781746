package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Priority is the urgency of a todo item.
type Priority string

const (
	PriorityHigh   Priority = "HIGH"
	PriorityMedium Priority = "MEDIUM"
	PriorityLow    Priority = "LOW"
)

// ParsePriority accepts a priority name in any case. Empty means MEDIUM.
func ParsePriority(raw string) (Priority, error) {
	if raw == "" {
		return PriorityMedium, nil
	}
	p := Priority(strings.ToUpper(raw))
	if !p.IsValid() {
		return "", fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, raw)
	}
	return p, nil
}

// IsValid checks if a priority is one of the known values.
func (p Priority) IsValid() bool {
	return p == PriorityHigh || p == PriorityMedium || p == PriorityLow
}

// Todo is a backend todo item. Timestamps are carried as the server sent
// them.
type Todo struct {
	ID          TodoID   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Done        bool     `json:"done"`
	Priority    Priority `json:"priority,omitempty"`
	CreatedAt   string   `json:"createdAt,omitempty"`
	UpdatedAt   string   `json:"updatedAt,omitempty"`
}

// UnmarshalJSON accepts "completed" as an alias of "done"; some backend
// versions serialise the flag under that name.
func (t *Todo) UnmarshalJSON(data []byte) error {
	type plain Todo
	aux := struct {
		*plain
		Completed *bool `json:"completed"`
	}{plain: (*plain)(t)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.Completed != nil {
		t.Done = *aux.Completed
	}
	return nil
}

// TodoRequest is the body of a create or update call.
type TodoRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Done        *bool    `json:"done,omitempty"`
	Priority    Priority `json:"priority"`
}

// Normalize trims the title and applies the default priority.
func (r TodoRequest) Normalize() TodoRequest {
	r.Title = strings.TrimSpace(r.Title)
	if r.Priority == "" {
		r.Priority = PriorityMedium
	}
	return r
}

// Validate checks the request against the backend's field limits.
func (r TodoRequest) Validate() error {
	title := strings.TrimSpace(r.Title)
	if title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if len(title) > MaxTodoTitleLength {
		return fmt.Errorf("%w: title must not exceed %d characters", ErrInvalidInput, MaxTodoTitleLength)
	}
	if len(r.Description) > MaxTodoDescriptionLength {
		return fmt.Errorf("%w: description must not exceed %d characters", ErrInvalidInput, MaxTodoDescriptionLength)
	}
	if r.Priority != "" && !r.Priority.IsValid() {
		return fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, r.Priority)
	}
	return nil
}

// RequestFrom builds an update request that carries all of t's fields.
func RequestFrom(t Todo) TodoRequest {
	done := t.Done
	return TodoRequest{
		Title:       t.Title,
		Description: t.Description,
		Done:        &done,
		Priority:    t.Priority,
	}
}

// Statistics summarises a user's todos.
type Statistics struct {
	Total     int64 `json:"total"`
	Completed int64 `json:"completed"`
	Pending   int64 `json:"pending"`
}
