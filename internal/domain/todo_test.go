package domain_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aelexs/todoclient/internal/domain"
)

func TestParsePriority(t *testing.T) {
	tests := []struct {
		raw     string
		want    domain.Priority
		wantErr bool
	}{
		{"", domain.PriorityMedium, false},
		{"high", domain.PriorityHigh, false},
		{"LOW", domain.PriorityLow, false},
		{"Medium", domain.PriorityMedium, false},
		{"urgent", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := domain.ParsePriority(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTodoRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     domain.TodoRequest
		wantErr bool
	}{
		{"valid", domain.TodoRequest{Title: "buy milk", Priority: domain.PriorityLow}, false},
		{"default priority", domain.TodoRequest{Title: "buy milk"}, false},
		{"blank title", domain.TodoRequest{Title: "  "}, true},
		{"title too long", domain.TodoRequest{Title: strings.Repeat("x", domain.MaxTodoTitleLength+1)}, true},
		{"description too long", domain.TodoRequest{Title: "t", Description: strings.Repeat("x", domain.MaxTodoDescriptionLength+1)}, true},
		{"unknown priority", domain.TodoRequest{Title: "t", Priority: "URGENT"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidInput)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestTodoRequestNormalize(t *testing.T) {
	got := domain.TodoRequest{Title: "  buy milk "}.Normalize()

	assert.Equal(t, "buy milk", got.Title)
	assert.Equal(t, domain.PriorityMedium, got.Priority)
}

func TestTodoUnmarshal(t *testing.T) {
	t.Run("done field", func(t *testing.T) {
		var todo domain.Todo
		require.NoError(t, json.Unmarshal([]byte(`{"id":7,"title":"a","done":true,"priority":"HIGH"}`), &todo))

		assert.Equal(t, domain.TodoID(7), todo.ID)
		assert.True(t, todo.Done)
		assert.Equal(t, domain.PriorityHigh, todo.Priority)
	})

	t.Run("completed alias", func(t *testing.T) {
		var todo domain.Todo
		require.NoError(t, json.Unmarshal([]byte(`{"id":8,"title":"b","completed":true,"createdAt":"2026-01-01T00:00:00Z"}`), &todo))

		assert.True(t, todo.Done)
		assert.Equal(t, "2026-01-01T00:00:00Z", todo.CreatedAt)
	})
}

func TestRequestFrom(t *testing.T) {
	req := domain.RequestFrom(domain.Todo{ID: 1, Title: "a", Description: "d", Done: true, Priority: domain.PriorityLow})

	require.NotNil(t, req.Done)
	assert.True(t, *req.Done)
	assert.Equal(t, "a", req.Title)
	assert.Equal(t, "d", req.Description)
	assert.Equal(t, domain.PriorityLow, req.Priority)
}
