package authstate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aelexs/todoclient/internal/authstate"
	"github.com/aelexs/todoclient/internal/domain"
)

func TestReduce(t *testing.T) {
	alice := &domain.User{ID: 1, Email: "a@b.com"}
	signedIn := authstate.State{User: alice, IsAuthenticated: true}

	tests := []struct {
		name   string
		from   authstate.State
		action authstate.Action
		want   authstate.State
	}{
		{
			name:   "login start clears error",
			from:   authstate.State{Error: "old"},
			action: authstate.Action{Type: authstate.ActionLoginStart},
			want:   authstate.State{IsLoading: true},
		},
		{
			name:   "register start keeps user",
			from:   signedIn,
			action: authstate.Action{Type: authstate.ActionRegisterStart},
			want:   authstate.State{User: alice, IsAuthenticated: true, IsLoading: true},
		},
		{
			name:   "login success",
			from:   authstate.State{IsLoading: true},
			action: authstate.Action{Type: authstate.ActionLoginSuccess, User: alice},
			want:   signedIn,
		},
		{
			name:   "register failure",
			from:   authstate.State{IsLoading: true},
			action: authstate.Action{Type: authstate.ActionRegisterFailure, Error: "taken"},
			want:   authstate.State{Error: "taken"},
		},
		{
			name:   "login failure drops user",
			from:   authstate.State{User: alice, IsAuthenticated: true, IsLoading: true},
			action: authstate.Action{Type: authstate.ActionLoginFailure, Error: "nope"},
			want:   authstate.State{Error: "nope"},
		},
		{
			name:   "login failure with a stored session",
			from:   authstate.State{User: alice, IsAuthenticated: true, IsLoading: true},
			action: authstate.Action{Type: authstate.ActionLoginFailure, User: alice, IsAuthenticated: true, Error: "nope"},
			want:   authstate.State{User: alice, IsAuthenticated: true, Error: "nope"},
		},
		{
			name:   "logout",
			from:   authstate.State{User: alice, IsAuthenticated: true, IsLoading: true, Error: "x"},
			action: authstate.Action{Type: authstate.ActionLogout},
			want:   authstate.State{},
		},
		{
			name:   "restore authenticated",
			from:   authstate.InitialState(),
			action: authstate.Action{Type: authstate.ActionRestoreSession, User: alice, IsAuthenticated: true},
			want:   signedIn,
		},
		{
			name:   "restore unauthenticated",
			from:   authstate.InitialState(),
			action: authstate.Action{Type: authstate.ActionRestoreSession},
			want:   authstate.State{},
		},
		{
			name:   "clear error",
			from:   authstate.State{Error: "x", IsLoading: true},
			action: authstate.Action{Type: authstate.ActionClearError},
			want:   authstate.State{IsLoading: true},
		},
		{
			name:   "set loading",
			from:   signedIn,
			action: authstate.Action{Type: authstate.ActionSetLoading, Loading: true},
			want:   authstate.State{User: alice, IsAuthenticated: true, IsLoading: true},
		},
		{
			name:   "unknown action",
			from:   signedIn,
			action: authstate.Action{Type: "BOGUS"},
			want:   signedIn,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, authstate.Reduce(tt.from, tt.action))
		})
	}
}

func TestInitialStateIsLoading(t *testing.T) {
	s := authstate.InitialState()

	assert.True(t, s.IsLoading)
	assert.False(t, s.IsAuthenticated)
	assert.Nil(t, s.User)
}
