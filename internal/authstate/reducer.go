package authstate

import "github.com/aelexs/todoclient/internal/domain"

// State is the process-wide view of authentication.
type State struct {
	User            *domain.User
	IsAuthenticated bool
	IsLoading       bool
	// Error is a user-facing message, empty when there is none.
	Error string
}

// ActionType names a state transition.
type ActionType string

const (
	ActionLoginStart      ActionType = "LOGIN_START"
	ActionLoginSuccess    ActionType = "LOGIN_SUCCESS"
	ActionLoginFailure    ActionType = "LOGIN_FAILURE"
	ActionRegisterStart   ActionType = "REGISTER_START"
	ActionRegisterSuccess ActionType = "REGISTER_SUCCESS"
	ActionRegisterFailure ActionType = "REGISTER_FAILURE"
	ActionLogout          ActionType = "LOGOUT"
	ActionRestoreSession  ActionType = "RESTORE_SESSION"
	ActionClearError      ActionType = "CLEAR_ERROR"
	ActionSetLoading      ActionType = "SET_LOADING"
)

// Action is one transition and its payload. Only the fields relevant to
// Type are read.
type Action struct {
	Type            ActionType
	User            *domain.User
	IsAuthenticated bool
	Error           string
	Loading         bool
}

// InitialState is the state before session restoration has run.
func InitialState() State {
	return State{IsLoading: true}
}

// Reduce returns the state after applying a to s. Unknown actions leave s
// unchanged.
func Reduce(s State, a Action) State {
	switch a.Type {
	case ActionLoginStart, ActionRegisterStart:
		s.IsLoading = true
		s.Error = ""
	case ActionLoginSuccess, ActionRegisterSuccess:
		s.User = a.User
		s.IsAuthenticated = true
		s.IsLoading = false
		s.Error = ""
	case ActionLoginFailure, ActionRegisterFailure:
		// The payload carries whatever session is still stored.
		s.User = a.User
		s.IsAuthenticated = a.IsAuthenticated
		s.IsLoading = false
		s.Error = a.Error
	case ActionLogout:
		s = State{}
	case ActionRestoreSession:
		s.User = a.User
		s.IsAuthenticated = a.IsAuthenticated
		s.IsLoading = false
		s.Error = ""
	case ActionClearError:
		s.Error = ""
	case ActionSetLoading:
		s.IsLoading = a.Loading
	}
	return s
}
