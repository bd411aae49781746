// Package authstate distributes authentication state to any number of
// subscribers. State only changes through the Distributor's actions, which
// drive the session coordinator and reduce its outcome into a new State.
package authstate

import (
	"context"
	"log/slog"
	"sync"

	"github.com/aelexs/todoclient/internal/domain"
	"github.com/aelexs/todoclient/internal/errmap"
	"github.com/aelexs/todoclient/internal/observability"
	"github.com/aelexs/todoclient/internal/session"
)

// Session is the coordinator surface the distributor drives. The
// *session.Coordinator satisfies it.
type Session interface {
	Login(ctx context.Context, creds domain.Credentials) (*domain.User, error)
	Register(ctx context.Context, reg domain.Registration) (*domain.User, error)
	Logout(ctx context.Context)
	RestoreSession(ctx context.Context) (*domain.User, error)
	IsAuthenticated(ctx context.Context) bool
	CurrentUser(ctx context.Context) (*domain.User, bool)
}

var _ Session = (*session.Coordinator)(nil)

// Config holds configuration for creating a Distributor.
type Config struct {
	Session Session
	Logger  *slog.Logger
}

// Distributor owns the authentication State. It is safe for concurrent
// use.
type Distributor struct {
	session Session
	logger  *slog.Logger

	mu    sync.Mutex
	state State
	subs  map[*subscription]struct{}

	restoreOnce sync.Once
}

type subscription struct {
	ch chan State
}

// New creates a Distributor in the loading state.
func New(cfg Config) *Distributor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Distributor{
		session: cfg.Session,
		logger:  logger,
		state:   InitialState(),
		subs:    make(map[*subscription]struct{}),
	}
}

// State returns the current state.
func (d *Distributor) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Subscribe returns a channel that always holds the latest state. The
// current state is available immediately; intermediate states may be
// skipped by a slow reader. The channel is closed by the returned cancel
// function.
func (d *Distributor) Subscribe() (<-chan State, func()) {
	sub := &subscription{ch: make(chan State, 1)}

	d.mu.Lock()
	sub.ch <- d.state
	d.subs[sub] = struct{}{}
	d.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			d.mu.Lock()
			defer d.mu.Unlock()
			delete(d.subs, sub)
			close(sub.ch)
		})
	}
	return sub.ch, cancel
}

// Restore validates any persisted session. It runs once per Distributor;
// later calls return the current state without touching the session.
// IsLoading is false once the first call returns.
func (d *Distributor) Restore(ctx context.Context) State {
	d.restoreOnce.Do(func() {
		action := Action{Type: ActionRestoreSession}
		defer func() { d.dispatch(ctx, action) }()

		user, err := d.session.RestoreSession(ctx)
		if err != nil {
			observability.WithTraceID(ctx, d.logger).DebugContext(ctx, "no session restored", "error", err)
			return
		}
		action.User = user
		action.IsAuthenticated = true
	})
	return d.State()
}

// Login authenticates and publishes the outcome. A failure is returned
// as an *errmap.UserError whose text is safe to show. A failed attempt
// does not end a session that is already stored, and the published state
// keeps reporting it.
func (d *Distributor) Login(ctx context.Context, creds domain.Credentials) (*domain.User, error) {
	d.dispatch(ctx, Action{Type: ActionLoginStart})

	user, err := d.session.Login(ctx, creds)
	if err != nil {
		return nil, d.fail(ctx, ActionLoginFailure, err)
	}
	d.dispatch(ctx, Action{Type: ActionLoginSuccess, User: user})
	return user, nil
}

// Register creates an account and publishes the outcome.
func (d *Distributor) Register(ctx context.Context, reg domain.Registration) (*domain.User, error) {
	d.dispatch(ctx, Action{Type: ActionRegisterStart})

	user, err := d.session.Register(ctx, reg)
	if err != nil {
		return nil, d.fail(ctx, ActionRegisterFailure, err)
	}
	d.dispatch(ctx, Action{Type: ActionRegisterSuccess, User: user})
	return user, nil
}

// Logout ends the session. It cannot fail.
func (d *Distributor) Logout(ctx context.Context) {
	d.dispatch(ctx, Action{Type: ActionSetLoading, Loading: true})
	d.session.Logout(ctx)
	d.dispatch(ctx, Action{Type: ActionLogout})
}

// ClearError drops the current error message.
func (d *Distributor) ClearError(ctx context.Context) {
	d.dispatch(ctx, Action{Type: ActionClearError})
}

// fail publishes a failed login or registration together with the session
// that is still stored, and returns the error to hand to the caller.
func (d *Distributor) fail(ctx context.Context, t ActionType, err error) error {
	msg := errmap.AuthMessage(err)
	action := Action{Type: t, Error: msg}
	if d.session.IsAuthenticated(ctx) {
		action.IsAuthenticated = true
		action.User, _ = d.session.CurrentUser(ctx)
	}
	d.dispatch(ctx, action)
	return errmap.NewUserError(msg, err)
}

func (d *Distributor) dispatch(ctx context.Context, a Action) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.state = Reduce(d.state, a)
	for sub := range d.subs {
		select {
		case <-sub.ch:
		default:
		}
		sub.ch <- d.state
	}

	d.logger.DebugContext(ctx, "auth state changed",
		"action", string(a.Type),
		"authenticated", d.state.IsAuthenticated,
		"loading", d.state.IsLoading,
	)
}
