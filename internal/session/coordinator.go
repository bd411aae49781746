// Package session owns the client-side session lifecycle: login, register
// and logout, proactive token refresh, and single-flight refresh
// de-duplication across concurrent callers.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/aelexs/todoclient/internal/auth"
	"github.com/aelexs/todoclient/internal/authapi"
	"github.com/aelexs/todoclient/internal/domain"
	"github.com/aelexs/todoclient/internal/tokenstore"
)

var tracer = otel.Tracer("session")

var (
	refreshTotal       metric.Int64Counter
	refreshJoinedTotal metric.Int64Counter
	logoutTotal        metric.Int64Counter
	loginTotal         metric.Int64Counter
)

func init() {
	m := otel.Meter("session")

	refreshTotal, _ = m.Int64Counter("session_refresh_total",
		metric.WithDescription("Total refresh network calls by outcome"))
	refreshJoinedTotal, _ = m.Int64Counter("session_refresh_joined_total",
		metric.WithDescription("Total callers that joined an in-flight refresh"))
	logoutTotal, _ = m.Int64Counter("session_logout_total",
		metric.WithDescription("Total logouts"))
	loginTotal, _ = m.Int64Counter("session_login_total",
		metric.WithDescription("Total login and register attempts by outcome"))
}

// AuthAPI is the backend the coordinator authenticates against. The
// *authapi.Client satisfies it.
type AuthAPI interface {
	Register(ctx context.Context, reg domain.Registration) (domain.AuthResult, error)
	Login(ctx context.Context, creds domain.Credentials) (domain.AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (domain.AuthResult, error)
	Logout(ctx context.Context, refreshToken, authorization string) error
}

// Store is the session persistence the coordinator reads through. The
// *tokenstore.Store satisfies it.
type Store interface {
	AccessToken(ctx context.Context) (string, bool)
	RefreshToken(ctx context.Context) (string, bool)
	User(ctx context.Context) (*domain.User, bool)
	SaveAuthResult(ctx context.Context, res domain.AuthResult)
	ClearAll(ctx context.Context)
	IsAuthenticated(ctx context.Context) bool
}

var (
	_ AuthAPI = (*authapi.Client)(nil)
	_ Store   = (*tokenstore.Store)(nil)
)

// Config holds the dependencies for Coordinator.
type Config struct {
	API       AuthAPI
	Store     Store
	// Inspector decides when a token is due for refresh. Defaults to an
	// inspector with a 5 minute threshold.
	Inspector *auth.Inspector
	Logger    *slog.Logger
	// RefreshTimeout bounds the refresh network call. Defaults to the
	// request timeout.
	RefreshTimeout time.Duration
	// LogoutTimeout bounds the best-effort server-side logout call.
	LogoutTimeout time.Duration
}

// Coordinator is the single authority that mutates the session. At most one
// refresh network call is in flight at any time.
type Coordinator struct {
	api            AuthAPI
	store          Store
	inspector      *auth.Inspector
	logger         *slog.Logger
	refreshTimeout time.Duration
	logoutTimeout  time.Duration

	mu sync.Mutex
	// inflight is non-nil exactly while a refresh call is outstanding.
	inflight *refreshOp
	// epoch changes whenever the session is replaced or destroyed. A
	// refresh only applies its result if the epoch is unchanged.
	epoch uint64

	bgWG sync.WaitGroup // owns refresh and logout goroutines
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(cfg Config) *Coordinator {
	inspector := cfg.Inspector
	if inspector == nil {
		inspector = auth.NewInspector(auth.InspectorConfig{})
	}
	refreshTimeout := cfg.RefreshTimeout
	if refreshTimeout <= 0 {
		refreshTimeout = domain.DefaultRequestTimeout
	}
	logoutTimeout := cfg.LogoutTimeout
	if logoutTimeout <= 0 {
		logoutTimeout = domain.DefaultLogoutTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		api:            cfg.API,
		store:          cfg.Store,
		inspector:      inspector,
		logger:         logger,
		refreshTimeout: refreshTimeout,
		logoutTimeout:  logoutTimeout,
	}
}

// Wait blocks until all background goroutines owned by the coordinator
// complete. Call it during shutdown.
func (c *Coordinator) Wait() {
	c.bgWG.Wait()
}

// IsAuthenticated reports whether both tokens are stored.
func (c *Coordinator) IsAuthenticated(ctx context.Context) bool {
	return c.store.IsAuthenticated(ctx)
}

// CurrentUser returns the cached user profile.
func (c *Coordinator) CurrentUser(ctx context.Context) (*domain.User, bool) {
	return c.store.User(ctx)
}

// reset destroys the session and invalidates any in-flight refresh.
func (c *Coordinator) reset(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	c.store.ClearAll(ctx)
}
