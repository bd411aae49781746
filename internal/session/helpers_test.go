package session_test

import (
	"context"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aelexs/todoclient/internal/auth"
	"github.com/aelexs/todoclient/internal/auth/authtest"
	"github.com/aelexs/todoclient/internal/domain"
	"github.com/aelexs/todoclient/internal/domain/domaintest"
	"github.com/aelexs/todoclient/internal/session"
	"github.com/aelexs/todoclient/internal/tokenstore"
)

var testStart = time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

var testUser = domain.User{ID: 7, Username: "alice", Email: "alice@example.com"}

var errRejected = &domain.RequestError{
	Op:         "auth.refresh",
	StatusCode: http.StatusUnauthorized,
	Message:    "Invalid refresh token",
	Kind:       domain.ErrUnauthorized,
}

// stubAuthAPI implements session.AuthAPI with function fields.
type stubAuthAPI struct {
	registerFn func(ctx context.Context, reg domain.Registration) (domain.AuthResult, error)
	loginFn    func(ctx context.Context, creds domain.Credentials) (domain.AuthResult, error)
	refreshFn  func(ctx context.Context, refreshToken string) (domain.AuthResult, error)
	logoutFn   func(ctx context.Context, refreshToken, authorization string) error
}

func (s *stubAuthAPI) Register(ctx context.Context, reg domain.Registration) (domain.AuthResult, error) {
	if s.registerFn != nil {
		return s.registerFn(ctx, reg)
	}
	return domain.AuthResult{}, errRejected
}

func (s *stubAuthAPI) Login(ctx context.Context, creds domain.Credentials) (domain.AuthResult, error) {
	if s.loginFn != nil {
		return s.loginFn(ctx, creds)
	}
	return domain.AuthResult{}, errRejected
}

func (s *stubAuthAPI) Refresh(ctx context.Context, refreshToken string) (domain.AuthResult, error) {
	if s.refreshFn != nil {
		return s.refreshFn(ctx, refreshToken)
	}
	return domain.AuthResult{}, errRejected
}

func (s *stubAuthAPI) Logout(ctx context.Context, refreshToken, authorization string) error {
	if s.logoutFn != nil {
		return s.logoutFn(ctx, refreshToken, authorization)
	}
	return nil
}

type fixture struct {
	clock  *domaintest.FakeClock
	minter *authtest.Minter
	store  *tokenstore.Store
	api    *stubAuthAPI
	coord  *session.Coordinator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clock := domaintest.NewFakeClock(testStart)
	f := &fixture{
		clock:  clock,
		minter: authtest.NewMinter(authtest.MinterConfig{Clock: clock}),
		store:  tokenstore.New(tokenstore.Config{Logger: slog.New(slog.DiscardHandler)}),
		api:    &stubAuthAPI{},
	}
	f.coord = session.NewCoordinator(session.Config{
		API:            f.api,
		Store:          f.store,
		Inspector:      auth.NewInspector(auth.InspectorConfig{Clock: clock}),
		Logger:         slog.New(slog.DiscardHandler),
		RefreshTimeout: time.Second,
		LogoutTimeout:  time.Second,
	})
	t.Cleanup(f.coord.Wait)
	return f
}

// mint returns an access token for testUser that expires after ttl.
func (f *fixture) mint(t *testing.T, ttl time.Duration) string {
	t.Helper()
	res, err := f.minter.MintWithTTL(testUser, 0, ttl)
	require.NoError(t, err)
	return res.Token
}

// seed stores a complete session whose access token expires after ttl.
func (f *fixture) seed(t *testing.T, ttl time.Duration) string {
	t.Helper()
	access := f.mint(t, ttl)
	user := testUser
	f.store.SaveAuthResult(context.Background(), domain.AuthResult{
		AccessToken:  access,
		RefreshToken: "refresh-1",
		User:         &user,
	})
	return access
}

// authResult is a successful refresh or login response.
func (f *fixture) authResult(t *testing.T, refresh string) domain.AuthResult {
	t.Helper()
	user := testUser
	return domain.AuthResult{
		AccessToken:  f.mint(t, 15*time.Minute),
		RefreshToken: refresh,
		TokenType:    "Bearer",
		User:         &user,
	}
}
