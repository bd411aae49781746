package tokenstore_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aelexs/todoclient/internal/domain"
	"github.com/aelexs/todoclient/internal/tokenstore"
)

// stubBackend implements tokenstore.Backend with function fields.
type stubBackend struct {
	getFn    func(ctx context.Context, key string) (string, bool, error)
	setFn    func(ctx context.Context, key, value string) error
	deleteFn func(ctx context.Context, keys ...string) error
}

func (s *stubBackend) Get(ctx context.Context, key string) (string, bool, error) {
	return s.getFn(ctx, key)
}

func (s *stubBackend) Set(ctx context.Context, key, value string) error {
	return s.setFn(ctx, key, value)
}

func (s *stubBackend) Delete(ctx context.Context, keys ...string) error {
	return s.deleteFn(ctx, keys...)
}

var _ tokenstore.Backend = (*stubBackend)(nil)

func failingBackend(err error) *stubBackend {
	return &stubBackend{
		getFn:    func(context.Context, string) (string, bool, error) { return "", false, err },
		setFn:    func(context.Context, string, string) error { return err },
		deleteFn: func(context.Context, ...string) error { return err },
	}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := tokenstore.New(tokenstore.Config{Backend: tokenstore.NewMemoryBackend()})

	store.SetAccessToken(ctx, "X")
	got, ok := store.AccessToken(ctx)
	require.True(t, ok)
	assert.Equal(t, "X", got)

	store.SetRefreshToken(ctx, "R")
	store.SetUser(ctx, &domain.User{ID: 1, Email: "a@b.com"})
	assert.True(t, store.IsAuthenticated(ctx))

	user, ok := store.User(ctx)
	require.True(t, ok)
	assert.Equal(t, int64(1), user.ID)
	assert.Equal(t, "a@b.com", user.Email)

	store.ClearAll(ctx)
	_, ok = store.AccessToken(ctx)
	assert.False(t, ok)
	_, ok = store.RefreshToken(ctx)
	assert.False(t, ok)
	_, ok = store.User(ctx)
	assert.False(t, ok)
	assert.False(t, store.IsAuthenticated(ctx))

	store.ClearAll(ctx)
	assert.False(t, store.IsAuthenticated(ctx))
}

func TestStoreEmptyValuesRemoveKeys(t *testing.T) {
	ctx := context.Background()
	backend := tokenstore.NewMemoryBackend()
	store := tokenstore.New(tokenstore.Config{Backend: backend})

	store.SetAccessToken(ctx, "X")
	store.SetRefreshToken(ctx, "R")
	store.SetUser(ctx, &domain.User{ID: 1})
	require.Equal(t, 3, backend.Len())

	store.SetAccessToken(ctx, "")
	store.SetRefreshToken(ctx, "")
	store.SetUser(ctx, nil)
	assert.Equal(t, 0, backend.Len())
}

func TestStoreIsAuthenticatedNeedsBothTokens(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		access  string
		refresh string
		want    bool
	}{
		{"both", "a", "r", true},
		{"access only", "a", "", false},
		{"refresh only", "", "r", false},
		{"neither", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := tokenstore.New(tokenstore.Config{})
			store.SetAccessToken(ctx, tt.access)
			store.SetRefreshToken(ctx, tt.refresh)
			assert.Equal(t, tt.want, store.IsAuthenticated(ctx))
		})
	}
}

func TestStoreNamespacedKeys(t *testing.T) {
	ctx := context.Background()
	backend := tokenstore.NewMemoryBackend()
	store := tokenstore.New(tokenstore.Config{Backend: backend})

	assert.Equal(t, []string{"todo_access_token", "todo_refresh_token", "todo_user"}, store.Keys())

	store.SetAccessToken(ctx, "X")
	v, ok, err := backend.Get(ctx, "todo_access_token")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "X", v)

	other := tokenstore.New(tokenstore.Config{Backend: backend, Namespace: "work"})
	_, ok = other.AccessToken(ctx)
	assert.False(t, ok, "namespaces must not collide")
}

func TestStoreSaveAuthResult(t *testing.T) {
	ctx := context.Background()
	store := tokenstore.New(tokenstore.Config{})

	store.SaveAuthResult(ctx, domain.AuthResult{
		AccessToken:  "a1",
		RefreshToken: "r1",
		User:         &domain.User{ID: 1, Email: "a@b.com"},
	})
	assert.True(t, store.IsAuthenticated(ctx))

	// A refresh response without rotation keeps the refresh token and user.
	store.SaveAuthResult(ctx, domain.AuthResult{AccessToken: "a2"})
	access, _ := store.AccessToken(ctx)
	refresh, _ := store.RefreshToken(ctx)
	user, ok := store.User(ctx)
	assert.Equal(t, "a2", access)
	assert.Equal(t, "r1", refresh)
	require.True(t, ok)
	assert.Equal(t, "a@b.com", user.Email)
}

func TestStoreUnreadableUser(t *testing.T) {
	ctx := context.Background()
	backend := tokenstore.NewMemoryBackend()
	require.NoError(t, backend.Set(ctx, "todo_user", "{not json"))

	store := tokenstore.New(tokenstore.Config{Backend: backend})
	u, ok := store.User(ctx)
	assert.False(t, ok)
	assert.Nil(t, u)
}

func TestStoreNeverFails(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	store := tokenstore.New(tokenstore.Config{
		Backend: failingBackend(errors.New("disk on fire")),
		Logger:  logger,
	})

	assert.NotPanics(t, func() {
		store.SetAccessToken(ctx, "X")
		store.SetRefreshToken(ctx, "")
		store.SetUser(ctx, &domain.User{ID: 1})
		store.ClearAll(ctx)
	})

	_, ok := store.AccessToken(ctx)
	assert.False(t, ok)
	assert.False(t, store.IsAuthenticated(ctx))

	assert.Contains(t, buf.String(), "token store backend failure")
	assert.Contains(t, buf.String(), "disk on fire")
	assert.Contains(t, buf.String(), `"level":"WARN"`)
}
