package tokenstore

import (
	"context"
	"encoding/json"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/aelexs/todoclient/internal/domain"
)

// Key suffixes appended to the store namespace.
const (
	accessTokenSuffix  = "_access_token"
	refreshTokenSuffix = "_refresh_token"
	userSuffix         = "_user"
)

// Store persists the session. It never returns errors: backend failures are
// logged, counted, and reported as "absent" on reads.
type Store struct {
	backend Backend
	logger  *slog.Logger

	accessKey  string
	refreshKey string
	userKey    string
}

// Config holds configuration for creating a Store.
type Config struct {
	Backend Backend
	// Namespace prefixes every key. Defaults to "todo".
	Namespace string
	Logger    *slog.Logger
}

// New creates a Store. A nil Backend selects an in-memory one.
func New(cfg Config) *Store {
	backend := cfg.Backend
	if backend == nil {
		backend = NewMemoryBackend()
	}
	ns := cfg.Namespace
	if ns == "" {
		ns = domain.DefaultStoreNamespace
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		backend:    backend,
		logger:     logger,
		accessKey:  ns + accessTokenSuffix,
		refreshKey: ns + refreshTokenSuffix,
		userKey:    ns + userSuffix,
	}
}

// Keys returns the three backend keys in access, refresh, user order.
func (s *Store) Keys() []string {
	return []string{s.accessKey, s.refreshKey, s.userKey}
}

// AccessToken returns the stored access token.
func (s *Store) AccessToken(ctx context.Context) (string, bool) {
	return s.get(ctx, s.accessKey)
}

// RefreshToken returns the stored refresh token.
func (s *Store) RefreshToken(ctx context.Context) (string, bool) {
	return s.get(ctx, s.refreshKey)
}

// User returns the cached user profile. An unreadable entry is reported
// as absent.
func (s *Store) User(ctx context.Context) (*domain.User, bool) {
	raw, ok := s.get(ctx, s.userKey)
	if !ok {
		return nil, false
	}
	var u domain.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		s.logger.WarnContext(ctx, "cached user is unreadable", "key", s.userKey, "error", err)
		return nil, false
	}
	return &u, true
}

// SetAccessToken stores token. An empty token removes the entry.
func (s *Store) SetAccessToken(ctx context.Context, token string) {
	s.put(ctx, s.accessKey, token)
}

// SetRefreshToken stores token. An empty token removes the entry.
func (s *Store) SetRefreshToken(ctx context.Context, token string) {
	s.put(ctx, s.refreshKey, token)
}

// SetUser caches u. A nil user removes the entry.
func (s *Store) SetUser(ctx context.Context, u *domain.User) {
	if u == nil {
		s.put(ctx, s.userKey, "")
		return
	}
	data, err := json.Marshal(u)
	if err != nil {
		s.logger.WarnContext(ctx, "encode user", "error", err)
		return
	}
	s.put(ctx, s.userKey, string(data))
}

// SaveAuthResult stores the tokens and user of a login, register or
// refresh response. The refresh token and user are only replaced when the
// response carries them.
func (s *Store) SaveAuthResult(ctx context.Context, res domain.AuthResult) {
	s.SetAccessToken(ctx, res.AccessToken)
	if res.RefreshToken != "" {
		s.SetRefreshToken(ctx, res.RefreshToken)
	}
	if res.User != nil {
		s.SetUser(ctx, res.User)
	}
}

// ClearAll removes all three entries. It is idempotent.
func (s *Store) ClearAll(ctx context.Context) {
	ctx, span := tracer.Start(ctx, "tokenstore.clear_all")
	defer span.End()

	if err := s.backend.Delete(ctx, s.Keys()...); err != nil {
		s.fail(ctx, span, "clear", s.accessKey, err)
	}
}

// IsAuthenticated reports whether both tokens are present. Expiry is not
// checked.
func (s *Store) IsAuthenticated(ctx context.Context) bool {
	_, hasAccess := s.AccessToken(ctx)
	_, hasRefresh := s.RefreshToken(ctx)
	return hasAccess && hasRefresh
}

func (s *Store) get(ctx context.Context, key string) (string, bool) {
	ctx, span := tracer.Start(ctx, "tokenstore.get", trace.WithAttributes(attribute.String("key", key)))
	defer span.End()

	v, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		s.fail(ctx, span, "get", key, err)
		return "", false
	}
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func (s *Store) put(ctx context.Context, key, value string) {
	ctx, span := tracer.Start(ctx, "tokenstore.put", trace.WithAttributes(attribute.String("key", key)))
	defer span.End()

	var err error
	op := "set"
	if value == "" {
		op = "delete"
		err = s.backend.Delete(ctx, key)
	} else {
		err = s.backend.Set(ctx, key, value)
	}
	if err != nil {
		s.fail(ctx, span, op, key, err)
	}
}

func (s *Store) fail(ctx context.Context, span trace.Span, op, key string, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	backendErrorsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
	s.logger.WarnContext(ctx, "token store backend failure",
		"op", op,
		"key", key,
		"error", err,
	)
}
