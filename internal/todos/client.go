// Package todos is the authenticated resource client for the todo
// backend. Every call carries a bearer token from the session coordinator
// and is re-issued exactly once after a 401.
package todos

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	"github.com/aelexs/todoclient/internal/domain"
	"github.com/aelexs/todoclient/internal/observability"
	"github.com/aelexs/todoclient/internal/restclient"
	"github.com/aelexs/todoclient/internal/session"
)

const bearerPrefix = "Bearer "

var tracer = otel.Tracer("todos")

var retryTotal metric.Int64Counter

func init() {
	m := otel.Meter("todos")

	retryTotal, _ = m.Int64Counter("todos_retry_total",
		metric.WithDescription("Total resource calls re-issued after a 401"))
}

// Authorizer supplies bearer tokens. The *session.Coordinator satisfies it.
type Authorizer interface {
	AuthHeader(ctx context.Context) (string, error)
	RefreshAfterReject(ctx context.Context, rejected string) (string, error)
}

var _ Authorizer = (*session.Coordinator)(nil)

// doer is the subset of restclient.Client used here.
type doer interface {
	Do(ctx context.Context, req restclient.Request, out any) error
}

var _ doer = (*restclient.Client)(nil)

// Config holds configuration for creating a Client.
type Config struct {
	REST    *restclient.Client
	Session Authorizer
	// TodosPath defaults to /api/v1/todos.
	TodosPath string
	// AuthPath defaults to /api/v1/auth. Me is served under it.
	AuthPath string
	Logger   *slog.Logger
}

// Client performs todo CRUD calls on behalf of the current session.
type Client struct {
	rest      doer
	auth      Authorizer
	todosPath string
	authPath  string
	logger    *slog.Logger
}

// New creates a Client.
func New(cfg Config) *Client {
	todosPath := cfg.TodosPath
	if todosPath == "" {
		todosPath = domain.DefaultTodosPath
	}
	authPath := cfg.AuthPath
	if authPath == "" {
		authPath = domain.DefaultAuthPath
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		rest:      cfg.REST,
		auth:      cfg.Session,
		todosPath: todosPath,
		authPath:  authPath,
		logger:    logger,
	}
}

// List returns the caller's todos.
func (c *Client) List(ctx context.Context) ([]domain.Todo, error) {
	var out []domain.Todo
	err := c.do(ctx, restclient.Request{
		Op:     "todos.list",
		Method: http.MethodGet,
		Path:   c.todosPath,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns one todo.
func (c *Client) Get(ctx context.Context, id domain.TodoID) (domain.Todo, error) {
	if id.IsZero() {
		return domain.Todo{}, fmt.Errorf("todos.get: %w", domain.ErrEmptyID)
	}
	var out domain.Todo
	err := c.do(ctx, restclient.Request{
		Op:     "todos.get",
		Method: http.MethodGet,
		Path:   c.todoPath(id),
	}, &out)
	return out, err
}

// Create adds a todo. The request is validated before any network call.
func (c *Client) Create(ctx context.Context, req domain.TodoRequest) (domain.Todo, error) {
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		return domain.Todo{}, fmt.Errorf("todos.create: %w", err)
	}
	var out domain.Todo
	err := c.do(ctx, restclient.Request{
		Op:     "todos.create",
		Method: http.MethodPost,
		Path:   c.todosPath,
		Body:   req,
	}, &out)
	return out, err
}

// Update replaces a todo's fields.
func (c *Client) Update(ctx context.Context, id domain.TodoID, req domain.TodoRequest) (domain.Todo, error) {
	if id.IsZero() {
		return domain.Todo{}, fmt.Errorf("todos.update: %w", domain.ErrEmptyID)
	}
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		return domain.Todo{}, fmt.Errorf("todos.update: %w", err)
	}
	var out domain.Todo
	err := c.do(ctx, restclient.Request{
		Op:     "todos.update",
		Method: http.MethodPut,
		Path:   c.todoPath(id),
		Body:   req,
	}, &out)
	return out, err
}

// Toggle flips a todo's done flag and returns the result.
func (c *Client) Toggle(ctx context.Context, id domain.TodoID) (domain.Todo, error) {
	if id.IsZero() {
		return domain.Todo{}, fmt.Errorf("todos.toggle: %w", domain.ErrEmptyID)
	}
	var out domain.Todo
	err := c.do(ctx, restclient.Request{
		Op:     "todos.toggle",
		Method: http.MethodPatch,
		Path:   path.Join(c.todoPath(id), "toggle"),
	}, &out)
	return out, err
}

// Delete removes a todo.
func (c *Client) Delete(ctx context.Context, id domain.TodoID) error {
	if id.IsZero() {
		return fmt.Errorf("todos.delete: %w", domain.ErrEmptyID)
	}
	return c.do(ctx, restclient.Request{
		Op:     "todos.delete",
		Method: http.MethodDelete,
		Path:   c.todoPath(id),
	}, nil)
}

// Statistics returns the caller's todo counts.
func (c *Client) Statistics(ctx context.Context) (domain.Statistics, error) {
	var out domain.Statistics
	err := c.do(ctx, restclient.Request{
		Op:     "todos.statistics",
		Method: http.MethodGet,
		Path:   path.Join(c.todosPath, "statistics"),
	}, &out)
	return out, err
}

// Me returns the backend's view of the session owner.
func (c *Client) Me(ctx context.Context) (domain.User, error) {
	var out domain.User
	err := c.do(ctx, restclient.Request{
		Op:     "auth.me",
		Method: http.MethodGet,
		Path:   path.Join(c.authPath, "me"),
	}, &out)
	return out, err
}

func (c *Client) todoPath(id domain.TodoID) string {
	return path.Join(c.todosPath, id.String())
}

// do issues req with the session's bearer token. A 401 triggers one
// refresh and one re-issue of the identical request; whatever the second
// attempt returns is final.
func (c *Client) do(ctx context.Context, req restclient.Request, out any) error {
	ctx, span := tracer.Start(ctx, req.Op)
	defer span.End()
	span.SetAttributes(
		attribute.String("http.request.method", req.Method),
		attribute.String("url.path", req.Path),
	)

	err := c.attempt(ctx, req, out)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (c *Client) attempt(ctx context.Context, req restclient.Request, out any) error {
	header, err := c.auth.AuthHeader(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", req.Op, err)
	}
	req.Authorization = header

	err = c.rest.Do(ctx, req, out)
	if domain.StatusCode(err) != http.StatusUnauthorized {
		return err
	}

	retryTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("op", req.Op)))
	observability.WithTraceID(ctx, c.logger).DebugContext(ctx, "token rejected, refreshing once", "op", req.Op)

	token, rerr := c.auth.RefreshAfterReject(ctx, strings.TrimPrefix(header, bearerPrefix))
	if rerr != nil {
		if ctx.Err() != nil || errors.Is(rerr, domain.ErrNetwork) {
			return fmt.Errorf("%s: %w", req.Op, rerr)
		}
		return fmt.Errorf("%s: %w: %w", req.Op, domain.ErrSessionExpired, rerr)
	}
	req.Authorization = bearerPrefix + token
	return c.rest.Do(ctx, req, out)
}
