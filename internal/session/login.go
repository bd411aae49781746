package session

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/aelexs/todoclient/internal/domain"
	"github.com/aelexs/todoclient/internal/observability"
)

// Login authenticates with credentials and stores the new session. Invalid
// input fails with domain.ErrInvalidInput before any network call. On
// failure the stored session is left untouched and no retry is made.
func (c *Coordinator) Login(ctx context.Context, creds domain.Credentials) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "session.login")
	defer span.End()

	if err := creds.Validate(); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	res, err := c.api.Login(ctx, creds)
	return c.finishAuth(ctx, "login", res, err)
}

// Register creates an account and stores its session.
func (c *Coordinator) Register(ctx context.Context, reg domain.Registration) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "session.register")
	defer span.End()

	if err := reg.Validate(); err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	res, err := c.api.Register(ctx, reg)
	return c.finishAuth(ctx, "register", res, err)
}

func (c *Coordinator) finishAuth(ctx context.Context, flow string, res domain.AuthResult, err error) (*domain.User, error) {
	span := trace.SpanFromContext(ctx)
	logger := observability.WithTraceID(ctx, c.logger)

	if err != nil {
		loginTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("flow", flow),
			attribute.String("outcome", "failure"),
		))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.InfoContext(ctx, "authentication failed", "flow", flow, "status", domain.StatusCode(err))
		return nil, fmt.Errorf("%s: %w", flow, err)
	}

	user := res.User
	if user == nil {
		user = &domain.User{Email: c.inspector.Email(res.AccessToken)}
		res.User = user
	}

	c.mu.Lock()
	c.epoch++
	c.store.ClearAll(ctx)
	c.store.SaveAuthResult(ctx, res)
	c.mu.Unlock()

	loginTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("flow", flow),
		attribute.String("outcome", "success"),
	))
	logger.InfoContext(ctx, "session established", "flow", flow, "user_id", user.ID)
	return user, nil
}

// Logout ends the session. Local state is cleared before Logout returns,
// whatever happens on the network. The server is then notified in the
// background and any failure there is logged and dropped. Wait drains the
// notification.
func (c *Coordinator) Logout(ctx context.Context) {
	ctx, span := tracer.Start(ctx, "session.logout")
	defer span.End()

	c.mu.Lock()
	refreshToken, _ := c.store.RefreshToken(ctx)
	accessToken, _ := c.store.AccessToken(ctx)
	c.epoch++
	c.store.ClearAll(ctx)
	c.mu.Unlock()

	logoutTotal.Add(ctx, 1)

	if refreshToken == "" {
		return
	}

	authorization := ""
	if accessToken != "" {
		authorization = "Bearer " + accessToken
	}

	c.bgWG.Add(1)
	go func() {
		defer c.bgWG.Done()
		bgCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.logoutTimeout)
		defer cancel()

		if err := c.api.Logout(bgCtx, refreshToken, authorization); err != nil {
			observability.WithTraceID(bgCtx, c.logger).WarnContext(bgCtx, "server-side logout failed", "error", err)
		}
	}()
}
