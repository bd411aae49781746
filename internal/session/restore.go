package session

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/codes"

	"github.com/aelexs/todoclient/internal/domain"
	"github.com/aelexs/todoclient/internal/observability"
)

// RestoreSession validates a session persisted by an earlier process. It
// returns the cached user when both tokens are present and the access
// token is usable, refreshing it first if needed.
//
// A store holding only one of the two tokens is cleared and reported as
// domain.ErrNoSession. A failed validation clears the session too, unless
// it failed because ctx ended or the backend could not be reached.
func (c *Coordinator) RestoreSession(ctx context.Context) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "session.restore")
	defer span.End()
	logger := observability.WithTraceID(ctx, c.logger)

	_, hasAccess := c.store.AccessToken(ctx)
	_, hasRefresh := c.store.RefreshToken(ctx)
	switch {
	case !hasAccess && !hasRefresh:
		return nil, domain.ErrNoSession
	case !hasAccess || !hasRefresh:
		logger.InfoContext(ctx, "clearing partial session", "has_access_token", hasAccess, "has_refresh_token", hasRefresh)
		c.reset(ctx)
		return nil, domain.ErrNoSession
	}

	token, err := c.EnsureValidToken(ctx)
	if err != nil {
		if ctx.Err() == nil && !isTransportFailure(err) {
			c.reset(ctx)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("restore session: %w", err)
	}

	if user, ok := c.store.User(ctx); ok {
		return user, nil
	}
	// Older clients did not cache the profile; the token still names it.
	return &domain.User{Email: c.inspector.Email(token)}, nil
}

// KeepAlive calls EnsureValidToken every interval so a long-running
// process refreshes before its token lapses. It returns nil when ctx ends
// and the error once the session is gone. Refreshes that get no response
// are logged and retried on the next tick.
func (c *Coordinator) KeepAlive(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = domain.DefaultKeepAliveInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		if _, err := c.EnsureValidToken(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if isTransportFailure(err) {
				observability.WithTraceID(ctx, c.logger).WarnContext(ctx, "keepalive refresh got no response", "error", err)
				continue
			}
			observability.WithTraceID(ctx, c.logger).WarnContext(ctx, "keepalive stopped", "error", err)
			return fmt.Errorf("keepalive: %w", err)
		}
	}
}
