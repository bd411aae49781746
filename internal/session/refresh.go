package session

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	"github.com/aelexs/todoclient/internal/domain"
	"github.com/aelexs/todoclient/internal/observability"
)

// refreshOp is one outstanding refresh call. done is closed once token or
// err is set; every caller that joined observes the same outcome.
type refreshOp struct {
	done    chan struct{}
	token   string
	err     error
	waiters int
}

// EnsureValidToken returns an access token that is not about to expire,
// refreshing it first when needed.
//
// It fails with domain.ErrNoSession when no access token is stored, and
// with domain.ErrSessionExpired when the backend rejects a needed refresh.
// In the latter case the session has been cleared. A refresh that got no
// response fails with domain.ErrNetwork and leaves the session in place.
func (c *Coordinator) EnsureValidToken(ctx context.Context) (string, error) {
	token, ok := c.store.AccessToken(ctx)
	if !ok {
		return "", domain.ErrNoSession
	}
	if !c.inspector.NeedsRefresh(token) {
		return token, nil
	}

	fresh, err := c.refresh(ctx, token)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return "", err
		}
		if isTransportFailure(err) {
			return "", err
		}
		if errors.Is(err, domain.ErrNoRefreshToken) {
			// A lone access token is a broken session.
			c.reset(ctx)
		}
		return "", fmt.Errorf("%w: %w", domain.ErrSessionExpired, err)
	}
	return fresh, nil
}

// AuthHeader returns the Authorization header value for a valid token.
func (c *Coordinator) AuthHeader(ctx context.Context) (string, error) {
	token, err := c.EnsureValidToken(ctx)
	if err != nil {
		return "", err
	}
	return "Bearer " + token, nil
}

// RefreshToken exchanges the stored refresh token for a new access token.
// A call made while another refresh is in flight waits for and returns
// that refresh's outcome instead of issuing a second request.
//
// On backend rejection (any non-2xx) the session is cleared and the error
// wraps domain.ErrRefreshFailed. When no response arrives the error wraps
// domain.ErrNetwork and the session is kept. Cancelling ctx abandons the
// wait but not the refresh itself.
func (c *Coordinator) RefreshToken(ctx context.Context) (string, error) {
	return c.refresh(ctx, "")
}

// RefreshAfterReject refreshes after the backend rejected rejected. If the
// session already holds a different, usable token (another caller
// refreshed in the meantime) that token is returned without a new call.
func (c *Coordinator) RefreshAfterReject(ctx context.Context, rejected string) (string, error) {
	token, err := c.refresh(ctx, rejected)
	if errors.Is(err, domain.ErrNoRefreshToken) {
		c.reset(ctx)
	}
	return token, err
}

// RefreshInFlight reports whether a refresh call is outstanding.
func (c *Coordinator) RefreshInFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight != nil
}

func (c *Coordinator) refresh(ctx context.Context, stale string) (string, error) {
	c.mu.Lock()
	if op := c.inflight; op != nil {
		op.waiters++
		c.mu.Unlock()
		refreshJoinedTotal.Add(ctx, 1)
		return c.await(ctx, op)
	}

	if stale != "" {
		if current, ok := c.store.AccessToken(ctx); ok && current != stale && !c.inspector.NeedsRefresh(current) {
			c.mu.Unlock()
			return current, nil
		}
	}

	refreshToken, ok := c.store.RefreshToken(ctx)
	if !ok {
		c.mu.Unlock()
		return "", domain.ErrNoRefreshToken
	}

	op := &refreshOp{done: make(chan struct{}), waiters: 1}
	c.inflight = op
	epoch := c.epoch
	c.mu.Unlock()

	c.bgWG.Add(1)
	go c.runRefresh(context.WithoutCancel(ctx), op, refreshToken, epoch)

	return c.await(ctx, op)
}

func (c *Coordinator) await(ctx context.Context, op *refreshOp) (string, error) {
	select {
	case <-op.done:
		return op.token, op.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// runRefresh performs the network call for op and publishes its outcome.
// ctx must not be cancelled by any single caller.
func (c *Coordinator) runRefresh(ctx context.Context, op *refreshOp, refreshToken string, epoch uint64) {
	defer c.bgWG.Done()

	ctx, span := tracer.Start(ctx, "session.refresh")
	defer span.End()
	logger := observability.WithTraceID(ctx, c.logger)

	callCtx, cancel := context.WithTimeout(ctx, c.refreshTimeout)
	res, err := c.api.Refresh(callCtx, refreshToken)
	cancel()

	c.mu.Lock()
	defer c.mu.Unlock()

	var outcome string
	switch {
	case c.epoch != epoch:
		// Logout or a new login happened while the call was in flight; its
		// result must not resurrect or overwrite that session.
		outcome = "discarded"
		op.err = fmt.Errorf("%w: session changed during refresh", domain.ErrNoSession)
		logger.InfoContext(ctx, "discarding late refresh result")
	case err != nil && isTransportFailure(err):
		outcome = "network_error"
		op.err = err
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.WarnContext(ctx, "token refresh got no response, session kept", "error", err)
	case err != nil:
		outcome = "failure"
		c.epoch++
		c.store.ClearAll(ctx)
		op.err = fmt.Errorf("%w: %w", domain.ErrRefreshFailed, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.WarnContext(ctx, "token refresh failed, session cleared", "error", err)
	default:
		outcome = "success"
		c.store.SaveAuthResult(ctx, res)
		op.token = res.AccessToken
		logger.DebugContext(ctx, "token refreshed", "waiters", op.waiters)
	}

	span.SetAttributes(
		attribute.String("refresh.outcome", outcome),
		attribute.Int("refresh.waiters", op.waiters),
	)
	refreshTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))

	c.inflight = nil
	close(op.done)
}

// isTransportFailure reports whether err means the refresh call never got
// a response. Any HTTP response, even a non-2xx one, is a rejection.
func isTransportFailure(err error) bool {
	var re *domain.RequestError
	if errors.As(err, &re) {
		return false
	}
	return errors.Is(err, domain.ErrNetwork) || errors.Is(err, context.DeadlineExceeded)
}
