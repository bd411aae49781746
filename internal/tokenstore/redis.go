package tokenstore

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	redisclient "github.com/aelexs/todoclient/internal/redis"
)

var _ Backend = (*RedisBackend)(nil)

// RedisBackend stores entries as plain Redis strings. A positive TTL
// expires entries that are not rewritten in time.
type RedisBackend struct {
	cmd redisclient.Cmdable
	ttl time.Duration
}

// NewRedisBackend creates a RedisBackend that uses cmd for Redis operations.
func NewRedisBackend(cmd redisclient.Cmdable, ttl time.Duration) *RedisBackend {
	return &RedisBackend{cmd: cmd, ttl: ttl}
}

func (r *RedisBackend) Get(ctx context.Context, key string) (string, bool, error) {
	ctx, span := tracer.Start(ctx, "redis.tokenstore.get")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "redis"),
		attribute.String("db.operation", "GET"),
	)

	v, err := r.cmd.Get(ctx, key).Result()
	if redisclient.IsNil(err) {
		return "", false, nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", false, fmt.Errorf("get %q: %w", key, err)
	}
	return v, true, nil
}

func (r *RedisBackend) Set(ctx context.Context, key, value string) error {
	ctx, span := tracer.Start(ctx, "redis.tokenstore.set")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "redis"),
		attribute.String("db.operation", "SET"),
	)

	if err := r.cmd.Set(ctx, key, value, r.ttl).Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

func (r *RedisBackend) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	ctx, span := tracer.Start(ctx, "redis.tokenstore.delete")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "redis"),
		attribute.String("db.operation", "DEL"),
	)

	if err := r.cmd.Del(ctx, keys...).Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("delete %v: %w", keys, err)
	}
	return nil
}
