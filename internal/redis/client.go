// Package redis owns the go-redis dependency. Other packages talk to Redis
// through Cmdable and the helpers here.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cmdable is a type alias for redis.Cmdable so callers need not import
// go-redis directly.
type Cmdable = redis.Cmdable

// Config holds the parameters needed to connect to a Redis instance.
type Config struct {
	Addr     string
	Password string
	DB       int
	// Timeout bounds dialing, reads and writes.
	Timeout time.Duration
}

// Client wraps a go-redis client. RDB satisfies Cmdable.
type Client struct {
	RDB *redis.Client
}

// NewClient creates a new Redis client configured from cfg. No connection
// is made until the first command.
func NewClient(cfg Config) *Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.Timeout,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	})

	return &Client{RDB: rdb}
}

// Ping checks connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.RDB.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Close releases the underlying Redis connection.
func (c *Client) Close() error {
	return c.RDB.Close()
}

// IsNil reports whether err is the "key does not exist" reply.
func IsNil(err error) bool {
	return errors.Is(err, redis.Nil)
}
