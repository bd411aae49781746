// Package tokenstore persists the three session fields (access token,
// refresh token, cached user) under namespaced keys in a pluggable
// key-value backend.
package tokenstore

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var tracer = otel.Tracer("tokenstore")

var backendErrorsTotal metric.Int64Counter

func init() {
	m := otel.Meter("tokenstore")

	backendErrorsTotal, _ = m.Int64Counter("tokenstore_backend_errors_total",
		metric.WithDescription("Total token store backend failures swallowed by the store"))
}

// Backend is the key-value persistence the Store writes through.
// Implementations must be safe for concurrent use.
type Backend interface {
	// Get returns the value stored under key. found is false when the key
	// does not exist.
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	// Delete removes keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
}
