package port

import (
	"context"
	"errors"
	"time"
)

// ErrMiss signals a cache miss in a typed way so callers can tell misses
// apart from transport errors.
var ErrMiss = errors.New("cache: miss")

// Cache is the minimal key-value contract used by the application. Values
// are strings to keep the port free of serialization concerns.
// Implementations must be concurrency-safe and context-aware.
type Cache interface {
	// Get fetches the value for key, ErrMiss when absent.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value with the given TTL. Zero or negative TTL means no
	// expiration.
	Set(ctx context.Context, key string, value string, ttl time.Duration) error

	// Del removes keys and returns how many were removed.
	Del(ctx context.Context, keys ...string) (int64, error)

	// Ping verifies connectivity with the backend.
	Ping(ctx context.Context) error

	// Close releases held resources.
	Close() error
}
