package cache

import (
	"context"
	"time"
)

// Cache is the contract for the key-value cache layer. It lets the
// Redis implementation be swapped for an in-memory one in tests.
type Cache interface {
	// Get reads the value at key and unmarshals it into dest.
	// found=false means a cache miss; dest is left untouched.
	Get(ctx context.Context, key string, dest interface{}) (bool, error)

	// Set stores value at key. ttl of 0 means no expiry.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Delete removes keys from the cache.
	Delete(ctx context.Context, keys ...string) error

	// DeletePattern removes every key matching a glob pattern.
	DeletePattern(ctx context.Context, pattern string) error

	// Ping verifies the connection.
	Ping(ctx context.Context) error
}
