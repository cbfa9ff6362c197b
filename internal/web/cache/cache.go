// Package cache provides the byte-level cache backends behind the metadata
// cache: an in-process map with TTLs and a Redis client.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrMiss is returned by Get when a key is absent or expired
var ErrMiss = errors.New("cache miss")

// Cache stores opaque values under string keys. Implementations scope every
// key by their configured prefix, so several caches can share one backend.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value. A zero ttl uses the configured default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	Delete(ctx context.Context, keys ...string) error

	// Clear removes every key starting with the cache prefix followed by
	// keyPrefix. An empty keyPrefix clears the whole cache.
	Clear(ctx context.Context, keyPrefix string) error

	Close() error
}

// Config holds the settings shared by all backends
type Config struct {
	// DefaultTTL is used when Set is called with a zero TTL.
	// A negative value stores entries without expiry.
	DefaultTTL time.Duration
	Prefix     string
}

// DefaultConfig matches the cache section defaults of metastore.yml
func DefaultConfig() Config {
	return Config{
		DefaultTTL: 10 * time.Minute,
		Prefix:     "metastore:",
	}
}

func missing(key string) error {
	return fmt.Errorf("%w: %s", ErrMiss, key)
}

// IsMiss reports whether err is a cache miss
func IsMiss(err error) bool {
	return errors.Is(err, ErrMiss)
}
