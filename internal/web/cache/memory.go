package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryCache is a process-local cache with TTL support.
// Entries live until they expire, are deleted, or the process exits.
type MemoryCache struct {
	data   sync.Map
	config Config
	now    func() time.Time
	stop   context.CancelFunc
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// NewMemoryCache creates a new in-memory cache
func NewMemoryCache() *MemoryCache {
	return NewMemoryCacheWithConfig(DefaultConfig())
}

// NewMemoryCacheWithConfig creates a new in-memory cache with custom configuration
func NewMemoryCacheWithConfig(config Config) *MemoryCache {
	ctx, cancel := context.WithCancel(context.Background())
	mc := &MemoryCache{
		config: config,
		now:    time.Now,
		stop:   cancel,
	}

	go mc.sweep(ctx, time.Minute)

	return mc
}

// Get retrieves a value from the cache
func (m *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fullKey := m.config.Prefix + key
	raw, ok := m.data.Load(fullKey)
	if !ok {
		return nil, missing(key)
	}

	entry := raw.(memoryEntry)
	if entry.expired(m.now()) {
		m.data.Delete(fullKey)
		return nil, missing(key)
	}

	return entry.value, nil
}

// Set stores a value in the cache with a TTL
func (m *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if ttl == 0 {
		ttl = m.config.DefaultTTL
	}

	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = m.now().Add(ttl)
	}

	m.data.Store(m.config.Prefix+key, entry)
	return nil
}

// Delete removes the given keys from the cache
func (m *MemoryCache) Delete(ctx context.Context, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, key := range keys {
		m.data.Delete(m.config.Prefix + key)
	}
	return nil
}

// Clear removes every key under this cache's prefix and keyPrefix
func (m *MemoryCache) Clear(ctx context.Context, keyPrefix string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	scope := m.config.Prefix + keyPrefix
	m.data.Range(func(key, _ interface{}) bool {
		if strings.HasPrefix(key.(string), scope) {
			m.data.Delete(key)
		}
		return true
	})
	return nil
}

// Len returns the number of live entries
func (m *MemoryCache) Len() int {
	now := m.now()
	n := 0
	m.data.Range(func(_, value interface{}) bool {
		if !value.(memoryEntry).expired(now) {
			n++
		}
		return true
	})
	return n
}

// Close stops the background sweeper
func (m *MemoryCache) Close() error {
	if m.stop != nil {
		m.stop()
	}
	return nil
}

// sweep periodically drops expired entries
func (m *MemoryCache) sweep(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := m.now()
			m.data.Range(func(key, value interface{}) bool {
				if value.(memoryEntry).expired(now) {
					m.data.Delete(key)
				}
				return true
			})
		}
	}
}
