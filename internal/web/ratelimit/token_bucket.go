package ratelimit

import (
	"context"
	"sync"
	"time"
)

// TokenBucket implements an in-memory token bucket rate limiter.
// Each key holds up to Capacity tokens, refilled evenly over Window.
type TokenBucket struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	capacity int
	window   time.Duration
	now      func() time.Time
	done     chan struct{}
	closed   sync.Once
}

type bucket struct {
	tokens     int
	lastRefill time.Time
}

// TokenBucketConfig holds configuration for the token bucket rate limiter
type TokenBucketConfig struct {
	// Capacity is the maximum number of tokens in the bucket
	Capacity int
	// Window is the time it takes to refill an empty bucket
	Window time.Duration
	// CleanupInterval is how often idle buckets are dropped; zero disables it
	CleanupInterval time.Duration
	// Now overrides the clock in tests
	Now func() time.Time
}

// NewTokenBucket creates a token bucket rate limiter
func NewTokenBucket(config TokenBucketConfig) *TokenBucket {
	if config.Now == nil {
		config.Now = time.Now
	}
	tb := &TokenBucket{
		buckets:  make(map[string]*bucket),
		capacity: config.Capacity,
		window:   config.Window,
		now:      config.Now,
		done:     make(chan struct{}),
	}

	if config.CleanupInterval > 0 {
		go tb.cleanupLoop(config.CleanupInterval)
	}
	return tb
}

// Allow checks if a request should be allowed for the given key
func (tb *TokenBucket) Allow(ctx context.Context, key string) (*Decision, error) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := tb.now()
	b, ok := tb.buckets[key]
	if !ok {
		b = &bucket{tokens: tb.capacity, lastRefill: now}
		tb.buckets[key] = b
	}

	// Rate: capacity tokens per window
	if elapsed := now.Sub(b.lastRefill); elapsed > 0 {
		refill := int(float64(tb.capacity) * elapsed.Seconds() / tb.window.Seconds())
		if refill > 0 {
			b.tokens = min(tb.capacity, b.tokens+refill)
			b.lastRefill = now
		}
	}

	info := &Decision{
		Limit:   tb.capacity,
		ResetAt: b.lastRefill.Add(tb.window),
	}
	if b.tokens > 0 {
		b.tokens--
		info.Allowed = true
	}
	info.Remaining = b.tokens
	return info, nil
}

func (tb *TokenBucket) cleanupLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			tb.cleanup()
		case <-tb.done:
			return
		}
	}
}

// cleanup drops buckets idle for longer than two windows
func (tb *TokenBucket) cleanup() {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := tb.now()
	for key, b := range tb.buckets {
		if now.Sub(b.lastRefill) > 2*tb.window {
			delete(tb.buckets, key)
		}
	}
}

// Close stops the cleanup goroutine
func (tb *TokenBucket) Close() error {
	tb.closed.Do(func() { close(tb.done) })
	return nil
}
