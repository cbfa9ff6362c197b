package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// slidingWindow trims entries older than the window, then admits the
// request if fewer than limit remain. Returns {allowed, count}.
var slidingWindow = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window_start = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local window = tonumber(ARGV[4])

redis.call('ZREMRANGEBYSCORE', key, 0, window_start)
local current = redis.call('ZCARD', key)
if current < limit then
	redis.call('ZADD', key, now, now)
	redis.call('EXPIRE', key, window)
	return {1, current + 1}
end
return {0, current}
`)

// RedisLimiter implements a Redis-backed sliding window rate limiter
// shared by every server pointing at the same Redis
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	prefix string
	now    func() time.Time
}

// RedisLimiterConfig holds configuration for the Redis rate limiter
type RedisLimiterConfig struct {
	Client *redis.Client
	Limit  int
	Window time.Duration
	// Prefix is the key prefix for Redis keys
	Prefix string
	// Now overrides the clock in tests
	Now func() time.Time
}

// NewRedisLimiter creates a new Redis rate limiter
func NewRedisLimiter(config RedisLimiterConfig) (*RedisLimiter, error) {
	if config.Client == nil {
		return nil, errors.New("redis client is required")
	}
	if config.Limit <= 0 {
		return nil, errors.New("limit must be greater than 0")
	}
	if config.Window < time.Second {
		return nil, errors.New("window must be at least one second")
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return &RedisLimiter{
		client: config.Client,
		limit:  config.Limit,
		window: config.Window,
		prefix: config.Prefix,
		now:    config.Now,
	}, nil
}

// Allow checks if a request should be allowed for the given key
func (r *RedisLimiter) Allow(ctx context.Context, key string) (*Decision, error) {
	now := r.now()
	result, err := slidingWindow.Run(ctx, r.client, []string{r.prefix + key},
		now.UnixNano(),
		now.Add(-r.window).UnixNano(),
		r.limit,
		int(r.window.Seconds()),
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("redis rate limit check failed: %w", err)
	}
	if len(result) != 2 {
		return nil, errors.New("unexpected redis script result")
	}

	remaining := r.limit - int(result[1])
	if remaining < 0 {
		remaining = 0
	}
	return &Decision{
		Limit:     r.limit,
		Remaining: remaining,
		ResetAt:   now.Add(r.window),
		Allowed:   result[0] == 1,
	}, nil
}

// Reset removes all rate limit data for the given key
func (r *RedisLimiter) Reset(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.prefix+key).Err()
}
