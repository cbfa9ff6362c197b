// Package ratelimit throttles export requests per principal or client
// address, in process or shared through Redis.
package ratelimit

import (
	"context"
	"time"
)

// Limiter consumes one request for key and reports the resulting state
type Limiter interface {
	Allow(ctx context.Context, key string) (*Decision, error)
}

// Decision is the outcome of one Allow call
type Decision struct {
	Allowed bool
	// Limit is the number of requests allowed per window
	Limit     int
	Remaining int
	// ResetAt is when the key is back to its full allowance
	ResetAt time.Time
}

// RetryAfter is the whole number of seconds until ResetAt, never negative
func (d *Decision) RetryAfter(now time.Time) int64 {
	secs := int64(d.ResetAt.Sub(now).Seconds())
	if secs < 0 {
		return 0
	}
	return secs
}
