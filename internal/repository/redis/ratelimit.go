package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
)

const (
	rateLimitPrefix = "ratelimit:"
)

// RateLimiter is a fixed one-minute window counter shared by every API instance
type RateLimiter struct {
	client            *Client
	clock             clockwork.Clock
	requestsPerMinute int
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(client *Client, clock clockwork.Clock, requestsPerMinute int) *RateLimiter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &RateLimiter{
		client:            client,
		clock:             clock,
		requestsPerMinute: requestsPerMinute,
	}
}

// Allow counts one request for key in the current minute.
// Returns (allowed, remaining, resetTime, error)
func (r *RateLimiter) Allow(ctx context.Context, key string) (bool, int, time.Time, error) {
	now := r.clock.Now()
	windowStart := now.Truncate(time.Minute)
	windowEnd := windowStart.Add(time.Minute)
	fullKey := fmt.Sprintf("%s%s:%d", rateLimitPrefix, key, windowStart.Unix())

	pipe := r.client.rdb.Pipeline()
	incrCmd := pipe.Incr(ctx, fullKey)
	// Set expiry if key is new
	pipe.ExpireNX(ctx, fullKey, 2*time.Minute)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, time.Time{}, fmt.Errorf("failed to execute rate limit check: %w", err)
	}

	count := incrCmd.Val()
	limit := int64(r.requestsPerMinute)
	remaining := int(limit - count)
	if remaining < 0 {
		remaining = 0
	}

	return count <= limit, remaining, windowEnd, nil
}

// Limit returns the configured requests per minute
func (r *RateLimiter) Limit() int {
	return r.requestsPerMinute
}
