package providers

import (
	"context"
	"time"
)

// RateLimitResult describes the outcome of a rate limit check
type RateLimitResult struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// RateLimiter counts requests per key in fixed windows. Implementations own
// their state; Reset clears a key so tests and admins can start over.
type RateLimiter interface {
	// Allow records a request for key and reports whether it is within the limit
	Allow(ctx context.Context, key string) (*RateLimitResult, error)

	// Reset forgets all recorded requests for key
	Reset(ctx context.Context, key string) error
}
