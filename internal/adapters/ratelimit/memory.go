// Package ratelimit provides fixed-window request limiters. Each limiter is
// an explicitly constructed value holding its own counters.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/zatekoja/bloodlink/internal/domain/providers"
)

// Option configures a limiter
type Option func(*options)

type options struct {
	now    func() time.Time
	prefix string
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithKeyPrefix namespaces redis keys
func WithKeyPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now, prefix: "ratelimit:"}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

type window struct {
	count int
	end   time.Time
}

// MemoryLimiter counts requests per key in process memory
type MemoryLimiter struct {
	mu      sync.Mutex
	limit   int
	period  time.Duration
	now     func() time.Time
	windows map[string]*window
}

// NewMemoryLimiter allows limit requests per key in every period
func NewMemoryLimiter(limit int, period time.Duration, opts ...Option) *MemoryLimiter {
	o := buildOptions(opts)
	if period <= 0 {
		period = time.Minute
	}
	return &MemoryLimiter{
		limit:   limit,
		period:  period,
		now:     o.now,
		windows: make(map[string]*window),
	}
}

var _ providers.RateLimiter = (*MemoryLimiter)(nil)

// Allow records a request for key
func (l *MemoryLimiter) Allow(_ context.Context, key string) (*providers.RateLimitResult, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || !now.Before(w.end) {
		l.prune(now)
		w = &window{end: now.Add(l.period)}
		l.windows[key] = w
	}

	result := &providers.RateLimitResult{Limit: l.limit}
	if w.count >= l.limit {
		result.RetryAfter = w.end.Sub(now)
		return result, nil
	}

	w.count++
	result.Allowed = true
	result.Remaining = l.limit - w.count
	return result, nil
}

// Reset forgets the counter for key
func (l *MemoryLimiter) Reset(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, key)
	return nil
}

// prune drops expired windows; caller holds mu
func (l *MemoryLimiter) prune(now time.Time) {
	for key, w := range l.windows {
		if !now.Before(w.end) {
			delete(l.windows, key)
		}
	}
}
