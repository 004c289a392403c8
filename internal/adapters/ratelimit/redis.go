package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/zatekoja/bloodlink/internal/domain/providers"
	redisclient "github.com/zatekoja/bloodlink/internal/infrastructure/clients/redis"
)

// RedisLimiter shares fixed-window counters across replicas through Redis
type RedisLimiter struct {
	client *redisclient.Client
	limit  int
	period time.Duration
	now    func() time.Time
	prefix string
}

// NewRedisLimiter allows limit requests per key in every period
func NewRedisLimiter(client *redisclient.Client, limit int, period time.Duration, opts ...Option) *RedisLimiter {
	o := buildOptions(opts)
	if period <= 0 {
		period = time.Minute
	}
	return &RedisLimiter{
		client: client,
		limit:  limit,
		period: period,
		now:    o.now,
		prefix: o.prefix,
	}
}

var _ providers.RateLimiter = (*RedisLimiter)(nil)

func (l *RedisLimiter) windowKey(key string, start time.Time) string {
	return fmt.Sprintf("%s%s:%d", l.prefix, key, start.Unix())
}

// Allow increments the counter of the current window for key
func (l *RedisLimiter) Allow(ctx context.Context, key string) (*providers.RateLimitResult, error) {
	now := l.now()
	start := now.Truncate(l.period)
	end := start.Add(l.period)
	windowKey := l.windowKey(key, start)

	pipe := l.client.Client().Pipeline()
	incr := pipe.Incr(ctx, windowKey)
	pipe.ExpireAt(ctx, windowKey, end)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to update rate limit counter: %w", err)
	}

	count := int(incr.Val())
	result := &providers.RateLimitResult{Limit: l.limit}
	if count > l.limit {
		result.RetryAfter = end.Sub(now)
		return result, nil
	}

	result.Allowed = true
	result.Remaining = l.limit - count
	return result, nil
}

// Reset deletes the counters for key
func (l *RedisLimiter) Reset(ctx context.Context, key string) error {
	var cursor uint64
	pattern := l.prefix + key + ":*"
	for {
		keys, next, err := l.client.Client().Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return fmt.Errorf("failed to scan rate limit keys: %w", err)
		}
		if len(keys) > 0 {
			if err := l.client.Client().Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("failed to reset rate limit: %w", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}
