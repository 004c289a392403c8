package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/bloodlink/internal/adapters/ratelimit"
	"github.com/zatekoja/bloodlink/internal/domain/providers"
	redisclient "github.com/zatekoja/bloodlink/internal/infrastructure/clients/redis"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func exercise(t *testing.T, limiter providers.RateLimiter, advance func(time.Duration)) {
	t.Helper()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := limiter.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, res.Allowed, "request %d", i+1)
		assert.Equal(t, 2-i, res.Remaining)
	}

	res, err := limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 3, res.Limit)
	assert.Greater(t, res.RetryAfter, time.Duration(0))

	other, err := limiter.Allow(ctx, "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, other.Allowed)

	require.NoError(t, limiter.Reset(ctx, "10.0.0.1"))
	res, err = limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	advance(time.Minute)
	for i := 0; i < 3; i++ {
		res, err = limiter.Allow(ctx, "10.0.0.2")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	}
}

func TestMemoryLimiter(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)}
	limiter := ratelimit.NewMemoryLimiter(3, time.Minute, ratelimit.WithClock(clock.now))

	exercise(t, limiter, func(d time.Duration) { clock.t = clock.t.Add(d) })
}

func TestMemoryLimiter_FreshInstancesAreIndependent(t *testing.T) {
	ctx := context.Background()
	first := ratelimit.NewMemoryLimiter(1, time.Minute)
	second := ratelimit.NewMemoryLimiter(1, time.Minute)

	res, err := first.Allow(ctx, "k")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = second.Allow(ctx, "k")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestRedisLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	clock := &fakeClock{t: time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)}
	mr.SetTime(clock.t)
	limiter := ratelimit.NewRedisLimiter(redisclient.NewFromClient(client), 3, time.Minute, ratelimit.WithClock(clock.now))

	exercise(t, limiter, func(d time.Duration) {
		clock.t = clock.t.Add(d)
		mr.SetTime(clock.t)
		mr.FastForward(d)
	})
}
