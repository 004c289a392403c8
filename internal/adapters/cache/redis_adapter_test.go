package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/bloodlink/internal/adapters/cache"
	"github.com/zatekoja/bloodlink/internal/domain/providers"
	redisclient "github.com/zatekoja/bloodlink/internal/infrastructure/clients/redis"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, providers.CacheProvider) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, cache.NewRedisAdapter(redisclient.NewFromClient(client))
}

func TestRedisAdapter_GetSet(t *testing.T) {
	ctx := context.Background()
	mr, adapter := setupRedis(t)

	_, err := adapter.Get(ctx, "matches:all")
	assert.ErrorIs(t, err, providers.ErrCacheMiss)

	require.NoError(t, adapter.Set(ctx, "matches:all", []byte(`[]`), 60))
	got, err := adapter.Get(ctx, "matches:all")
	require.NoError(t, err)
	assert.Equal(t, []byte(`[]`), got)

	mr.FastForward(61 * time.Second)
	_, err = adapter.Get(ctx, "matches:all")
	assert.ErrorIs(t, err, providers.ErrCacheMiss)
}

func TestRedisAdapter_DeletePattern(t *testing.T) {
	ctx := context.Background()
	mr, adapter := setupRedis(t)

	for _, key := range []string{"hospital:h1", "hospital:h2", "hospitals:list", "matches:all"} {
		require.NoError(t, adapter.Set(ctx, key, []byte("x"), 300))
	}

	require.NoError(t, adapter.DeletePattern(ctx, "hospital:*"))
	assert.False(t, mr.Exists("hospital:h1"))
	assert.False(t, mr.Exists("hospital:h2"))
	assert.True(t, mr.Exists("hospitals:list"))
	assert.True(t, mr.Exists("matches:all"))

	require.NoError(t, adapter.Delete(ctx, "hospitals:list", "matches:all"))
	assert.False(t, mr.Exists("hospitals:list"))
	assert.NoError(t, adapter.Delete(ctx))
}
