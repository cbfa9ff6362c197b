package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMemoryCacheWithConfig(t *testing.T) {
	config := Config{
		DefaultTTL: 10 * time.Minute,
		Prefix:     "test:",
	}
	cache := NewMemoryCacheWithConfig(config)
	defer cache.Close()

	assert.Equal(t, config.DefaultTTL, cache.config.DefaultTTL)
	assert.Equal(t, config.Prefix, cache.config.Prefix)
}

func TestMemoryCache_SetAndGet(t *testing.T) {
	cache := NewMemoryCache()
	defer cache.Close()
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "k", []byte("v"), time.Minute))

	got, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
}

func TestMemoryCache_GetMiss(t *testing.T) {
	cache := NewMemoryCache()
	defer cache.Close()

	_, err := cache.Get(context.Background(), "nonexistent")
	assert.True(t, IsMiss(err))
}

func TestMemoryCache_DeleteMany(t *testing.T) {
	cache := NewMemoryCache()
	defer cache.Close()
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, cache.Set(ctx, "b", []byte("2"), 0))
	require.NoError(t, cache.Set(ctx, "c", []byte("3"), 0))

	require.NoError(t, cache.Delete(ctx, "a", "b"))

	_, err := cache.Get(ctx, "a")
	assert.True(t, IsMiss(err))
	_, err = cache.Get(ctx, "b")
	assert.True(t, IsMiss(err))
	_, err = cache.Get(ctx, "c")
	assert.NoError(t, err)
}

func TestMemoryCache_ClearKeepsOtherPrefixes(t *testing.T) {
	a := NewMemoryCacheWithConfig(Config{Prefix: "a:"})
	defer a.Close()
	ctx := context.Background()

	require.NoError(t, a.Set(ctx, "k", []byte("v"), 0))
	a.data.Store("b:k", memoryEntry{value: []byte("other")})

	require.NoError(t, a.Clear(ctx, ""))

	_, err := a.Get(ctx, "k")
	assert.True(t, IsMiss(err))
	_, ok := a.data.Load("b:k")
	assert.True(t, ok)
}

func TestMemoryCache_ClearKeyPrefix(t *testing.T) {
	c := NewMemoryCache()
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "metadata:5", []byte("a"), 0))
	require.NoError(t, c.Set(ctx, "ratelimit:principal:7", []byte("3"), 0))

	require.NoError(t, c.Clear(ctx, "metadata:"))

	_, err := c.Get(ctx, "metadata:5")
	assert.True(t, IsMiss(err))
	_, err = c.Get(ctx, "ratelimit:principal:7")
	assert.NoError(t, err)
}

func TestMemoryCache_Expiry(t *testing.T) {
	cache := NewMemoryCache()
	defer cache.Close()
	ctx := context.Background()

	now := time.Unix(1000, 0)
	cache.now = func() time.Time { return now }

	require.NoError(t, cache.Set(ctx, "k", []byte("v"), time.Second))
	assert.Equal(t, 1, cache.Len())

	now = now.Add(2 * time.Second)
	_, err := cache.Get(ctx, "k")
	assert.True(t, IsMiss(err))
	assert.Equal(t, 0, cache.Len())
}

func TestMemoryCache_NegativeTTLNeverExpires(t *testing.T) {
	cache := NewMemoryCacheWithConfig(Config{DefaultTTL: -1})
	defer cache.Close()
	ctx := context.Background()

	now := time.Unix(1000, 0)
	cache.now = func() time.Time { return now }

	require.NoError(t, cache.Set(ctx, "k", []byte("v"), 0))
	now = now.Add(24 * time.Hour)

	_, err := cache.Get(ctx, "k")
	assert.NoError(t, err)
}

func TestMemoryCache_ContextCancelled(t *testing.T) {
	cache := NewMemoryCache()
	defer cache.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := cache.Get(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, cache.Set(ctx, "k", nil, 0), context.Canceled)
}
