package fragcache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheGetSet(t *testing.T) {
	c := NewMemoryCache(WithCleanupInterval(0))
	defer c.Close()
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "k", "v1", time.Minute))
	require.NoError(t, c.Set(ctx, "k", "v2", time.Minute))

	v, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v2", v)
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache(WithCleanupInterval(0))
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	c.cleanup()
	assert.Equal(t, 0, c.Len())
}

func TestMemoryCacheNoDefaultTTL(t *testing.T) {
	c := NewMemoryCache(WithCleanupInterval(0), WithDefaultTTL(0))
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", 0))
	c.cleanup()

	v, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestMemoryCacheClosed(t *testing.T) {
	c := NewMemoryCache()
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	_, _, err := c.Get(context.Background(), "k")
	assert.ErrorIs(t, err, ErrClosed{})
	assert.ErrorIs(t, c.Set(context.Background(), "k", "v", 0), ErrClosed{})
}

func TestMemoryCacheConcurrent(t *testing.T) {
	c := NewMemoryCache(WithCleanupInterval(time.Millisecond))
	defer c.Close()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = c.Set(ctx, "shared", "same", time.Minute)
				_, _, _ = c.Get(ctx, "shared")
			}
		}()
	}
	wg.Wait()

	v, ok, err := c.Get(ctx, "shared")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "same", v)
}
