package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheGetSet(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	_, err := mc.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, mc.Set(ctx, "k", "v", 0))
	v, err := mc.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)

	ok, _ := mc.Exists(ctx, "missing", "k")
	assert.True(t, ok)

	require.NoError(t, mc.Delete(ctx, "k"))
	_, err = mc.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCacheExpiry(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "k", "v", 10*time.Millisecond))
	time.Sleep(20 * time.Millisecond)
	_, err := mc.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "a", "1", 0))
	time.Sleep(time.Millisecond)
	require.NoError(t, mc.Set(ctx, "b", "2", 0))
	time.Sleep(time.Millisecond)
	_, _ = mc.Get(ctx, "a")
	time.Sleep(time.Millisecond)
	require.NoError(t, mc.Set(ctx, "c", "3", 0))

	assert.Equal(t, 2, mc.Len())
	_, err := mc.Get(ctx, "b")
	assert.ErrorIs(t, err, ErrCacheMiss)
	v, _ := mc.Get(ctx, "a")
	assert.Equal(t, "1", v)

	// overwriting a present key never evicts
	require.NoError(t, mc.Set(ctx, "c", "4", 0))
	assert.Equal(t, 2, mc.Len())
}

func TestMemoryCacheCloseIsIdempotent(t *testing.T) {
	mc := NewMemoryCache()
	assert.NoError(t, mc.Close())
	assert.NoError(t, mc.Close())
}

type flakyL2 struct {
	*MemoryCache
	setErr error
	gets   int
}

func (f *flakyL2) Set(ctx context.Context, key, value string, exp time.Duration) error {
	if f.setErr != nil {
		return f.setErr
	}
	return f.MemoryCache.Set(ctx, key, value, exp)
}

func (f *flakyL2) Get(ctx context.Context, key string) (string, error) {
	f.gets++
	return f.MemoryCache.Get(ctx, key)
}

func TestLayeredCacheReadThrough(t *testing.T) {
	l2 := &flakyL2{MemoryCache: NewMemoryCache()}
	lc := NewLayeredCache(l2)
	defer lc.Close()
	ctx := context.Background()

	require.NoError(t, l2.MemoryCache.Set(ctx, "k", "v", 0))

	v, err := lc.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)
	v, err = lc.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)
	assert.Equal(t, 1, l2.gets)
}

func TestLayeredCacheWriteFailureLeavesL1Untouched(t *testing.T) {
	l2 := &flakyL2{MemoryCache: NewMemoryCache(), setErr: errors.New("down")}
	lc := NewLayeredCache(l2)
	defer lc.Close()
	ctx := context.Background()

	assert.Error(t, lc.Set(ctx, "k", "v", 0))
	_, err := lc.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisConfigOptions(t *testing.T) {
	cfg := defaultRedisConfig()
	for _, opt := range []RedisOption{
		WithRedisAddr("redis", 0),
		WithRedisAuth("secret", 3),
		WithRedisPool(32, 4, 0),
	} {
		opt(cfg)
	}

	o := cfg.options()
	assert.Equal(t, "redis:6379", o.Addr)
	assert.Equal(t, "secret", o.Password)
	assert.Equal(t, 3, o.DB)
	assert.Equal(t, 32, o.PoolSize)
	assert.Equal(t, 4, o.MinIdleConns)
	assert.Equal(t, 30*time.Second, o.PoolTimeout)
}

func TestMemoryCacheCleanupSweepsExpired(t *testing.T) {
	mc := NewMemoryCache(WithMemoryCleanup(5 * time.Millisecond))
	defer mc.Close()

	require.NoError(t, mc.Set(context.Background(), "short", "v", 10*time.Millisecond))
	require.NoError(t, mc.Set(context.Background(), "kept", "v", 0))

	assert.Eventually(t, func() bool { return mc.Len() == 1 }, time.Second, 5*time.Millisecond)
}

func TestMemoryCacheIgnoresNonPositiveCleanup(t *testing.T) {
	assert.NotPanics(t, func() {
		mc := NewMemoryCache(WithMemoryCleanup(0))
		_ = mc.Close()
	})
}

func TestLayeredCacheAppliesMemoryOptions(t *testing.T) {
	lc := NewLayeredCache(NewMemoryCache(), WithLayeredMemory(WithMemoryMaxSize(1)))
	defer lc.Close()
	ctx := context.Background()

	require.NoError(t, lc.Set(ctx, "a", "1", 0))
	require.NoError(t, lc.Set(ctx, "b", "2", 0))
	assert.Equal(t, 1, lc.memCache.Len())
}
