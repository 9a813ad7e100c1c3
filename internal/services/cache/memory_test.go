package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, maxEntries int) *MemoryCache {
	t.Helper()
	mc := NewMemoryCache(MemoryOptions{DefaultTTL: time.Minute, CleanupInterval: time.Hour, MaxEntries: maxEntries})
	t.Cleanup(mc.Stop)
	return mc
}

func TestMemoryCache_GetSet(t *testing.T) {
	ctx := context.Background()
	mc := newTestCache(t, 0)

	_, ok := mc.Get(ctx, "missing")
	assert.False(t, ok)

	require.NoError(t, mc.Set(ctx, "dQw4w9WgXcQ", []byte("never gonna"), 0))
	got, ok := mc.Get(ctx, "dQw4w9WgXcQ")
	require.True(t, ok)
	assert.Equal(t, "never gonna", string(got))
	assert.True(t, mc.Has(ctx, "dQw4w9WgXcQ"))

	stats := mc.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Sets)
	assert.Equal(t, int64(1), stats.Entries)
}

func TestMemoryCache_CopiesValue(t *testing.T) {
	ctx := context.Background()
	mc := newTestCache(t, 0)

	buf := []byte("abc")
	require.NoError(t, mc.Set(ctx, "k", buf, 0))
	buf[0] = 'x'

	got, _ := mc.Get(ctx, "k")
	assert.Equal(t, "abc", string(got))
}

func TestMemoryCache_Expiry(t *testing.T) {
	ctx := context.Background()
	mc := newTestCache(t, 0)

	require.NoError(t, mc.Set(ctx, "short", []byte("v"), 10*time.Millisecond))
	time.Sleep(20 * time.Millisecond)

	_, ok := mc.Get(ctx, "short")
	assert.False(t, ok)
	assert.False(t, mc.Has(ctx, "short"))
	assert.Equal(t, int64(1), mc.Stats().Evictions)
}

func TestMemoryCache_EvictsSoonestExpiring(t *testing.T) {
	ctx := context.Background()
	mc := newTestCache(t, 2)

	require.NoError(t, mc.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, mc.Set(ctx, "b", []byte("2"), time.Hour))
	require.NoError(t, mc.Set(ctx, "c", []byte("3"), time.Hour))

	assert.False(t, mc.Has(ctx, "a"))
	assert.True(t, mc.Has(ctx, "b"))
	assert.True(t, mc.Has(ctx, "c"))
	assert.Equal(t, int64(2), mc.Stats().Entries)

	// overwriting an existing key never evicts
	require.NoError(t, mc.Set(ctx, "b", []byte("2b"), time.Hour))
	assert.True(t, mc.Has(ctx, "c"))
}

func TestMemoryCache_DeleteClear(t *testing.T) {
	ctx := context.Background()
	mc := newTestCache(t, 0)

	require.NoError(t, mc.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, mc.Set(ctx, "b", []byte("2"), 0))

	require.NoError(t, mc.Delete(ctx, "a"))
	assert.False(t, mc.Has(ctx, "a"))
	assert.Equal(t, int64(1), mc.Stats().Deletes)

	require.NoError(t, mc.Clear(ctx))
	assert.Equal(t, int64(0), mc.Stats().Entries)
}

func TestMemoryCache_StopIsIdempotent(t *testing.T) {
	mc := NewMemoryCache(MemoryOptions{})
	mc.Stop()
	mc.Stop()
}
