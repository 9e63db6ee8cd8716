package dedupe_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/DeafMist/waste-radar/internal/dedupe"
)

func TestCacheUnchanged(t *testing.T) {
	cache := dedupe.NewCache(10, time.Minute)
	require.False(t, cache.Unchanged("https://example.com/a", "f1"))
	cache.Record("https://example.com/a", "f1")
	require.True(t, cache.Unchanged("https://example.com/a", "f1"))
}

func TestCacheChangedFingerprint(t *testing.T) {
	cache := dedupe.NewCache(10, time.Minute)
	cache.Record("u", "f1")
	require.False(t, cache.Unchanged("u", "f2"))

	cache.Record("u", "f2")
	require.True(t, cache.Unchanged("u", "f2"))
	require.False(t, cache.Unchanged("u", "f1"))
	require.Equal(t, 1, cache.Len())
}

func TestCacheTTLExpiry(t *testing.T) {
	cache := dedupe.NewCache(10, 20*time.Millisecond)
	cache.Record("beta", "f")
	time.Sleep(25 * time.Millisecond)
	require.False(t, cache.Unchanged("beta", "f"))
}

func TestCacheCapacityEvictsOldest(t *testing.T) {
	cache := dedupe.NewCache(1, time.Minute)
	cache.Record("first", "f")
	cache.Record("second", "f")

	require.False(t, cache.Unchanged("first", "f"))
	require.True(t, cache.Unchanged("second", "f"))
}
