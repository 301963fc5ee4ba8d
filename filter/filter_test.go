package filter

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/telemetrydev/propdefs/settings"
)

func cacheConfig(backend string) *settings.PDCache {
	return &settings.PDCache{
		Backend:            backend,
		LookupBytes:        1024 * 1024,
		BigcacheSizeMb:     8,
		BigcacheShards:     16,
		BigcacheTtlSeconds: 60,
	}
}

func TestNewSelectsBackend(t *testing.T) {
	f, err := New(cacheConfig("lookup"))
	require.Nil(t, err)
	require.IsType(t, &Lookup{}, f)

	f, err = New(cacheConfig("bigcache"))
	require.Nil(t, err)
	require.IsType(t, &BigcacheFilter{}, f)

	_, err = New(cacheConfig("memcached"))
	require.ErrorContains(t, err, "memcached")
}

func TestBigcacheFilter(t *testing.T) {
	f, err := NewBigcacheFilter(8, 16, 60)
	require.Nil(t, err)

	require.False(t, f.CheckAndSet(update("aaaaaa")))
	require.True(t, f.CheckAndSet(update("aaaaaa")))
	require.False(t, f.CheckAndSet(update("bbbbbb")))
	// unlike the lookup backend there is no slot collision, both stay resident
	require.True(t, f.CheckAndSet(update("aaaaaa")))
	require.Equal(t, 2, f.Len())
}
