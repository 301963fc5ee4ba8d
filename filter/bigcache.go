package filter

import (
	"context"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/eko/gocache/lib/v4/cache"
	bigcache_store "github.com/eko/gocache/store/bigcache/v4"

	"github.com/telemetrydev/propdefs/prom"
	"github.com/telemetrydev/propdefs/types"
)

// presence marker, the cached value carries no information
var marker = []byte{1}

// BigcacheFilter is the TTL-evicting filter backend.
type BigcacheFilter struct {
	manager cache.CacheInterface[[]byte]
	client  *bigcache.BigCache
}

func NewBigcacheFilter(sizeMb, shards int, ttlSeconds int64) (*BigcacheFilter, error) {
	config := bigcache.DefaultConfig(time.Duration(ttlSeconds) * time.Second)
	config.HardMaxCacheSize = sizeMb
	config.Shards = shards
	config.Verbose = false
	client, err := bigcache.New(context.Background(), config)
	if err != nil {
		return nil, err
	}
	manager := cache.New[[]byte](bigcache_store.NewBigcache(client))
	return &BigcacheFilter{manager: manager, client: client}, nil
}

func (f *BigcacheFilter) CheckAndSet(u types.Update) bool {
	ctx := context.Background()
	key := string(u.Key())
	prom.CacheLookups.Inc()
	if _, err := f.manager.Get(ctx, key); err == nil {
		prom.CacheHits.Inc()
		return true
	}
	// failing to cache is not terminal, the worst case is a redundant write
	_ = f.manager.Set(ctx, key, marker)
	return false
}

func (f *BigcacheFilter) Len() int {
	return f.client.Len()
}
