package filter

import (
	"fmt"

	"github.com/telemetrydev/propdefs/settings"
	"github.com/telemetrydev/propdefs/types"
)

// Filter is the shared membership cache consulted by every ingestion worker.
// CheckAndSet reports whether the update was already present and marks it as
// seen either way; implementations must be safe for concurrent use.
type Filter interface {
	CheckAndSet(u types.Update) bool
	// Len is the approximate number of resident entries, for metrics only.
	Len() int
}

// New builds the filter cache selected by configuration.
func New(cfg *settings.PDCache) (Filter, error) {
	switch cfg.Backend {
	case "lookup":
		return NewLookup(uint64(cfg.LookupBytes)), nil
	case "bigcache":
		return NewBigcacheFilter(cfg.BigcacheSizeMb, cfg.BigcacheShards, cfg.BigcacheTtlSeconds)
	default:
		return nil, fmt.Errorf("unknown cache backend %q (valid: lookup, bigcache)", cfg.Backend)
	}
}
