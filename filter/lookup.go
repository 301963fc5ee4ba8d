package filter

import (
	"math"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"

	"github.com/telemetrydev/propdefs/prom"
	"github.com/telemetrydev/propdefs/types"
)

// Lookup is the fixed-size hashtable cache.
type Lookup struct {
	keys     []uint64
	sizeMask uint64
	occupied atomic.Int64
}

// NewLookup returns a Lookup with the specified capacity in bytes.
func NewLookup(size uint64) *Lookup {
	// round up
	size = uint64(math.Pow(2, math.Ceil(math.Log2(float64(size)))))
	if size < 8 {
		size = 8
	}
	// 8 bytes per entry (uint64)
	size = size / 8
	sizeMask := size - 1          // masked val = array index
	slice := make([]uint64, size) // prealloc to trigger any mem issues upfront
	return &Lookup{keys: slice, sizeMask: sizeMask}
}

// CheckAndSet returns true if the cache contains the update, and marks it as seen.
func (l *Lookup) CheckAndSet(u types.Update) bool {
	prom.CacheLookups.Inc()
	h := xxhash.Sum64(u.Key())
	if h == 0 {
		h = 1 // zero marks an empty slot
	}
	index := h & l.sizeMask
	oldHash := getAndSet(l.keys, index, h)
	switch {
	case oldHash == h:
		prom.CacheHits.Inc()
	case oldHash != 0:
		prom.CacheCollisions.Inc()
	default:
		l.occupied.Add(1)
	}
	return oldHash == h
}

// Len reports the number of occupied slots.
func (l *Lookup) Len() int {
	return int(l.occupied.Load())
}

// getAndSet will replace a value at specified index and return previous content.
func getAndSet(arr []uint64, index uint64, val uint64) uint64 {
	indexPtr := &arr[index]
	var oldVal uint64
	for {
		oldVal = atomic.LoadUint64(indexPtr)
		if atomic.CompareAndSwapUint64(indexPtr, oldVal, val) {
			break
		}
	}
	return oldVal
}
