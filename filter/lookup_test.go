package filter

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/telemetrydev/propdefs/types"
)

var result bool

func update(name string) types.Update {
	return types.Update{Kind: types.KindEvent, TeamID: 1, Event: name}
}

func TestLookup(t *testing.T) {
	// a single-slot cache: every key collides, eviction is deterministic
	l := NewLookup(8)
	shouldNotContain(t, "empty filter", l, update("aaaaaa"))
	shouldContain(t, "last set", l, update("aaaaaa"))
	shouldNotContain(t, "colliding value", l, update("bbbbbb"))
	shouldContain(t, "last set", l, update("bbbbbb"))
	shouldNotContain(t, "was evicted", l, update("aaaaaa"))
}

func TestLookupManySlots(t *testing.T) {
	l := NewLookup(1024 * 1024)
	for i := 0; i < 100; i++ {
		shouldNotContain(t, "first sighting", l, update(fmt.Sprintf("event_%d", i)))
	}
	for i := 0; i < 100; i++ {
		shouldContain(t, "still resident", l, update(fmt.Sprintf("event_%d", i)))
	}
	if l.Len() != 100 {
		t.Errorf("expected 100 occupied slots, got %d", l.Len())
	}
}

func TestLookupLenBounded(t *testing.T) {
	l := NewLookup(64) // 8 slots
	for i := 0; i < 1000; i++ {
		l.CheckAndSet(update(fmt.Sprintf("event_%d", i)))
	}
	if l.Len() > 8 {
		t.Errorf("occupancy %d exceeds slot count", l.Len())
	}
}

func BenchmarkLookup(b *testing.B) {
	l := NewLookup(100000)
	seed := make([]types.Update, 1000)
	for i := range seed {
		seed[i] = update(fmt.Sprintf("event_%d", i))
	}
	b.ReportAllocs()
	for n := 0; n < b.N; n++ {
		result = l.CheckAndSet(seed[rand.Intn(len(seed))])
	}
}

func shouldContain(t *testing.T, msg string, l *Lookup, u types.Update) {
	t.Helper()
	if !l.CheckAndSet(u) {
		t.Errorf("should contain, %s: %+v", msg, u)
	}
}

func shouldNotContain(t *testing.T, msg string, l *Lookup, u types.Update) {
	t.Helper()
	if l.CheckAndSet(u) {
		t.Errorf("should not contain, %s: %+v", msg, u)
	}
}
