package cache

import (
	"sync"
	"time"

	"github.com/bibeksah-dev/NRAI-Kancha/internal/core/ports"
)

// pruneHighWater and pruneFraction control the memory-pressure valve: a tier
// at or above the high-water fraction of capacity drops its oldest quarter.
const (
	pruneHighWater = 0.9
	pruneFraction  = 0.25
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// tier is one bounded TTL cache. Eviction on overflow removes the
// oldest-inserted key; lookups do not refresh insertion order. Expired
// entries are treated as absent on lookup and physically removed by Sweep
// or by the overflow check, whichever comes first.
type tier[V any] struct {
	mu       sync.RWMutex
	capacity int
	ttl      time.Duration
	entries  map[string]*entry[V]
	// insertion order, oldest first; keys removed lazily on eviction
	order []string

	hits      uint64
	misses    uint64
	evictions uint64

	now func() time.Time
}

func newTier[V any](capacity int, ttl time.Duration) *tier[V] {
	if capacity < 1 {
		capacity = 1
	}
	return &tier[V]{
		capacity: capacity,
		ttl:      ttl,
		entries:  make(map[string]*entry[V], capacity),
		order:    make([]string, 0, capacity),
		now:      time.Now,
	}
}

func (t *tier[V]) get(key string) (V, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var zero V
	e, ok := t.entries[key]
	if !ok || t.now().After(e.expiresAt) {
		t.misses++
		return zero, false
	}
	t.hits++
	return e.value, true
}

func (t *tier[V]) set(key string, value V) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.entries[key]; ok {
		// Overwrite keeps the original insertion position.
		e.value = value
		e.expiresAt = t.now().Add(t.ttl)
		return
	}
	if len(t.entries) >= t.capacity {
		t.evictOldestLocked()
	}
	t.entries[key] = &entry[V]{value: value, expiresAt: t.now().Add(t.ttl)}
	t.order = append(t.order, key)
}

// evictOldestLocked removes the oldest-inserted resident entry. Order slots
// whose key was already deleted are skipped and dropped.
func (t *tier[V]) evictOldestLocked() {
	for len(t.order) > 0 {
		key := t.order[0]
		t.order = t.order[1:]
		if _, ok := t.entries[key]; ok {
			delete(t.entries, key)
			t.evictions++
			return
		}
	}
}

// sweep removes every expired entry and returns how many were dropped.
func (t *tier[V]) sweep() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	removed := 0
	for key, e := range t.entries {
		if now.After(e.expiresAt) {
			delete(t.entries, key)
			removed++
		}
	}
	if removed > 0 {
		t.compactOrderLocked()
	}
	return removed
}

// prune drops the oldest quarter when the tier is at or above the high-water
// mark, regardless of TTL. Returns entries removed.
func (t *tier[V]) prune() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if float64(len(t.entries)) < pruneHighWater*float64(t.capacity) {
		return 0
	}
	target := int(float64(len(t.entries)) * pruneFraction)
	if target < 1 {
		target = 1
	}
	removed := 0
	for removed < target && len(t.order) > 0 {
		key := t.order[0]
		t.order = t.order[1:]
		if _, ok := t.entries[key]; ok {
			delete(t.entries, key)
			t.evictions++
			removed++
		}
	}
	return removed
}

func (t *tier[V]) clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = make(map[string]*entry[V], t.capacity)
	t.order = t.order[:0]
}

func (t *tier[V]) len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

func (t *tier[V]) stats() ports.TierStats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return ports.TierStats{
		Size:      len(t.entries),
		Capacity:  t.capacity,
		Hits:      t.hits,
		Misses:    t.misses,
		Evictions: t.evictions,
	}
}

// compactOrderLocked rebuilds the order slice keeping only resident keys, in
// their original insertion order.
func (t *tier[V]) compactOrderLocked() {
	kept := t.order[:0]
	for _, key := range t.order {
		if _, ok := t.entries[key]; ok {
			kept = append(kept, key)
		}
	}
	t.order = kept
}
