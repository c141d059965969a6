// Package cache holds per-entity state that is read far more often than it
// is written, such as the motion trackers the engine keeps for every
// entity it has observed.
package cache

import (
	"sort"
	"sync"
)

// EntityCache maps entity numbers to values under a read/write lock.
type EntityCache[K ~int | ~uint16 | ~uint32, V any] struct {
	mu      sync.RWMutex
	entries map[K]V
}

// NewEntityCache creates an empty cache.
func NewEntityCache[K ~int | ~uint16 | ~uint32, V any]() *EntityCache[K, V] {
	return &EntityCache[K, V]{
		entries: make(map[K]V),
	}
}

// Get retrieves the value stored for id.
func (c *EntityCache[K, V]) Get(id K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[id]
	return v, ok
}

// Set stores v for id, replacing any previous value.
func (c *EntityCache[K, V]) Set(id K, v V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[id] = v
}

// GetOrCreate returns the value for id, building and storing it with
// create when absent.
func (c *EntityCache[K, V]) GetOrCreate(id K, create func() V) V {
	c.mu.RLock()
	v, ok := c.entries[id]
	c.mu.RUnlock()
	if ok {
		return v
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.entries[id]; ok {
		return v
	}
	v = create()
	c.entries[id] = v
	return v
}

// Delete removes id from the cache.
func (c *EntityCache[K, V]) Delete(id K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
}

// Len returns the number of cached entities.
func (c *EntityCache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Keys returns the cached ids in ascending order.
func (c *EntityCache[K, V]) Keys() []K {
	c.mu.RLock()
	keys := make([]K, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	c.mu.RUnlock()
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Reset clears all entries from the cache
func (c *EntityCache[K, V]) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[K]V)
}

// SafeCounter is a thread-safe counter
type SafeCounter struct {
	mu sync.Mutex
	v  int
}

func (c *SafeCounter) Value() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v
}

// Add increases the counter by n and returns the new value.
func (c *SafeCounter) Add(n int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.v += n
	return c.v
}
