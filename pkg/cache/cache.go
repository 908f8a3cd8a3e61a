// Package cache holds computed datasets keyed by data source identity and
// version. An entry is only served while the source still reports the version
// it was computed from; refreshing or invalidating replaces it explicitly.
package cache

import (
	"sync"
)

// Key formats an identity and version into the key used in logs and metrics.
func Key(identity, version string) string {
	return identity + "@" + version
}

type entry[V any] struct {
	version string
	value   V
}

// DatasetCache keeps at most one value per source identity.
// It is safe for concurrent use.
type DatasetCache[V any] struct {
	mu      sync.RWMutex
	entries map[string]entry[V]
}

// New creates an empty cache.
func New[V any]() *DatasetCache[V] {
	return &DatasetCache[V]{entries: make(map[string]entry[V])}
}

// Get returns the value cached for identity if it was stored for version.
func (c *DatasetCache[V]) Get(identity, version string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[identity]
	if !ok || e.version != version {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Put stores value for identity at version, replacing any older version.
func (c *DatasetCache[V]) Put(identity, version string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[identity] = entry[V]{version: version, value: value}
}

// Invalidate drops the entry for identity. It reports whether one existed.
func (c *DatasetCache[V]) Invalidate(identity string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.entries[identity]
	delete(c.entries, identity)
	return ok
}

// InvalidateAll empties the cache.
func (c *DatasetCache[V]) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}

// Len returns the number of cached identities.
func (c *DatasetCache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
