// Package cache keeps decoded preference values in memory, one map per store.
package cache

import (
	"slices"
	"strings"
	"sync"
)

// Cache maps preference keys to decoded values
type Cache struct {
	entries map[string]any
	mutex   sync.RWMutex
}

// New creates an empty cache
func New() *Cache {
	return &Cache{
		entries: make(map[string]any),
	}
}

// Put adds or replaces the value of key
func (c *Cache) Put(key string, value any) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries[key] = value
}

// Get returns the value of key
func (c *Cache) Get(key string) (any, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	value, exists := c.entries[key]
	return value, exists
}

// Contains reports whether key is cached
func (c *Cache) Contains(key string) bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	_, exists := c.entries[key]
	return exists
}

// Remove drops key
func (c *Cache) Remove(key string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.entries, key)
}

// Len returns the number of cached keys
func (c *Cache) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return len(c.entries)
}

// Clear removes every entry
func (c *Cache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries = make(map[string]any)
}

// Keys returns the cached keys in sorted order
func (c *Cache) Keys() []string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	keys := make([]string, 0, len(c.entries))
	for key := range c.entries {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}

// KeysWithPrefix returns the sorted keys that start with prefix
func (c *Cache) KeysWithPrefix(prefix string) []string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var keys []string
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)
	return keys
}

// All returns a shallow copy of every entry
func (c *Cache) All() map[string]any {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	out := make(map[string]any, len(c.entries))
	for key, value := range c.entries {
		out[key] = value
	}
	return out
}

// Registry hands out one cache per store name so every handle on the same
// store sees the same values
type Registry struct {
	caches map[string]*Cache
	mutex  sync.Mutex
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{caches: make(map[string]*Cache)}
}

// Get returns the cache of store name, creating it on first use
func (r *Registry) Get(name string) *Cache {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	c, exists := r.caches[name]
	if !exists {
		c = New()
		r.caches[name] = c
	}
	return c
}

// Names returns the sorted names of every store with a cache
func (r *Registry) Names() []string {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	names := make([]string, 0, len(r.caches))
	for name := range r.caches {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
