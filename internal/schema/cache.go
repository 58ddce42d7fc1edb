package schema

import (
	"sync"

	"njcrashes/internal/domain"
)

type cacheKey struct {
	kind domain.RecordKind
	era  domain.Era
}

// Cache memoizes loaded base schemas by (kind, era). Cached schemas are
// immutable, so one Cache may be shared by every decoder in the process.
type Cache struct {
	mu      sync.RWMutex
	entries map[cacheKey]*domain.Schema
}

// NewCache creates an empty Cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[cacheKey]*domain.Schema)}
}

// GetOrLoad returns the cached schema or calls load and caches its result.
// Failed loads are not cached.
func (c *Cache) GetOrLoad(kind domain.RecordKind, era domain.Era, load func() (*domain.Schema, error)) (*domain.Schema, error) {
	key := cacheKey{kind: kind, era: era}

	c.mu.RLock()
	s, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return s, nil
	}

	s, err := load()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.entries[key]; ok {
		return existing, nil
	}
	c.entries[key] = s
	return s, nil
}

// Len returns the number of cached schemas.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Reset drops every cached schema.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[cacheKey]*domain.Schema)
}
