// Copyright 2025 Interlayer Labs
//
// Package cache implements the process-local TTL cache for idempotent
// chain reads (ISM type, validator sets, storage locations): miss ->
// underlying call -> fill, same shape as the teacher's AccountCache but
// keyed by a single string (contract address + method + argument hash)
// instead of per-kind maps, since every cached value here is opaque.
package cache

import (
	"sync"
	"time"
)

type entry struct {
	value     interface{}
	expiresAt time.Time
}

// Cache is a thread-safe TTL cache with LRU eviction once maxEntries is
// exceeded, mirroring the bound the teacher's AccountCache enforces.
type Cache struct {
	mu         sync.RWMutex
	entries    map[string]entry
	accessOrder []string
	maxEntries int
	defaultTTL time.Duration
}

func New(defaultTTL time.Duration, maxEntries int) *Cache {
	if defaultTTL == 0 {
		defaultTTL = 10 * time.Minute // matches the spec's "typically 10 minutes" ISM-type TTL
	}
	if maxEntries == 0 {
		maxEntries = 10000
	}
	return &Cache{
		entries:    make(map[string]entry),
		maxEntries: maxEntries,
		defaultTTL: defaultTTL,
	}
}

// Get returns the cached value and true if present and not expired.
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || time.Now().After(e.expiresAt) {
		return nil, false
	}
	c.touch(key)
	return e.value, true
}

// Set stores value under key with the cache's default TTL.
func (c *Cache) Set(key string, value interface{}) {
	c.SetTTL(key, value, c.defaultTTL)
}

// SetTTL stores value under key with an explicit TTL.
func (c *Cache) SetTTL(key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictOldestLocked()
	}
	c.entries[key] = entry{value: value, expiresAt: time.Now().Add(ttl)}
	c.accessOrder = append(c.accessOrder, key)
}

func (c *Cache) touch(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessOrder = append(c.accessOrder, key)
}

func (c *Cache) evictOldestLocked() {
	for len(c.accessOrder) > 0 {
		oldest := c.accessOrder[0]
		c.accessOrder = c.accessOrder[1:]
		if _, ok := c.entries[oldest]; !ok {
			continue
		}
		accessedSince := false
		for _, k := range c.accessOrder {
			if k == oldest {
				accessedSince = true
				break
			}
		}
		if !accessedSince {
			delete(c.entries, oldest)
			return
		}
	}
}

// GetOrLoad returns the cached value, or calls load and caches the result
// on a miss -- the miss -> underlying call -> fill pattern the spec names.
func (c *Cache) GetOrLoad(key string, load func() (interface{}, error)) (interface{}, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := load()
	if err != nil {
		return nil, err
	}
	c.Set(key, v)
	return v, nil
}
