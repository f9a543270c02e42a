package loader

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

// Cache memoizes loaded file contents. Concurrent loads of the same key
// share one call.
type Cache struct {
	entries map[string][]byte
	mu      sync.RWMutex
	group   singleflight.Group
}

func NewCache() *Cache {
	return &Cache{
		entries: make(map[string][]byte),
	}
}

// Load returns the cached bytes for file or calls fn and caches its result.
// Errors are not cached.
func (c *Cache) Load(file GraphFile, fn func() ([]byte, error)) ([]byte, error) {
	key := CacheKey(file)

	c.mu.RLock()
	if cached, ok := c.entries[key]; ok {
		c.mu.RUnlock()
		return cached, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.group.Do(key, func() (any, error) {
		c.mu.RLock()
		if cached, ok := c.entries[key]; ok {
			c.mu.RUnlock()
			return cached, nil
		}
		c.mu.RUnlock()

		b, err := fn()
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.entries[key] = b
		c.mu.Unlock()
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

// Forget drops the cached entry for file.
func (c *Cache) Forget(file GraphFile) {
	c.mu.Lock()
	delete(c.entries, CacheKey(file))
	c.mu.Unlock()
}
