package genesys

import "sync"

// Cache is a session-scoped map keyed by resource ID. There is no eviction;
// the cache lives and dies with one authorized API session.
type Cache[T any] struct {
	cache map[string]T
	mutex sync.Mutex
}

func NewCache[T any]() *Cache[T] {
	return &Cache[T]{
		cache: make(map[string]T),
	}
}

func (c *Cache[T]) Get(key string) (T, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	value, ok := c.cache[key]
	return value, ok
}

// Set stores value under key, overwriting any previous entry.
func (c *Cache[T]) Set(key string, value T) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.cache[key] = value
}

func (c *Cache[T]) Len() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return len(c.cache)
}
