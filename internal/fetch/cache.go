package fetch

import (
	"container/list"
	"context"
	"sync"
)

// Cache is an in-memory LRU cache for fetched assets bounded by total size.
type Cache struct {
	mu       sync.Mutex
	maxBytes int
	size     int
	order    *list.List
	items    map[string]*list.Element

	// Stats
	hits   int
	misses int
}

type cacheItem struct {
	key  string
	data []byte
}

// NewCache creates a cache holding at most maxBytes of data. A non-positive
// limit disables eviction.
func NewCache(maxBytes int) *Cache {
	return &Cache{
		maxBytes: maxBytes,
		order:    list.New(),
		items:    make(map[string]*list.Element),
	}
}

// Get retrieves an item from cache.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	c.order.MoveToFront(el)
	return el.Value.(*cacheItem).data, true
}

// Set stores an item in cache, evicting the least recently used entries
// when over budget. Items larger than the whole budget are not stored.
func (c *Cache) Set(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.maxBytes > 0 && len(data) > c.maxBytes {
		return
	}
	if el, ok := c.items[key]; ok {
		item := el.Value.(*cacheItem)
		c.size += len(data) - len(item.data)
		item.data = data
		c.order.MoveToFront(el)
	} else {
		c.items[key] = c.order.PushFront(&cacheItem{key: key, data: data})
		c.size += len(data)
	}

	for c.maxBytes > 0 && c.size > c.maxBytes {
		c.removeElement(c.order.Back())
	}
}

// Delete drops one entry.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.removeElement(el)
	}
}

func (c *Cache) removeElement(el *list.Element) {
	item := c.order.Remove(el).(*cacheItem)
	delete(c.items, item.key)
	c.size -= len(item.data)
}

// Clear clears the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.items = make(map[string]*list.Element)
	c.size = 0
	c.hits = 0
	c.misses = 0
}

// Stats returns cache statistics.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// Size returns the number of cached bytes.
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Cached wraps a Fetcher with a Cache. Misses are not cached.
type Cached struct {
	Fetcher Fetcher
	Cache   *Cache
}

// NewCached returns f fronted by a cache of maxBytes.
func NewCached(f Fetcher, maxBytes int) *Cached {
	return &Cached{Fetcher: f, Cache: NewCache(maxBytes)}
}

// Fetch implements Fetcher.
func (c *Cached) Fetch(ctx context.Context, path string) ([]byte, error) {
	if data, ok := c.Cache.Get(path); ok {
		return data, nil
	}
	data, err := c.Fetcher.Fetch(ctx, path)
	if err != nil {
		return nil, err
	}
	c.Cache.Set(path, data)
	return data, nil
}

// Invalidate drops path from the cache, e.g. after the file changed on disk.
func (c *Cached) Invalidate(path string) {
	c.Cache.Delete(path)
}
