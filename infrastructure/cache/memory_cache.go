// Package cache provides the in-process cache behind summary lookups.
package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/ariellewolter/research-notebook-ver4-sub004/application/ports"

	"go.uber.org/zap"
)

// MemoryCache is a TTL cache with LRU eviction once maxItems is reached
type MemoryCache struct {
	mu       sync.Mutex
	items    map[string]*list.Element
	lru      *list.List
	maxItems int
	now      func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
	logger   *zap.Logger
}

type cacheItem struct {
	key       string
	value     interface{}
	expiresAt time.Time
}

var _ ports.Cache = (*MemoryCache)(nil)

// NewMemoryCache creates a cache and starts its expiry sweeper. Call Close to
// stop the sweeper.
func NewMemoryCache(maxItems int, sweepInterval time.Duration, logger *zap.Logger) *MemoryCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &MemoryCache{
		items:    make(map[string]*list.Element),
		lru:      list.New(),
		maxItems: maxItems,
		now:      time.Now,
		stop:     make(chan struct{}),
		logger:   logger,
	}
	if sweepInterval > 0 {
		go c.sweep(sweepInterval)
	}
	return c
}

// Get returns a live value and marks it recently used
func (c *MemoryCache) Get(ctx context.Context, key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	item := el.Value.(*cacheItem)
	if c.now().After(item.expiresAt) {
		c.removeElement(el)
		return nil, false
	}
	c.lru.MoveToFront(el)
	return item.value, true
}

// Set stores value for ttl seconds
func (c *MemoryCache) Set(ctx context.Context, key string, value interface{}, ttl int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.now().Add(time.Duration(ttl) * time.Second)
	if el, ok := c.items[key]; ok {
		item := el.Value.(*cacheItem)
		item.value = value
		item.expiresAt = expiresAt
		c.lru.MoveToFront(el)
		return nil
	}

	c.items[key] = c.lru.PushFront(&cacheItem{key: key, value: value, expiresAt: expiresAt})
	for c.maxItems > 0 && c.lru.Len() > c.maxItems {
		c.removeElement(c.lru.Back())
	}
	return nil
}

// Delete removes a value
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.removeElement(el)
	}
	return nil
}

// Len returns the number of stored entries, expired ones included
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Close stops the sweeper
func (c *MemoryCache) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *MemoryCache) removeElement(el *list.Element) {
	c.lru.Remove(el)
	delete(c.items, el.Value.(*cacheItem).key)
}

func (c *MemoryCache) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.removeExpired()
		}
	}
}

func (c *MemoryCache) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for el := c.lru.Back(); el != nil; {
		prev := el.Prev()
		if now.After(el.Value.(*cacheItem).expiresAt) {
			c.removeElement(el)
			removed++
		}
		el = prev
	}
	if removed > 0 {
		c.logger.Debug("Swept expired cache entries", zap.Int("removed", removed))
	}
}
