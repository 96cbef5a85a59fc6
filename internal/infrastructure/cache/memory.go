package cache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/formaudit/backend/internal/domain"
)

const defaultCleanupInterval = time.Minute

// cacheItem represents a single item in the cache with expiration
type cacheItem struct {
	Value      interface{}
	Expiration time.Time
}

// Config holds configuration for the memory cache
type Config struct {
	CleanupInterval time.Duration
	Logger          *zap.Logger
}

// MemoryCache is a thread-safe in-memory cache with TTL support. Values are
// stored as given, so callers may keep live objects (such as per-traversal
// detectors) in it. Call Close to stop the cleanup goroutine.
type MemoryCache struct {
	data   map[string]cacheItem
	mutex  sync.RWMutex
	logger *zap.Logger

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewMemoryCache creates a new in-memory cache
func NewMemoryCache(config Config) *MemoryCache {
	interval := config.CleanupInterval
	if interval <= 0 {
		interval = defaultCleanupInterval
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	cache := &MemoryCache{
		data:   make(map[string]cacheItem),
		logger: logger,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}

	go cache.cleanupExpired(interval)

	return cache
}

// Get retrieves a value from the cache
func (c *MemoryCache) Get(ctx context.Context, key string) (interface{}, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	item, exists := c.data[key]
	if !exists {
		return nil, domain.ErrCacheMiss
	}

	// Check if expired
	if time.Now().After(item.Expiration) {
		return nil, domain.ErrCacheMiss
	}

	return item.Value, nil
}

// Set stores a value in the cache with TTL
func (c *MemoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.data[key] = cacheItem{
		Value:      value,
		Expiration: time.Now().Add(ttl),
	}

	return nil
}

// Delete removes a value from the cache
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.data, key)
	return nil
}

// Exists checks if a key exists in the cache and is not expired
func (c *MemoryCache) Exists(ctx context.Context, key string) (bool, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	item, exists := c.data[key]
	if !exists {
		return false, nil
	}

	return !time.Now().After(item.Expiration), nil
}

// Close stops the cleanup goroutine and waits for it to exit. It is safe to
// call more than once.
func (c *MemoryCache) Close() error {
	c.closeOnce.Do(func() {
		close(c.stop)
	})
	<-c.done
	return nil
}

// cleanupExpired removes expired entries from the cache periodically
func (c *MemoryCache) cleanupExpired(interval time.Duration) {
	defer close(c.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			if removed := c.removeExpired(time.Now()); removed > 0 {
				c.logger.Debug("evicted expired cache entries", zap.Int("count", removed))
			}
		}
	}
}

func (c *MemoryCache) removeExpired(now time.Time) int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	removed := 0
	for key, item := range c.data {
		if now.After(item.Expiration) {
			delete(c.data, key)
			removed++
		}
	}
	return removed
}

// Size returns the current number of items in the cache, expired or not
func (c *MemoryCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.data)
}

// Clear removes all items from the cache
func (c *MemoryCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.data = make(map[string]cacheItem)
}
