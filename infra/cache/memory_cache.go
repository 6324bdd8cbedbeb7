package cache

import (
	"context"
	"sync"
	"time"

	"github.com/amirasaad/monetary/pkg/exchange"
)

const defaultCleanupInterval = 5 * time.Minute

// MemoryCache implements RateCache using in-memory storage
type MemoryCache struct {
	cache map[string]*cacheEntry
	mu    sync.RWMutex
	done  chan struct{}
	once  sync.Once
	now   func() time.Time
}

// NewMemoryCache creates a new in-memory cache. Expired entries are purged
// every interval until Close; a non-positive interval uses five minutes.
func NewMemoryCache(interval time.Duration) *MemoryCache {
	if interval <= 0 {
		interval = defaultCleanupInterval
	}
	cache := &MemoryCache{
		cache: make(map[string]*cacheEntry),
		done:  make(chan struct{}),
		now:   time.Now,
	}

	// Start cleanup goroutine
	go cache.cleanup(interval)

	return cache
}

// Get retrieves a rate from cache
func (c *MemoryCache) Get(_ context.Context, key string) (*exchange.ExchangeRate, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.cache[key]
	if !exists || entry.expired(c.now()) {
		return nil, nil
	}
	return entry.rate, nil
}

// Set stores a rate in cache with TTL. A non-positive TTL never expires.
func (c *MemoryCache) Set(
	_ context.Context,
	key string,
	rate *exchange.ExchangeRate,
	ttl time.Duration,
) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := &cacheEntry{rate: rate}
	if ttl > 0 {
		entry.expiresAt = c.now().Add(ttl)
	}
	c.cache[key] = entry
	return nil
}

// Delete removes a rate from cache
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.cache, key)
	return nil
}

// Len returns the number of stored entries, expired ones included until
// the next purge.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

// Close stops the cleanup goroutine.
func (c *MemoryCache) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}

// cleanup removes expired entries from cache
func (c *MemoryCache) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.purge()
		}
	}
}

func (c *MemoryCache) purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for key, entry := range c.cache {
		if entry.expired(now) {
			delete(c.cache, key)
		}
	}
}

type cacheEntry struct {
	rate      *exchange.ExchangeRate
	expiresAt time.Time
}

func (e *cacheEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}
