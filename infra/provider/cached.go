package provider

import (
	"context"
	"log/slog"
	"time"

	"github.com/amirasaad/monetary/infra/cache"
	"github.com/amirasaad/monetary/pkg/exchange"
)

// CachedProvider decorates a provider with a rate cache. Only hits are
// cached; misses always reach the wrapped provider. A cached rate is
// served only while it is valid at the queried time.
type CachedProvider struct {
	next     exchange.ProviderSpi
	cache    cache.RateCache
	rateType exchange.RateType
	ttl      time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// NewCachedProvider creates a new CachedProvider.
func NewCachedProvider(
	next exchange.ProviderSpi,
	rateCache cache.RateCache,
	rateType exchange.RateType,
	ttl time.Duration,
	logger *slog.Logger,
) *CachedProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedProvider{
		next:     next,
		cache:    rateCache,
		rateType: rateType,
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
	}
}

// Name returns the wrapped provider's name.
func (c *CachedProvider) Name() string { return c.next.Name() }

// Rate returns the cached rate for q or asks the wrapped provider. A
// context marked with cache.WithRefresh always asks the wrapped provider.
func (c *CachedProvider) Rate(ctx context.Context, q exchange.Query) (*exchange.ExchangeRate, bool) {
	key := cache.Key(c.rateType, q)

	if !cache.IsRefresh(ctx) {
		if rate := c.cached(ctx, key, q); rate != nil {
			c.logger.Debug("Cache hit for exchange rate", "key", key)
			return rate, true
		}
		c.logger.Debug("Cache miss for exchange rate, fetching from next provider", "key", key)
	}

	rate, ok := c.next.Rate(ctx, q)
	if !ok {
		return nil, false
	}

	if err := c.cache.Set(ctx, key, rate, c.ttl); err != nil {
		c.logger.Error("Error setting cache for exchange rate", "key", key, "error", err)
	}
	return rate, true
}

// IsAvailable reports whether a valid rate is cached or the wrapped
// provider can answer q.
func (c *CachedProvider) IsAvailable(ctx context.Context, q exchange.Query) bool {
	if c.cached(ctx, cache.Key(c.rateType, q), q) != nil {
		return true
	}
	return c.next.IsAvailable(ctx, q)
}

// cached returns the cached rate for key when it is valid at q.At, or now
// for current queries. Entries past their window are evicted.
func (c *CachedProvider) cached(ctx context.Context, key string, q exchange.Query) *exchange.ExchangeRate {
	rate, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Error("Error getting from cache", "key", key, "error", err)
		return nil
	}
	if rate == nil {
		return nil
	}
	at := q.At
	if at.IsZero() {
		at = c.now()
	}
	if rate.IsValidAt(at) {
		return rate
	}
	c.logger.Debug("Cached exchange rate not valid at query time", "key", key, "at", at)
	if err := c.cache.Delete(ctx, key); err != nil {
		c.logger.Error("Error deleting stale exchange rate", "key", key, "error", err)
	}
	return nil
}

var _ exchange.ProviderSpi = (*CachedProvider)(nil)
