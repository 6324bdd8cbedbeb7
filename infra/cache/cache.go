// Package cache stores exchange rates for a limited time, in process or in
// Redis.
package cache

import (
	"context"
	"strings"
	"time"

	"github.com/amirasaad/monetary/pkg/exchange"
)

// RateCache stores exchange rates under string keys.
// Get returns (nil, nil) on a miss.
type RateCache interface {
	Get(ctx context.Context, key string) (*exchange.ExchangeRate, error)
	Set(ctx context.Context, key string, rate *exchange.ExchangeRate, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Key builds the cache key of a rate query. Timestamped queries get their
// own entry per UTC day.
func Key(rateType exchange.RateType, q exchange.Query) string {
	parts := []string{string(rateType), q.Source.Key(), q.Target.Key()}
	if !q.At.IsZero() {
		parts = append(parts, q.At.UTC().Format(time.DateOnly))
	}
	return strings.Join(parts, ":")
}

type refreshKey struct{}

// WithRefresh marks ctx so that cached providers skip the cache read and
// overwrite the entry with a fresh lookup.
func WithRefresh(ctx context.Context) context.Context {
	return context.WithValue(ctx, refreshKey{}, true)
}

// IsRefresh reports whether ctx was marked by WithRefresh.
func IsRefresh(ctx context.Context) bool {
	refresh, _ := ctx.Value(refreshKey{}).(bool)
	return refresh
}

var (
	_ RateCache = (*MemoryCache)(nil)
	_ RateCache = (*RedisCache)(nil)
)
