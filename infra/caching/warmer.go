// Package caching keeps the rate cache warm for frequently used pairs.
package caching

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/amirasaad/monetary/infra/cache"
	"github.com/amirasaad/monetary/pkg/exchange"
	"github.com/amirasaad/monetary/pkg/money"
)

// RatesFetcher looks up the rates from one currency to several targets.
type RatesFetcher interface {
	Rates(
		ctx context.Context,
		rateType exchange.RateType,
		from money.Currency,
		to []money.Currency,
		at time.Time,
	) (map[string]*exchange.ExchangeRate, error)
}

// Warmer prefetches base→target rates so that cached providers answer
// them without going to the feed.
type Warmer struct {
	fetcher  RatesFetcher
	rateType exchange.RateType
	base     money.Currency
	targets  []money.Currency
	ttl      time.Duration
	logger   *slog.Logger
	now      func() time.Time

	mu          sync.Mutex
	lastUpdated time.Time

	stopChan chan struct{} // Channel to stop background refresh
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewWarmer creates a warmer for the given pairs. A non-positive ttl
// defaults to 15 minutes.
func NewWarmer(
	fetcher RatesFetcher,
	rateType exchange.RateType,
	base money.Currency,
	targets []money.Currency,
	ttl time.Duration,
	logger *slog.Logger,
) *Warmer {
	if ttl <= 0 {
		ttl = 15 * time.Minute // Default TTL if not configured
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Warmer{
		fetcher:  fetcher,
		rateType: rateType,
		base:     base,
		targets:  targets,
		ttl:      ttl,
		logger:   logger.With(slog.String("component", "rate_warmer")),
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
}

// LastUpdated returns when Warm last completed, zero if never.
func (w *Warmer) LastUpdated() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastUpdated
}

// IsStale reports whether a refresh is due and how long until the next
// one. The cache counts as stale once 80% of the TTL has passed.
func (w *Warmer) IsStale() (bool, time.Duration) {
	lastUpdated := w.LastUpdated()
	if lastUpdated.IsZero() {
		return true, 0
	}

	sinceLastUpdate := w.now().Sub(lastUpdated)
	refreshThreshold := time.Duration(float64(w.ttl) * 0.8)

	if sinceLastUpdate > w.ttl {
		return true, 0
	}
	if sinceLastUpdate > refreshThreshold {
		return true, w.ttl - sinceLastUpdate
	}
	return false, refreshThreshold - sinceLastUpdate
}

// Warm fetches every configured pair once and returns how many rates were
// found. Missing rates are logged and skipped. The lookups bypass cache
// reads so every entry is rewritten with a full TTL.
func (w *Warmer) Warm(ctx context.Context) (int, error) {
	if len(w.targets) == 0 {
		return 0, nil
	}
	rates, err := w.fetcher.Rates(cache.WithRefresh(ctx), w.rateType, w.base, w.targets, time.Time{})
	if err != nil {
		return 0, err
	}

	count := 0
	for key, rate := range rates {
		if rate == nil {
			w.logger.Warn("No rate to warm", "rate_type", w.rateType, "from", w.base, "to", key)
			continue
		}
		count++
	}

	w.mu.Lock()
	w.lastUpdated = w.now().UTC()
	w.mu.Unlock()

	w.logger.Info("Warmed exchange rate cache",
		"rate_type", w.rateType,
		"base", w.base,
		"num_rates", count,
	)
	return count, nil
}

// Start warms the cache now and again whenever it turns stale, until ctx
// is done or Close is called.
func (w *Warmer) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			if stale, _ := w.IsStale(); stale {
				if _, err := w.Warm(ctx); err != nil && !errors.Is(err, context.Canceled) {
					w.logger.Error("Failed to warm exchange rate cache", "error", err)
				}
			}
			_, wait := w.IsStale()
			if wait <= 0 {
				wait = time.Duration(float64(w.ttl) * 0.8)
			}
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-w.stopChan:
				timer.Stop()
				return
			case <-timer.C:
			}
		}
	}()
}

// Close stops the background refresh and waits for it to exit.
func (w *Warmer) Close() error {
	w.stopOnce.Do(func() { close(w.stopChan) })
	w.wg.Wait()
	return nil
}
