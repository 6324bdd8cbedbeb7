package exchange

import (
	"context"
	"log/slog"
	"sync"

	"github.com/amirasaad/monetary/pkg/registry"
)

// ProviderSpi is implemented by exchange rate sources. Failures inside a
// provider (an unreachable feed, a malformed payload) are handled by the
// provider and reported as "not found".
type ProviderSpi interface {
	// Name identifies the provider; it must be unique per rate type.
	Name() string

	// Rate returns the rate for q, or false when the provider has none.
	Rate(ctx context.Context, q Query) (*ExchangeRate, bool)

	// IsAvailable reports whether Rate would answer q.
	IsAvailable(ctx context.Context, q Query) bool
}

// Loader enumerates providers per rate type on Reload.
type Loader func() map[RateType][]ProviderSpi

// Registry maps rate types to the providers that supply them.
// Registration only ever adds providers.
type Registry struct {
	spis   *registry.Registry[ProviderSpi]
	loader Loader
	logger *slog.Logger
	mu     sync.Mutex // serializes Reload
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLoader sets the function Reload uses to find providers.
func WithLoader(loader Loader) RegistryOption {
	return func(r *Registry) {
		r.loader = loader
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger, opts ...RegistryOption) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		spis:   registry.New[ProviderSpi](),
		logger: logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register appends spi to the providers of rateType. Registering the same
// provider name twice for a rate type is a no-op.
func (r *Registry) Register(rateType RateType, spi ProviderSpi) *Registry {
	if r.spis.Register(string(rateType), spi.Name(), spi) {
		r.logger.Info("Exchange rate provider registered",
			"rate_type", rateType,
			"provider", spi.Name(),
		)
	}
	return r
}

// Reload asks the loader for providers and registers the ones not seen yet.
// Previously registered providers are never removed.
func (r *Registry) Reload() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.loader == nil {
		return 0
	}
	added := 0
	for rateType, spis := range r.loader() {
		entries := make([]registry.Entry[ProviderSpi], 0, len(spis))
		for _, spi := range spis {
			entries = append(entries, registry.Entry[ProviderSpi]{Name: spi.Name(), Value: spi})
		}
		added += r.spis.Merge(string(rateType), entries)
	}
	r.logger.Info("Exchange rate providers reloaded", "added", added, "total", r.spis.Count())
	return added
}

// RateTypes returns the rate types with at least one provider.
func (r *Registry) RateTypes() []RateType {
	keys := r.spis.Keys()
	out := make([]RateType, 0, len(keys))
	for _, k := range keys {
		out = append(out, RateType(k))
	}
	return out
}

// ProviderNames returns the provider names of rateType in registration order.
func (r *Registry) ProviderNames(rateType RateType) []string {
	return r.spis.Names(string(rateType))
}

// Provider returns the facade over the providers of rateType, or false
// when none is registered.
func (r *Registry) Provider(rateType RateType) (*RateProvider, bool) {
	if !r.spis.Has(string(rateType)) {
		return nil, false
	}
	return &RateProvider{rateType: rateType, registry: r}, true
}

// RateProvider is the logical provider of one rate type. It reads the
// registry on every call, so providers added by Reload are seen at once.
type RateProvider struct {
	rateType RateType
	registry *Registry
}

// RateType returns the rate type the facade serves.
func (p *RateProvider) RateType() RateType { return p.rateType }

// Get returns the first rate found, trying providers in registration order.
// A miss is reported as false, never as an error.
func (p *RateProvider) Get(ctx context.Context, q Query) (*ExchangeRate, bool) {
	for _, spi := range p.registry.spis.Lookup(string(p.rateType)) {
		if rate, ok := spi.Rate(ctx, q); ok && rate != nil {
			return rate, true
		}
	}
	p.registry.logger.Debug("No exchange rate found",
		"rate_type", p.rateType,
		"source", q.Source,
		"target", q.Target,
	)
	return nil, false
}

// IsAvailable reports whether any provider can answer q. It stops at the
// first provider that can.
func (p *RateProvider) IsAvailable(ctx context.Context, q Query) bool {
	for _, spi := range p.registry.spis.Lookup(string(p.rateType)) {
		if spi.IsAvailable(ctx, q) {
			return true
		}
	}
	return false
}
