// Package currency resolves currency units across pluggable providers.
//
// Several ProviderSpi implementations may serve the same namespace. They are
// consulted in registration order and the first match wins; a miss is always
// reported as an *money.UnknownCurrencyError, never substituted.
package currency

import (
	"log/slog"
	"sync"
	"time"

	"github.com/amirasaad/monetary/pkg/money"
	"github.com/amirasaad/monetary/pkg/registry"
)

// ProviderSpi is implemented by currency data sources.
type ProviderSpi interface {
	// Name identifies the provider; it must be unique per namespace.
	Name() string

	// Namespaces lists the namespaces the provider can answer for.
	Namespaces() []string

	// Currency returns the unit valid at at, or the current one for a zero at.
	Currency(namespace string, code money.Code, at time.Time) (money.Currency, bool)

	// Currencies lists the current units of a namespace.
	Currencies(namespace string) []money.Currency
}

// Loader enumerates providers on Reload.
type Loader func() []ProviderSpi

// Provider aggregates ProviderSpi instances into one logical namespace.
type Provider struct {
	spis   *registry.Registry[ProviderSpi]
	cache  sync.Map // money.Key → money.Currency
	loader Loader
	logger *slog.Logger
}

// Option configures a Provider.
type Option func(*Provider)

// WithLoader sets the function Reload uses to find providers.
func WithLoader(loader Loader) Option {
	return func(p *Provider) {
		p.loader = loader
	}
}

// New creates a provider over spis, in the given order.
func New(logger *slog.Logger, spis []ProviderSpi, opts ...Option) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Provider{
		spis:   registry.New[ProviderSpi](),
		logger: logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	for _, spi := range spis {
		p.Register(spi)
	}
	return p
}

// Register appends spi to every namespace it serves.
func (p *Provider) Register(spi ProviderSpi) {
	for _, ns := range spi.Namespaces() {
		if p.spis.Register(ns, spi.Name(), spi) {
			p.logger.Debug("Currency provider registered", "provider", spi.Name(), "namespace", ns)
		}
	}
}

// Reload asks the loader for providers and registers the ones not seen yet.
// Previously registered providers are never removed.
func (p *Provider) Reload() int {
	if p.loader == nil {
		return 0
	}
	added := 0
	for _, spi := range p.loader() {
		for _, ns := range spi.Namespaces() {
			added += p.spis.Merge(ns, []registry.Entry[ProviderSpi]{{Name: spi.Name(), Value: spi}})
		}
	}
	p.logger.Info("Currency providers reloaded", "added", added, "total", p.spis.Count())
	return added
}

// Get returns the current unit for namespace and code. An empty namespace
// means ISO 4217.
func (p *Provider) Get(namespace string, code money.Code) (money.Currency, error) {
	namespace = normalize(namespace)
	key := money.Key(namespace, code)
	if c, ok := p.cache.Load(key); ok {
		return c.(money.Currency), nil
	}

	c, ok := p.lookup(namespace, code, time.Time{})
	if !ok {
		return money.Currency{}, &money.UnknownCurrencyError{Namespace: namespace, Code: code}
	}
	p.cache.Store(key, c)
	return c, nil
}

// GetAt returns the unit valid at the given instant. Historical lookups
// bypass the process cache.
func (p *Provider) GetAt(namespace string, code money.Code, at time.Time) (money.Currency, error) {
	if at.IsZero() {
		return p.Get(namespace, code)
	}
	namespace = normalize(namespace)
	c, ok := p.lookup(namespace, code, at)
	if !ok {
		return money.Currency{}, &money.UnknownCurrencyError{Namespace: namespace, Code: code, At: at}
	}
	return c, nil
}

// MustGet is Get for package-level setup code; it panics on a miss.
func (p *Provider) MustGet(code money.Code) money.Currency {
	c, err := p.Get(money.DefaultNamespace, code)
	if err != nil {
		panic(err)
	}
	return c
}

// IsAvailable reports whether any provider knows the currency.
func (p *Provider) IsAvailable(namespace string, code money.Code) bool {
	_, err := p.Get(namespace, code)
	return err == nil
}

// Namespaces returns every namespace with at least one provider.
func (p *Provider) Namespaces() []string {
	return p.spis.Keys()
}

// Currencies lists the units of a namespace. When several providers know a
// code the first registered one wins.
func (p *Provider) Currencies(namespace string) []money.Currency {
	namespace = normalize(namespace)
	seen := make(map[money.Code]bool)
	var out []money.Currency
	for _, spi := range p.spis.Lookup(namespace) {
		for _, c := range spi.Currencies(namespace) {
			if seen[c.Code()] {
				continue
			}
			seen[c.Code()] = true
			out = append(out, c)
		}
	}
	return out
}

func (p *Provider) lookup(namespace string, code money.Code, at time.Time) (money.Currency, bool) {
	for _, spi := range p.spis.Lookup(namespace) {
		if c, ok := spi.Currency(namespace, code, at); ok {
			return c, true
		}
	}
	p.logger.Debug("Currency not found", "namespace", namespace, "code", code, "at", at)
	return money.Currency{}, false
}

func normalize(namespace string) string {
	if namespace == "" {
		return money.DefaultNamespace
	}
	return namespace
}
