package provider

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/amirasaad/monetary/pkg/exchange"
	"github.com/amirasaad/monetary/pkg/money"
	"github.com/shopspring/decimal"
)

// StaticRateProvider answers from a fixed table of direct rates.
type StaticRateProvider struct {
	name       string
	rateType   exchange.RateType
	rates      map[string][]*exchange.ExchangeRate
	base       money.Currency
	reciprocal bool
	logger     *slog.Logger
	now        func() time.Time
}

// StaticOption configures a StaticRateProvider.
type StaticOption func(*StaticRateProvider)

// WithBase enables triangulation over base: a missing source→target pair is
// derived as source→base→target when both legs are known.
func WithBase(base money.Currency) StaticOption {
	return func(p *StaticRateProvider) {
		p.base = base
	}
}

// WithReciprocal lets a target→source rate answer a source→target query
// with its reciprocal.
func WithReciprocal() StaticOption {
	return func(p *StaticRateProvider) {
		p.reciprocal = true
	}
}

// WithLogger sets the logger of a StaticRateProvider.
func WithLogger(logger *slog.Logger) StaticOption {
	return func(p *StaticRateProvider) {
		p.logger = logger
	}
}

// NewStaticRateProvider creates a provider serving rates. Several rates for
// the same pair are allowed when their validity windows differ.
func NewStaticRateProvider(
	name string,
	rateType exchange.RateType,
	rates []*exchange.ExchangeRate,
	opts ...StaticOption,
) *StaticRateProvider {
	p := &StaticRateProvider{
		name:     name,
		rateType: rateType,
		rates:    make(map[string][]*exchange.ExchangeRate, len(rates)),
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	for _, r := range rates {
		k := pairKey(r.Source(), r.Target())
		p.rates[k] = append(p.rates[k], r)
	}
	return p
}

func pairKey(source, target money.Currency) string {
	return source.Key() + "/" + target.Key()
}

// Name returns the provider name given at construction.
func (p *StaticRateProvider) Name() string { return p.name }

// Rate resolves q directly, then by reciprocal, then by triangulation over
// the base currency, in that order.
func (p *StaticRateProvider) Rate(_ context.Context, q exchange.Query) (*exchange.ExchangeRate, bool) {
	if q.Source.SameCurrency(q.Target) {
		return nil, false
	}
	at := q.At
	if at.IsZero() {
		at = p.now()
	}

	if r, ok := p.find(q.Source, q.Target, at, p.reciprocal); ok {
		return r, true
	}
	if p.base.IsZero() || p.base.SameCurrency(q.Source) || p.base.SameCurrency(q.Target) {
		return nil, false
	}

	toBase, ok := p.find(q.Source, p.base, at, true)
	if !ok {
		return nil, false
	}
	fromBase, ok := p.find(p.base, q.Target, at, true)
	if !ok {
		return nil, false
	}
	derived, err := exchange.Derive(p.rateType, toBase, fromBase)
	if err != nil {
		p.logger.Warn("Failed to triangulate exchange rate",
			"provider", p.name,
			"source", q.Source,
			"target", q.Target,
			"base", p.base,
			"error", err,
		)
		return nil, false
	}
	return derived, true
}

func (p *StaticRateProvider) find(source, target money.Currency, at time.Time, inverse bool) (*exchange.ExchangeRate, bool) {
	for _, r := range p.rates[pairKey(source, target)] {
		if r.IsValidAt(at) {
			return r, true
		}
	}
	if !inverse {
		return nil, false
	}
	for _, r := range p.rates[pairKey(target, source)] {
		if r.IsValidAt(at) {
			return r.Reciprocal(), true
		}
	}
	return nil, false
}

func (p *StaticRateProvider) IsAvailable(ctx context.Context, q exchange.Query) bool {
	_, ok := p.Rate(ctx, q)
	return ok
}

// CurrencyResolver looks up currencies by code.
type CurrencyResolver interface {
	Get(namespace string, code money.Code) (money.Currency, error)
}

// ParseRateTable parses a comma separated list of "FROM:TO=factor" entries,
// e.g. "USD:EUR=0.92,EUR:CHF=0.95", into direct rates of rateType.
func ParseRateTable(
	table string,
	rateType exchange.RateType,
	provider string,
	currencies CurrencyResolver,
) ([]*exchange.ExchangeRate, error) {
	var rates []*exchange.ExchangeRate
	for i, entry := range strings.Split(table, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		pair, factor, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("entry %d %q: missing '='", i, entry)
		}
		from, to, ok := strings.Cut(pair, ":")
		if !ok {
			return nil, fmt.Errorf("entry %d %q: pair must be FROM:TO", i, entry)
		}
		source, err := currencies.Get(money.DefaultNamespace, money.Code(strings.ToUpper(strings.TrimSpace(from))))
		if err != nil {
			return nil, fmt.Errorf("entry %d %q: %w", i, entry, err)
		}
		target, err := currencies.Get(money.DefaultNamespace, money.Code(strings.ToUpper(strings.TrimSpace(to))))
		if err != nil {
			return nil, fmt.Errorf("entry %d %q: %w", i, entry, err)
		}
		f, err := decimal.NewFromString(strings.TrimSpace(factor))
		if err != nil {
			return nil, fmt.Errorf("entry %d %q: invalid factor: %w", i, entry, err)
		}
		rate, err := exchange.NewBuilder(rateType).
			Source(source).
			Target(target).
			SourceLeadingFactor(f).
			Provider(provider).
			Build()
		if err != nil {
			return nil, fmt.Errorf("entry %d %q: %w", i, entry, err)
		}
		rates = append(rates, rate)
	}
	return rates, nil
}

var _ exchange.ProviderSpi = (*StaticRateProvider)(nil)
