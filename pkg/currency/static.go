package currency

import (
	"slices"
	"time"

	"github.com/amirasaad/monetary/pkg/money"
)

// StaticProvider serves a fixed set of currency units. It is immutable after
// construction and safe for concurrent use.
type StaticProvider struct {
	name       string
	revisions  map[string][]money.Currency
	order      map[string][]money.Code
	namespaces []string
}

// NewStaticProvider creates a provider over the given units. Several units
// sharing a namespace and code are kept as historical revisions.
func NewStaticProvider(name string, currencies ...money.Currency) *StaticProvider {
	p := &StaticProvider{
		name:      name,
		revisions: make(map[string][]money.Currency),
		order:     make(map[string][]money.Code),
	}
	for _, c := range currencies {
		key := c.Key()
		if _, seen := p.revisions[key]; !seen {
			p.order[c.Namespace()] = append(p.order[c.Namespace()], c.Code())
		}
		p.revisions[key] = append(p.revisions[key], c)
	}
	for ns := range p.order {
		p.namespaces = append(p.namespaces, ns)
	}
	slices.Sort(p.namespaces)
	return p
}

// Name implements ProviderSpi.
func (p *StaticProvider) Name() string { return p.name }

// Namespaces implements ProviderSpi.
func (p *StaticProvider) Namespaces() []string {
	return slices.Clone(p.namespaces)
}

// Currency implements ProviderSpi. A zero at selects the revision valid now,
// falling back to the most recent revision for withdrawn currencies.
func (p *StaticProvider) Currency(namespace string, code money.Code, at time.Time) (money.Currency, bool) {
	revisions := p.revisions[money.Key(namespace, code)]
	if len(revisions) == 0 {
		return money.Currency{}, false
	}
	if !at.IsZero() {
		for _, c := range revisions {
			if c.IsValidAt(at) {
				return c, true
			}
		}
		return money.Currency{}, false
	}
	return current(revisions), true
}

// Currencies implements ProviderSpi.
func (p *StaticProvider) Currencies(namespace string) []money.Currency {
	codes := p.order[namespace]
	out := make([]money.Currency, 0, len(codes))
	for _, code := range codes {
		out = append(out, current(p.revisions[money.Key(namespace, code)]))
	}
	return out
}

func current(revisions []money.Currency) money.Currency {
	now := time.Now()
	latest := revisions[0]
	for _, c := range revisions {
		if c.IsValidAt(now) {
			return c
		}
		if endsLater(c, latest) {
			latest = c
		}
	}
	return latest
}

// endsLater orders revisions by the end of their window, open-ended first.
func endsLater(a, b money.Currency) bool {
	switch {
	case a.ValidUntil().IsZero():
		return !b.ValidUntil().IsZero()
	case b.ValidUntil().IsZero():
		return false
	default:
		return a.ValidUntil().After(b.ValidUntil())
	}
}

var _ ProviderSpi = (*StaticProvider)(nil)
