package exchange

import (
	"errors"
	"fmt"
	"time"

	"github.com/amirasaad/monetary/pkg/money"
	"github.com/shopspring/decimal"
)

// Builder assembles an ExchangeRate, either direct or derived from a chain.
// A Builder is not safe for concurrent use; confine it to one goroutine
// until Build.
type Builder struct {
	rateType   RateType
	source     money.Currency
	target     money.Currency
	factor     decimal.Decimal
	factorSet  bool
	chain      []*ExchangeRate
	validFrom  time.Time
	validUntil time.Time
	provider   string
	attributes map[string]string
	errs       []error
}

// NewBuilder starts a rate of the given type.
func NewBuilder(rateType RateType) *Builder {
	return &Builder{rateType: rateType}
}

// FromRate starts a builder holding a copy of rate's state.
func FromRate(rate *ExchangeRate) *Builder {
	b := &Builder{
		rateType:   rate.rateType,
		source:     rate.source,
		target:     rate.target,
		factor:     rate.factor,
		factorSet:  true,
		validFrom:  rate.validFrom,
		validUntil: rate.validUntil,
		provider:   rate.provider,
	}
	if rate.IsDerived() {
		b.chain = append([]*ExchangeRate(nil), rate.chain...)
	}
	for k, v := range rate.attributes {
		b.Attribute(k, v)
	}
	return b
}

// Source sets the base currency.
func (b *Builder) Source(c money.Currency) *Builder {
	b.source = c
	return b
}

// Target sets the term currency.
func (b *Builder) Target(c money.Currency) *Builder {
	b.target = c
	return b
}

// SourceLeadingFactor sets the factor so that source × f = target.
func (b *Builder) SourceLeadingFactor(f decimal.Decimal) *Builder {
	b.factor = f
	b.factorSet = true
	return b
}

// TargetLeadingFactor sets the factor from a quote expressed as target per
// source, storing its reciprocal 1/f.
func (b *Builder) TargetLeadingFactor(f decimal.Decimal) *Builder {
	if f.IsZero() {
		b.errs = append(b.errs, fmt.Errorf("%w: target leading factor must not be zero", ErrInvalidRate))
		return b
	}
	b.factor = decimal.NewFromInt(1).Div(f)
	b.factorSet = true
	return b
}

// Chain sets the links a derived rate is composed of. Omitted, or given a
// single link, the rate is direct.
func (b *Builder) Chain(rates ...*ExchangeRate) *Builder {
	b.chain = append([]*ExchangeRate(nil), rates...)
	return b
}

// ValidFrom sets the first instant the rate applies, inclusive.
func (b *Builder) ValidFrom(t time.Time) *Builder {
	b.validFrom = t.UTC()
	return b
}

// ValidUntil sets the instant the rate stops applying, exclusive.
func (b *Builder) ValidUntil(t time.Time) *Builder {
	b.validUntil = t.UTC()
	return b
}

// Provider names the data origin.
func (b *Builder) Provider(name string) *Builder {
	b.provider = name
	return b
}

// Attribute sets an opaque extension attribute.
func (b *Builder) Attribute(key, value string) *Builder {
	if b.attributes == nil {
		b.attributes = make(map[string]string)
	}
	b.attributes[key] = value
	return b
}

// validate is the single check behind both IsBuildable and Build.
func (b *Builder) validate() error {
	errs := append([]error(nil), b.errs...)
	if b.source.IsZero() {
		errs = append(errs, ErrMissingSource)
	}
	if b.target.IsZero() {
		errs = append(errs, ErrMissingTarget)
	}
	if !b.factorSet {
		errs = append(errs, ErrMissingFactor)
	} else if !b.factor.IsPositive() {
		errs = append(errs, fmt.Errorf("%w: factor %s must be positive", ErrInvalidRate, b.factor))
	}
	if !b.validFrom.IsZero() && !b.validUntil.IsZero() && !b.validUntil.After(b.validFrom) {
		errs = append(errs, fmt.Errorf("%w: valid until must be after valid from", ErrInvalidRate))
	}
	if len(b.chain) > 0 && !b.source.IsZero() && !b.target.IsZero() {
		if err := checkChain(b.source, b.target, b.chain); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// checkChain verifies continuity between source, every link, and target.
func checkChain(source, target money.Currency, chain []*ExchangeRate) error {
	for i, link := range chain {
		if link == nil {
			return &ChainError{Index: i, Reason: "nil link"}
		}
	}
	if first := chain[0]; !first.source.SameCurrency(source) {
		return &ChainError{
			Index:  0,
			Reason: fmt.Sprintf("chain starts at %s, rate source is %s", first.source, source),
		}
	}
	for i := 0; i < len(chain)-1; i++ {
		if !chain[i].target.SameCurrency(chain[i+1].source) {
			return &ChainError{
				Index:  i + 1,
				Reason: fmt.Sprintf("%s does not continue from %s", chain[i+1].source, chain[i].target),
			}
		}
	}
	if last := chain[len(chain)-1]; !last.target.SameCurrency(target) {
		return &ChainError{
			Index:  len(chain) - 1,
			Reason: fmt.Sprintf("chain ends at %s, rate target is %s", last.target, target),
		}
	}
	return nil
}

// IsBuildable reports whether Build would succeed.
func (b *Builder) IsBuildable() bool {
	return b.validate() == nil
}

// Build validates the builder state and returns the rate.
func (b *Builder) Build() (*ExchangeRate, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}
	r := &ExchangeRate{
		rateType:   b.rateType,
		source:     b.source,
		target:     b.target,
		factor:     b.factor,
		validFrom:  b.validFrom,
		validUntil: b.validUntil,
		provider:   b.provider,
	}
	if len(b.chain) > 1 {
		r.chain = append([]*ExchangeRate(nil), b.chain...)
	}
	if len(b.attributes) > 0 {
		r.attributes = make(map[string]string, len(b.attributes))
		for k, v := range b.attributes {
			r.attributes[k] = v
		}
	}
	return r, nil
}
