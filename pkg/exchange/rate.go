// Package exchange models exchange rates between currency units, their
// composition into derived chains, and the registry of rate providers.
//
// Invariants:
//   - An ExchangeRate is immutable once built.
//   - A direct rate's chain is [itself]; a derived rate's chain has more
//     than one link and is continuous: chain[i].Target == chain[i+1].Source,
//     Source == chain[0].Source, Target == chain[last].Target.
//   - source amount × factor = target amount.
//   - Validity windows are half open: ValidFrom <= t < ValidUntil.
package exchange

import (
	"encoding/json"
	"maps"
	"time"

	"github.com/amirasaad/monetary/pkg/money"
	"github.com/shopspring/decimal"
)

// RateType selects the data source or policy a rate is resolved against.
type RateType string

// Well known rate types. RateTypeDefault labels rates from sources that
// carry no rate type of their own.
const (
	RateTypeDefault  RateType = "DEFAULT"
	RateTypeIdentity RateType = "IDENT"
	RateTypeECB      RateType = "ECB"
	RateTypeIMF      RateType = "IMF"
)

// String returns the rate type identifier.
func (t RateType) String() string { return string(t) }

// Query describes a rate lookup. A zero At means "current".
type Query struct {
	Source money.Currency
	Target money.Currency
	At     time.Time
}

// ExchangeRate is a source→target factor, possibly composed from a chain of
// rates.
type ExchangeRate struct {
	rateType   RateType
	source     money.Currency
	target     money.Currency
	factor     decimal.Decimal
	chain      []*ExchangeRate
	validFrom  time.Time
	validUntil time.Time
	provider   string
	attributes map[string]string
}

// RateType returns the rate type the rate belongs to.
func (r *ExchangeRate) RateType() RateType { return r.rateType }

// Source returns the base currency.
func (r *ExchangeRate) Source() money.Currency { return r.source }

// Target returns the term currency.
func (r *ExchangeRate) Target() money.Currency { return r.target }

// Factor returns the multiplier applied to source amounts.
func (r *ExchangeRate) Factor() decimal.Decimal { return r.factor }

// Chain returns the links the rate is composed of; [r] for a direct rate.
func (r *ExchangeRate) Chain() []*ExchangeRate {
	if len(r.chain) == 0 {
		return []*ExchangeRate{r}
	}
	out := make([]*ExchangeRate, len(r.chain))
	copy(out, r.chain)
	return out
}

// IsDerived reports whether the rate is composed of more than one link.
func (r *ExchangeRate) IsDerived() bool { return len(r.chain) > 1 }

// IsIdentity reports whether the factor is exactly one.
func (r *ExchangeRate) IsIdentity() bool { return r.factor.Equal(decimal.NewFromInt(1)) }

// ValidFrom returns the start of the validity window; zero means unbounded.
func (r *ExchangeRate) ValidFrom() time.Time { return r.validFrom }

// ValidUntil returns the exclusive end of the validity window; zero means unbounded.
func (r *ExchangeRate) ValidUntil() time.Time { return r.validUntil }

// IsValidAt reports whether t lies in [ValidFrom, ValidUntil).
func (r *ExchangeRate) IsValidAt(t time.Time) bool {
	if !r.validFrom.IsZero() && t.Before(r.validFrom) {
		return false
	}
	if !r.validUntil.IsZero() && !t.Before(r.validUntil) {
		return false
	}
	return true
}

// Provider names the data origin.
func (r *ExchangeRate) Provider() string { return r.provider }

// Attribute returns an extension attribute.
func (r *ExchangeRate) Attribute(key string) (string, bool) {
	v, ok := r.attributes[key]
	return v, ok
}

// Attributes returns a copy of the extension attributes.
func (r *ExchangeRate) Attributes() map[string]string {
	return maps.Clone(r.attributes)
}

// Reciprocal returns a direct rate from target to source with factor 1/f,
// carrying the same rate type, validity and provider.
func (r *ExchangeRate) Reciprocal() *ExchangeRate {
	return &ExchangeRate{
		rateType:   r.rateType,
		source:     r.target,
		target:     r.source,
		factor:     decimal.NewFromInt(1).Div(r.factor),
		validFrom:  r.validFrom,
		validUntil: r.validUntil,
		provider:   r.provider,
		attributes: maps.Clone(r.attributes),
	}
}

// String renders the rate as "USD→EUR 0.92 (ECB)".
func (r *ExchangeRate) String() string {
	return r.source.String() + "→" + r.target.String() + " " + r.factor.String() + " (" + string(r.rateType) + ")"
}

type rateJSON struct {
	RateType   RateType          `json:"rate_type"`
	Source     money.Currency    `json:"source"`
	Target     money.Currency    `json:"target"`
	Factor     decimal.Decimal   `json:"factor"`
	Chain      []*ExchangeRate   `json:"chain,omitempty"`
	ValidFrom  *time.Time        `json:"valid_from,omitempty"`
	ValidUntil *time.Time        `json:"valid_until,omitempty"`
	Provider   string            `json:"provider,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// MarshalJSON implements json.Marshaler interface.
func (r *ExchangeRate) MarshalJSON() ([]byte, error) {
	out := rateJSON{
		RateType:   r.rateType,
		Source:     r.source,
		Target:     r.target,
		Factor:     r.factor,
		Provider:   r.provider,
		Attributes: r.attributes,
	}
	if r.IsDerived() {
		out.Chain = r.chain
	}
	if !r.validFrom.IsZero() {
		out.ValidFrom = &r.validFrom
	}
	if !r.validUntil.IsZero() {
		out.ValidUntil = &r.validUntil
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler interface. The decoded rate is
// validated like Builder.Build, chain continuity included.
func (r *ExchangeRate) UnmarshalJSON(data []byte) error {
	var in rateJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	b := NewBuilder(in.RateType).
		Source(in.Source).
		Target(in.Target).
		SourceLeadingFactor(in.Factor).
		Provider(in.Provider).
		Chain(in.Chain...)
	if in.ValidFrom != nil {
		b.ValidFrom(*in.ValidFrom)
	}
	if in.ValidUntil != nil {
		b.ValidUntil(*in.ValidUntil)
	}
	for k, v := range in.Attributes {
		b.Attribute(k, v)
	}
	built, err := b.Build()
	if err != nil {
		return err
	}
	*r = *built
	return nil
}
