package exchange

import (
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Derive composes rates into one derived rate from the first link's source
// to the last link's target. The factor is the product of the link factors,
// the validity window is the intersection of the link windows and the
// provider lists each distinct link provider in order.
//
// A single rate is returned as a copy re-typed to rateType.
func Derive(rateType RateType, rates ...*ExchangeRate) (*ExchangeRate, error) {
	if len(rates) == 0 {
		return nil, &ChainError{Index: -1, Reason: "empty chain"}
	}
	for i, r := range rates {
		if r == nil {
			return nil, &ChainError{Index: i, Reason: "nil link"}
		}
	}

	factor := decimal.NewFromInt(1)
	var from, until time.Time
	var providers []string
	for _, r := range rates {
		factor = factor.Mul(r.factor)
		if !r.validFrom.IsZero() && (from.IsZero() || r.validFrom.After(from)) {
			from = r.validFrom
		}
		if !r.validUntil.IsZero() && (until.IsZero() || r.validUntil.Before(until)) {
			until = r.validUntil
		}
		if r.provider != "" && !slices.Contains(providers, r.provider) {
			providers = append(providers, r.provider)
		}
	}
	if !from.IsZero() && !until.IsZero() && !until.After(from) {
		return nil, &ChainError{Index: -1, Reason: "link validity windows do not overlap"}
	}

	b := NewBuilder(rateType).
		Source(rates[0].source).
		Target(rates[len(rates)-1].target).
		SourceLeadingFactor(factor).
		Chain(rates...).
		Provider(strings.Join(providers, ","))
	if !from.IsZero() {
		b.ValidFrom(from)
	}
	if !until.IsZero() {
		b.ValidUntil(until)
	}
	rate, err := b.Build()
	if err != nil {
		var chainErr *ChainError
		if errors.As(err, &chainErr) {
			return nil, chainErr
		}
		return nil, err
	}
	return rate, nil
}
