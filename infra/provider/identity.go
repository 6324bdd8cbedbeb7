package provider

import (
	"context"

	"github.com/amirasaad/monetary/pkg/exchange"
	"github.com/shopspring/decimal"
)

// IdentityProviderName is the name the identity provider registers under.
const IdentityProviderName = "identity"

// IdentityProvider answers same-currency queries with a factor of one.
type IdentityProvider struct{}

func (IdentityProvider) Name() string { return IdentityProviderName }

func (IdentityProvider) Rate(_ context.Context, q exchange.Query) (*exchange.ExchangeRate, bool) {
	if q.Source.IsZero() || !q.Source.SameCurrency(q.Target) {
		return nil, false
	}
	r, err := exchange.NewBuilder(exchange.RateTypeIdentity).
		Source(q.Source).
		Target(q.Target).
		SourceLeadingFactor(decimal.NewFromInt(1)).
		Provider(IdentityProviderName).
		Build()
	if err != nil {
		return nil, false
	}
	return r, true
}

func (IdentityProvider) IsAvailable(_ context.Context, q exchange.Query) bool {
	return !q.Source.IsZero() && q.Source.SameCurrency(q.Target)
}

var _ exchange.ProviderSpi = IdentityProvider{}
