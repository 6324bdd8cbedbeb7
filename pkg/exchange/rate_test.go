package exchange

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/amirasaad/monetary/pkg/money"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	usd = money.MustCurrency(money.USD, 2)
	eur = money.MustCurrency(money.EUR, 2)
	chf = money.MustCurrency(money.CHF, 2)
	gbp = money.MustCurrency(money.GBP, 2)
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func direct(t *testing.T, from, to money.Currency, factor string) *ExchangeRate {
	t.Helper()
	r, err := NewBuilder(RateTypeECB).
		Source(from).
		Target(to).
		SourceLeadingFactor(dec(factor)).
		Provider("test").
		Build()
	require.NoError(t, err)
	return r
}

func TestBuilder_Validation(t *testing.T) {
	tests := []struct {
		name    string
		build   func() *Builder
		wantErr error
	}{
		{
			name: "missing source",
			build: func() *Builder {
				return NewBuilder(RateTypeECB).Target(eur).SourceLeadingFactor(dec("0.9"))
			},
			wantErr: ErrMissingSource,
		},
		{
			name: "missing target",
			build: func() *Builder {
				return NewBuilder(RateTypeECB).Source(usd).SourceLeadingFactor(dec("0.9"))
			},
			wantErr: ErrMissingTarget,
		},
		{
			name: "missing factor",
			build: func() *Builder {
				return NewBuilder(RateTypeECB).Source(usd).Target(eur)
			},
			wantErr: ErrMissingFactor,
		},
		{
			name: "negative factor",
			build: func() *Builder {
				return NewBuilder(RateTypeECB).Source(usd).Target(eur).SourceLeadingFactor(dec("-1"))
			},
			wantErr: ErrInvalidRate,
		},
		{
			name: "zero target leading factor",
			build: func() *Builder {
				return NewBuilder(RateTypeECB).Source(usd).Target(eur).TargetLeadingFactor(decimal.Zero)
			},
			wantErr: ErrInvalidRate,
		},
		{
			name: "inverted window",
			build: func() *Builder {
				return NewBuilder(RateTypeECB).Source(usd).Target(eur).SourceLeadingFactor(dec("0.9")).
					ValidFrom(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)).
					ValidUntil(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
			},
			wantErr: ErrInvalidRate,
		},
		{
			name: "valid",
			build: func() *Builder {
				return NewBuilder(RateTypeECB).Source(usd).Target(eur).SourceLeadingFactor(dec("0.9"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := tt.build()
			rate, err := b.Build()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, rate)
				assert.False(t, b.IsBuildable())
				return
			}
			require.NoError(t, err)
			assert.True(t, b.IsBuildable())
			assert.NotNil(t, rate)
		})
	}
}

func TestBuilder_TargetLeadingFactor(t *testing.T) {
	r, err := NewBuilder(RateTypeECB).
		Source(eur).
		Target(usd).
		TargetLeadingFactor(dec("0.8")).
		Build()
	require.NoError(t, err)
	assert.True(t, r.Factor().Equal(dec("1.25")))
}

func TestExchangeRate_DirectChainIsItself(t *testing.T) {
	r := direct(t, usd, eur, "0.92")

	chain := r.Chain()
	require.Len(t, chain, 1)
	assert.Same(t, r, chain[0])
	assert.False(t, r.IsDerived())
	assert.Equal(t, "ISO-4217", r.Source().Namespace())
	assert.Equal(t, "USD→EUR 0.92 (ECB)", r.String())
}

func TestExchangeRate_ChainContinuity(t *testing.T) {
	usdEur := direct(t, usd, eur, "0.92")
	eurChf := direct(t, eur, chf, "0.95")
	gbpChf := direct(t, gbp, chf, "1.1")

	t.Run("continuous chain builds", func(t *testing.T) {
		r, err := NewBuilder(RateTypeECB).
			Source(usd).
			Target(chf).
			SourceLeadingFactor(dec("0.874")).
			Chain(usdEur, eurChf).
			Build()
		require.NoError(t, err)
		assert.True(t, r.IsDerived())
		assert.Equal(t, []*ExchangeRate{usdEur, eurChf}, r.Chain())
	})

	t.Run("gap between links", func(t *testing.T) {
		_, err := NewBuilder(RateTypeECB).
			Source(usd).
			Target(chf).
			SourceLeadingFactor(dec("1")).
			Chain(usdEur, gbpChf).
			Build()
		var chainErr *ChainError
		require.ErrorAs(t, err, &chainErr)
		assert.Equal(t, 1, chainErr.Index)
		assert.ErrorIs(t, err, ErrBrokenChain)
	})

	t.Run("chain start differs from source", func(t *testing.T) {
		_, err := NewBuilder(RateTypeECB).
			Source(gbp).
			Target(chf).
			SourceLeadingFactor(dec("1")).
			Chain(usdEur, eurChf).
			Build()
		var chainErr *ChainError
		require.ErrorAs(t, err, &chainErr)
		assert.Equal(t, 0, chainErr.Index)
	})

	t.Run("chain end differs from target", func(t *testing.T) {
		_, err := NewBuilder(RateTypeECB).
			Source(usd).
			Target(gbp).
			SourceLeadingFactor(dec("1")).
			Chain(usdEur, eurChf).
			Build()
		var chainErr *ChainError
		require.ErrorAs(t, err, &chainErr)
		assert.Equal(t, 1, chainErr.Index)
	})

	t.Run("chain copy is detached", func(t *testing.T) {
		r, err := Derive(RateTypeECB, usdEur, eurChf)
		require.NoError(t, err)
		chain := r.Chain()
		chain[0] = gbpChf
		assert.Same(t, usdEur, r.Chain()[0])
	})
}

func TestExchangeRate_IsValidAt(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	until := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	r, err := NewBuilder(RateTypeECB).
		Source(usd).Target(eur).SourceLeadingFactor(dec("0.9")).
		ValidFrom(from).ValidUntil(until).
		Build()
	require.NoError(t, err)

	assert.False(t, r.IsValidAt(from.Add(-time.Second)))
	assert.True(t, r.IsValidAt(from))
	assert.True(t, r.IsValidAt(until.Add(-time.Nanosecond)))
	assert.False(t, r.IsValidAt(until))
}

func TestDerive(t *testing.T) {
	jan := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	usdEur, err := NewBuilder(RateTypeECB).Source(usd).Target(eur).
		SourceLeadingFactor(dec("0.9")).ValidFrom(jan).ValidUntil(mar).Provider("ecb").Build()
	require.NoError(t, err)
	eurChf, err := NewBuilder(RateTypeECB).Source(eur).Target(chf).
		SourceLeadingFactor(dec("0.95")).ValidFrom(feb).Provider("snb").Build()
	require.NoError(t, err)

	r, err := Derive(RateTypeECB, usdEur, eurChf)
	require.NoError(t, err)
	assert.True(t, r.Factor().Equal(dec("0.855")))
	assert.Equal(t, feb, r.ValidFrom())
	assert.Equal(t, mar, r.ValidUntil())
	assert.Equal(t, "ecb,snb", r.Provider())
	assert.True(t, r.Source().SameCurrency(usd))
	assert.True(t, r.Target().SameCurrency(chf))

	t.Run("disjoint windows", func(t *testing.T) {
		early, err := NewBuilder(RateTypeECB).Source(eur).Target(chf).
			SourceLeadingFactor(dec("0.95")).ValidUntil(jan).Build()
		require.NoError(t, err)
		_, err = Derive(RateTypeECB, usdEur, early)
		assert.ErrorIs(t, err, ErrBrokenChain)
	})

	t.Run("broken chain", func(t *testing.T) {
		_, err := Derive(RateTypeECB, usdEur, usdEur)
		var chainErr *ChainError
		require.ErrorAs(t, err, &chainErr)
		assert.Equal(t, 1, chainErr.Index)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := Derive(RateTypeECB)
		assert.ErrorIs(t, err, ErrBrokenChain)
	})
}

func TestExchangeRate_Reciprocal(t *testing.T) {
	r := direct(t, eur, usd, "0.8").Reciprocal()
	assert.True(t, r.Source().SameCurrency(usd))
	assert.True(t, r.Target().SameCurrency(eur))
	assert.True(t, r.Factor().Equal(dec("1.25")))
}

func TestExchangeRate_JSON(t *testing.T) {
	usdEur := direct(t, usd, eur, "0.92")
	eurChf := direct(t, eur, chf, "0.95")
	derived, err := Derive(RateTypeECB, usdEur, eurChf)
	require.NoError(t, err)

	data, err := json.Marshal(derived)
	require.NoError(t, err)

	var decoded ExchangeRate
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, decoded.Factor().Equal(derived.Factor()))
	assert.True(t, decoded.IsDerived())
	assert.Len(t, decoded.Chain(), 2)

	t.Run("broken chain is rejected", func(t *testing.T) {
		raw := `{"rate_type":"ECB","factor":"1",
			"source":{"namespace":"ISO-4217","code":"USD","numeric_code":-1,"fraction_digits":2},
			"target":{"namespace":"ISO-4217","code":"CHF","numeric_code":-1,"fraction_digits":2},
			"chain":[
				{"rate_type":"ECB","factor":"0.9",
				 "source":{"namespace":"ISO-4217","code":"USD","numeric_code":-1,"fraction_digits":2},
				 "target":{"namespace":"ISO-4217","code":"EUR","numeric_code":-1,"fraction_digits":2}},
				{"rate_type":"ECB","factor":"1.1",
				 "source":{"namespace":"ISO-4217","code":"GBP","numeric_code":-1,"fraction_digits":2},
				 "target":{"namespace":"ISO-4217","code":"CHF","numeric_code":-1,"fraction_digits":2}}
			]}`
		var r ExchangeRate
		assert.ErrorIs(t, json.Unmarshal([]byte(raw), &r), ErrBrokenChain)
	})
}

func TestApply(t *testing.T) {
	rate := direct(t, chf, eur, "0.90")

	got, err := Apply(money.Must("100", chf), rate)
	require.NoError(t, err)
	assert.True(t, got.Currency().SameCurrency(eur))
	assert.True(t, got.Amount().Equal(dec("90")))

	_, err = Apply(money.Must("100", usd), rate)
	assert.ErrorIs(t, err, ErrSourceMismatch)
	assert.ErrorIs(t, err, ErrConversion)
}

func FuzzBuilder(f *testing.F) {
	f.Add("0.92", int64(0), int64(3600))
	f.Add("-1", int64(10), int64(5))
	f.Add("0", int64(0), int64(0))

	f.Fuzz(func(t *testing.T, factor string, fromSec, untilSec int64) {
		d, err := decimal.NewFromString(factor)
		if err != nil {
			t.Skip()
		}
		b := NewBuilder(RateTypeECB).Source(usd).Target(eur).SourceLeadingFactor(d)
		if fromSec != 0 {
			b.ValidFrom(time.Unix(fromSec, 0))
		}
		if untilSec != 0 {
			b.ValidUntil(time.Unix(untilSec, 0))
		}
		r, err := b.Build()
		assert.Equal(t, err == nil, b.IsBuildable())
		if err == nil {
			assert.True(t, r.Factor().IsPositive())
		}
	})
}
