package rounding

import (
	"testing"

	"github.com/amirasaad/monetary/pkg/money"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOf(t *testing.T) {
	usd := money.MustCurrency(money.USD, 2)
	tests := []struct {
		mode   Mode
		amount string
		want   string
	}{
		{HalfEven, "2.345", "2.34"},
		{HalfEven, "2.355", "2.36"},
		{HalfUp, "2.345", "2.35"},
		{HalfUp, "-2.345", "-2.35"},
		{Down, "2.349", "2.34"},
		{Down, "-2.349", "-2.34"},
		{Up, "2.341", "2.35"},
		{Up, "-2.341", "-2.35"},
		{Floor, "-2.341", "-2.35"},
		{Ceiling, "-2.349", "-2.34"},
	}

	for _, tt := range tests {
		t.Run(tt.mode.String()+"/"+tt.amount, func(t *testing.T) {
			got := Of(2, tt.mode)(money.Must(tt.amount, usd))
			assert.True(t, got.Amount().Equal(decimal.RequireFromString(tt.want)), "got %s", got.Amount())
			assert.True(t, got.Currency().SameCurrency(usd))
		})
	}
}

func TestForCurrency(t *testing.T) {
	jpy := money.MustCurrency(money.JPY, 0)
	kwd := money.MustCurrency(money.KWD, 3)
	xau, err := money.NewCurrencyBuilder("XAU").FractionDigits(-1).Virtual(true).Build()
	require.NoError(t, err)

	assert.Equal(t, "124 JPY", ForCurrency(jpy)(money.Must("123.5", jpy)).String())
	assert.Equal(t, "1.234 KWD", ForCurrency(kwd)(money.Must("1.2345", kwd)).String())

	ounces := money.Must("1.23456789", xau)
	assert.True(t, ForCurrency(xau)(ounces).Amount().Equal(ounces.Amount()))
}

func TestProvider(t *testing.T) {
	chf := money.MustCurrency(money.CHF, 2)
	usd := money.MustCurrency(money.USD, 2)
	p := NewProvider()

	// Swiss cash rounding to 0.05.
	p.Register(chf.Key(), func(m money.Money) money.Money {
		twenty := decimal.NewFromInt(20)
		return m.WithAmount(m.Amount().Mul(twenty).Round(0).Div(twenty))
	})

	assert.Equal(t, "1.05 CHF", p.Get(chf)(money.Must("1.03", chf)).String())
	assert.Equal(t, "1.02 USD", p.Get(usd)(money.Must("1.025", usd)).String())
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("HALF_UP")
	require.NoError(t, err)
	assert.Equal(t, HalfUp, m)

	_, err = ParseMode("sideways")
	assert.Error(t, err)
}
