// Package money provides currency units and monetary amounts.
//
// Money is a value object that represents a decimal amount in a specific currency.
// Invariants:
//   - Amounts are exact decimals; no binary floating point is involved.
//   - Arithmetic never rounds. Rounding to a currency scale is explicit
//     (see package rounding).
//   - Add and Subtract require matching currencies.
package money

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Money represents a monetary value in a specific currency.
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// New creates a Money value. The currency must not be the zero Currency.
func New(amount decimal.Decimal, currency Currency) (Money, error) {
	if currency.IsZero() {
		return Money{}, fmt.Errorf("%w: currency is required", ErrInvalidCurrency)
	}
	return Money{amount: amount, currency: currency}, nil
}

// NewFromString parses amount as a decimal literal.
func NewFromString(amount string, currency Currency) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q: %w", ErrInvalidAmount, amount, err)
	}
	return New(d, currency)
}

// NewFromInt creates a Money value from a whole number of major units.
func NewFromInt(amount int64, currency Currency) (Money, error) {
	return New(decimal.NewFromInt(amount), currency)
}

// Zero creates a Money object with zero amount in the specified currency.
func Zero(currency Currency) Money {
	return Money{amount: decimal.Zero, currency: currency}
}

// Must creates a Money value from a decimal literal and panics on error.
func Must(amount string, currency Currency) Money {
	m, err := NewFromString(amount, currency)
	if err != nil {
		panic(fmt.Sprintf("money.Must(%q, %v): %v", amount, currency, err))
	}
	return m
}

// Amount returns the numeric value.
func (m Money) Amount() decimal.Decimal { return m.amount }

// Currency returns the currency of the amount.
func (m Money) Currency() Currency { return m.currency }

// CurrencyCode returns the currency code of the amount.
func (m Money) CurrencyCode() Code { return m.currency.code }

// WithAmount returns a copy carrying a different numeric value.
func (m Money) WithAmount(amount decimal.Decimal) Money {
	return Money{amount: amount, currency: m.currency}
}

// Add returns the sum of two amounts in the same currency.
func (m Money) Add(other Money) (Money, error) {
	if !m.currency.SameCurrency(other.currency) {
		return Money{}, fmt.Errorf(
			"%w: cannot add %s and %s",
			ErrMismatchedCurrencies,
			m.currency,
			other.currency,
		)
	}
	return m.WithAmount(m.amount.Add(other.amount)), nil
}

// Subtract returns the difference of two amounts in the same currency.
// The result can be negative.
func (m Money) Subtract(other Money) (Money, error) {
	if !m.currency.SameCurrency(other.currency) {
		return Money{}, fmt.Errorf(
			"%w: cannot subtract %s and %s",
			ErrMismatchedCurrencies,
			m.currency,
			other.currency,
		)
	}
	return m.WithAmount(m.amount.Sub(other.amount)), nil
}

// Multiply scales the amount by factor without rounding.
func (m Money) Multiply(factor decimal.Decimal) Money {
	return m.WithAmount(m.amount.Mul(factor))
}

// Negate returns the amount with its sign flipped.
func (m Money) Negate() Money {
	return m.WithAmount(m.amount.Neg())
}

// Abs returns the absolute value of the amount.
func (m Money) Abs() Money {
	return m.WithAmount(m.amount.Abs())
}

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool { return m.amount.IsZero() }

// IsPositive reports whether the amount is greater than zero.
func (m Money) IsPositive() bool { return m.amount.IsPositive() }

// IsNegative reports whether the amount is less than zero.
func (m Money) IsNegative() bool { return m.amount.IsNegative() }

// Equals reports whether both amounts have the same currency and numeric value.
// Scale is ignored: 1.50 USD equals 1.5 USD.
func (m Money) Equals(other Money) bool {
	return m.currency.SameCurrency(other.currency) && m.amount.Equal(other.amount)
}

// Cmp compares two amounts of the same currency.
func (m Money) Cmp(other Money) (int, error) {
	if !m.currency.SameCurrency(other.currency) {
		return 0, ErrMismatchedCurrencies
	}
	return m.amount.Cmp(other.amount), nil
}

// String renders the amount at the currency scale when the scale is known,
// otherwise at full precision.
func (m Money) String() string {
	if d := m.currency.fractionDigits; d >= 0 && -m.amount.Exponent() <= int32(d) {
		return fmt.Sprintf("%s %s", m.amount.StringFixed(int32(d)), m.currency.code)
	}
	return fmt.Sprintf("%s %s", m.amount.String(), m.currency.code)
}

type moneyJSON struct {
	Amount    string `json:"amount"`
	Currency  Code   `json:"currency"`
	Namespace string `json:"namespace,omitempty"`
}

// MarshalJSON implements json.Marshaler interface.
func (m Money) MarshalJSON() ([]byte, error) {
	out := moneyJSON{Amount: m.amount.String(), Currency: m.currency.code}
	if m.currency.namespace != DefaultNamespace {
		out.Namespace = m.currency.namespace
	}
	return json.Marshal(out)
}
