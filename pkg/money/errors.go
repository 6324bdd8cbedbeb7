package money

import (
	"errors"
	"fmt"
	"time"
)

// Common money package errors
var (
	// ErrInvalidCurrency is returned when a currency unit fails validation.
	ErrInvalidCurrency = errors.New("invalid currency")

	// ErrInvalidAmount is returned when an amount cannot be parsed.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrMismatchedCurrencies is returned when performing operations on money with
	// different currencies
	ErrMismatchedCurrencies = errors.New("mismatched currencies")

	// ErrUnknownCurrency is returned when no provider knows a currency.
	ErrUnknownCurrency = errors.New("unknown currency")
)

// UnknownCurrencyError describes a currency lookup that had no match.
type UnknownCurrencyError struct {
	Namespace string
	Code      Code
	At        time.Time
}

func (e *UnknownCurrencyError) Error() string {
	key := Key(e.Namespace, e.Code)
	if e.At.IsZero() {
		return fmt.Sprintf("unknown currency %s", key)
	}
	return fmt.Sprintf("unknown currency %s at %s", key, e.At.UTC().Format(time.RFC3339))
}

// Is makes errors.Is(err, ErrUnknownCurrency) hold for every UnknownCurrencyError.
func (e *UnknownCurrencyError) Is(target error) bool {
	return target == ErrUnknownCurrency
}
