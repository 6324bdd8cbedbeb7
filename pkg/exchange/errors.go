package exchange

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/amirasaad/monetary/pkg/money"
)

// Common errors for exchange operations
var (
	// ErrMissingSource indicates a rate was built without a source currency.
	ErrMissingSource = errors.New("source currency is required")

	// ErrMissingTarget indicates a rate was built without a target currency.
	ErrMissingTarget = errors.New("target currency is required")

	// ErrMissingFactor indicates a rate was built without a factor.
	ErrMissingFactor = errors.New("factor is required")

	// ErrInvalidRate indicates that an invalid exchange rate was provided
	ErrInvalidRate = errors.New("invalid exchange rate")

	// ErrBrokenChain indicates consecutive chain links do not share a currency.
	ErrBrokenChain = errors.New("exchange rate chain is not continuous")

	// ErrConversion is matched by every *ConversionError.
	ErrConversion = errors.New("currency conversion failed")

	// ErrNoProvider indicates no provider is registered for a rate type.
	ErrNoProvider = errors.New("no provider for rate type")

	// ErrRateNotFound indicates that the requested rate was not found
	ErrRateNotFound = errors.New("exchange rate not found")

	// ErrSourceMismatch indicates a rate whose source is not the amount's currency.
	ErrSourceMismatch = errors.New("rate source does not match amount currency")
)

// ChainError reports where a rate chain breaks.
type ChainError struct {
	// Index is the chain position of the offending link. -1 refers to the
	// derived rate's own endpoints.
	Index  int
	Reason string
}

func (e *ChainError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s: %s", ErrBrokenChain, e.Reason)
	}
	return fmt.Sprintf("%s: link %d: %s", ErrBrokenChain, e.Index, e.Reason)
}

func (e *ChainError) Unwrap() error { return ErrBrokenChain }

// ConversionError carries the attempted conversion for diagnostics.
type ConversionError struct {
	RateType RateType
	Source   money.Currency
	Target   money.Currency
	At       time.Time
	Err      error
}

func (e *ConversionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "convert %s to %s", e.Source, e.Target)
	if e.RateType != "" {
		fmt.Fprintf(&b, " (rate type %s)", e.RateType)
	}
	if !e.At.IsZero() {
		fmt.Fprintf(&b, " at %s", e.At.UTC().Format(time.RFC3339))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %s", e.Err)
	}
	return b.String()
}

func (e *ConversionError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrConversion) hold for every ConversionError.
func (e *ConversionError) Is(target error) bool {
	return target == ErrConversion
}
