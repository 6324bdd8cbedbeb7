package exchange

import (
	"github.com/amirasaad/monetary/pkg/money"
)

// Apply converts amount with rate. The rate's source must be the amount's
// currency; the result is amount × factor in the rate's target currency,
// unrounded.
func Apply(amount money.Money, rate *ExchangeRate) (money.Money, error) {
	if rate == nil {
		return money.Money{}, &ConversionError{
			Source: amount.Currency(),
			Err:    ErrRateNotFound,
		}
	}
	if !rate.source.SameCurrency(amount.Currency()) {
		return money.Money{}, &ConversionError{
			RateType: rate.rateType,
			Source:   amount.Currency(),
			Target:   rate.target,
			Err:      ErrSourceMismatch,
		}
	}
	return money.New(amount.Amount().Mul(rate.factor), rate.target)
}
