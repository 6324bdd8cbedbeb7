package exchange

import (
	"time"

	"github.com/amirasaad/monetary/pkg/exchange"
	"github.com/amirasaad/monetary/pkg/money"
	"github.com/google/uuid"
)

// ConvertRequest represents the request body for converting an amount.
type ConvertRequest struct {
	Amount    string `json:"amount" validate:"required,numeric"`
	From      string `json:"from" validate:"required,len=3,alpha"`
	To        string `json:"to" validate:"required,len=3,alpha"`
	Namespace string `json:"namespace,omitempty"`
	RateType  string `json:"rate_type,omitempty" validate:"omitempty,max=32"`
	// At asks for the rate valid at an RFC 3339 instant.
	At string `json:"at,omitempty" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	// Round applies the target currency's rounding to the result.
	Round  bool   `json:"round,omitempty"`
	Locale string `json:"locale,omitempty" validate:"omitempty,bcp47_language_tag"`
	Symbol string `json:"symbol,omitempty" validate:"omitempty,oneof=code symbol"`
}

// ConvertResponse represents the result of a conversion.
type ConvertResponse struct {
	ID        uuid.UUID              `json:"id"`
	From      money.Money            `json:"from"`
	To        money.Money            `json:"to"`
	Rate      *exchange.ExchangeRate `json:"rate"`
	At        time.Time              `json:"at"`
	Formatted string                 `json:"formatted,omitempty"`
}

// RateTypeResponse lists the providers behind one rate type.
type RateTypeResponse struct {
	RateType  exchange.RateType `json:"rate_type"`
	Providers []string          `json:"providers"`
}

// ReloadResponse reports how many providers a reload added.
type ReloadResponse struct {
	Currencies int `json:"currencies"`
	Rates      int `json:"rates"`
}
