package service

import (
	"time"

	"github.com/amirasaad/monetary/pkg/eventbus"
	"github.com/google/uuid"
)

// EventTypeConversionCompleted is emitted after every successful conversion.
const EventTypeConversionCompleted = "conversion.completed"

// ConversionCompleted records a conversion for audit and downstream consumers.
type ConversionCompleted struct {
	ID           uuid.UUID `json:"id"`
	RateType     string    `json:"rate_type"`
	FromAmount   string    `json:"from_amount"`
	FromCurrency string    `json:"from_currency"`
	ToAmount     string    `json:"to_amount"`
	ToCurrency   string    `json:"to_currency"`
	Factor       string    `json:"factor"`
	Provider     string    `json:"provider,omitempty"`
	Derived      bool      `json:"derived,omitempty"`
	At           time.Time `json:"at"`
}

// Type implements eventbus.Event.
func (ConversionCompleted) Type() string { return EventTypeConversionCompleted }

// EventTypes maps the event types of this package to their constructors,
// for buses that decode events.
func EventTypes() map[string]func() eventbus.Event {
	return map[string]func() eventbus.Event{
		EventTypeConversionCompleted: func() eventbus.Event { return &ConversionCompleted{} },
	}
}

func newConversionCompleted(c *Conversion) ConversionCompleted {
	return ConversionCompleted{
		ID:           c.ID,
		RateType:     string(c.Rate.RateType()),
		FromAmount:   c.From.Amount().String(),
		FromCurrency: c.From.Currency().Key(),
		ToAmount:     c.To.Amount().String(),
		ToCurrency:   c.To.Currency().Key(),
		Factor:       c.Rate.Factor().String(),
		Provider:     c.Rate.Provider(),
		Derived:      c.Rate.IsDerived(),
		At:           c.At,
	}
}
