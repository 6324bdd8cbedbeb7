// Package rounding rounds monetary amounts to a currency's scale or to an
// explicit scale and mode.
package rounding

import (
	"fmt"
	"strings"
	"sync"

	"github.com/amirasaad/monetary/pkg/money"
	"github.com/shopspring/decimal"
)

// Mode selects how digits beyond the scale are discarded.
type Mode int

const (
	HalfEven Mode = iota
	HalfUp
	Down    // toward zero
	Up      // away from zero
	Floor   // toward negative infinity
	Ceiling // toward positive infinity
)

var modeNames = map[Mode]string{
	HalfEven: "half_even",
	HalfUp:   "half_up",
	Down:     "down",
	Up:       "up",
	Floor:    "floor",
	Ceiling:  "ceiling",
}

func (m Mode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode parses a mode name as returned by Mode.String.
func ParseMode(s string) (Mode, error) {
	for m, name := range modeNames {
		if strings.EqualFold(s, name) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown rounding mode %q", s)
}

// Operator rounds an amount, keeping its currency.
type Operator func(money.Money) money.Money

// Identity leaves the amount untouched.
func Identity(m money.Money) money.Money { return m }

// Of returns an operator rounding to scale fraction digits with mode.
func Of(scale int32, mode Mode) Operator {
	return func(m money.Money) money.Money {
		return m.WithAmount(round(m.Amount(), scale, mode))
	}
}

// ForCurrency rounds half-even at the currency's default fraction digits.
// Currencies without a defined scale are left untouched.
func ForCurrency(c money.Currency) Operator {
	if c.DefaultFractionDigits() < 0 {
		return Identity
	}
	return Of(int32(c.DefaultFractionDigits()), HalfEven)
}

func round(d decimal.Decimal, scale int32, mode Mode) decimal.Decimal {
	switch mode {
	case HalfUp:
		return d.Round(scale)
	case Down:
		return d.RoundDown(scale)
	case Up:
		return d.RoundUp(scale)
	case Floor:
		return d.RoundFloor(scale)
	case Ceiling:
		return d.RoundCeil(scale)
	default:
		return d.RoundBank(scale)
	}
}

// Provider hands out rounding operators per currency. Operators registered
// for a code override the currency default.
type Provider struct {
	mu        sync.RWMutex
	overrides map[string]Operator
}

// NewProvider creates a provider with no overrides.
func NewProvider() *Provider {
	return &Provider{overrides: make(map[string]Operator)}
}

// Register overrides the operator for the currency identified by key
// (see money.Key).
func (p *Provider) Register(key string, op Operator) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.overrides[key] = op
}

// Get returns the operator for c.
func (p *Provider) Get(c money.Currency) Operator {
	p.mu.RLock()
	op, ok := p.overrides[c.Key()]
	p.mu.RUnlock()
	if ok {
		return op
	}
	return ForCurrency(c)
}
