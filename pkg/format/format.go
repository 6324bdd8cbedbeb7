// Package format renders monetary amounts for display using locale
// specific grouping and decimal separators.
package format

import (
	"github.com/amirasaad/monetary/pkg/money"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Style attribute keys and values.
const (
	AttrSymbol  = "symbol"
	SymbolCode  = "code"
	SymbolGlyph = "symbol"
)

// Style controls how amounts are rendered.
type Style struct {
	Locale     language.Tag
	Attributes map[string]string
}

// Formatter renders money according to a Style. Safe for concurrent use.
type Formatter struct {
	style   Style
	printer *message.Printer
}

// NewFormatter creates a formatter for style. An undetermined locale falls
// back to English.
func NewFormatter(style Style) *Formatter {
	if style.Locale == language.Und {
		style.Locale = language.English
	}
	return &Formatter{
		style:   style,
		printer: message.NewPrinter(style.Locale),
	}
}

// Format renders m at its currency's fraction digits, e.g. "USD 1,234.50"
// or, with the symbol attribute set to "symbol", "$1,234.50".
func (f *Formatter) Format(m money.Money) string {
	amount := f.amount(m)
	c := m.Currency()
	if f.style.Attributes[AttrSymbol] == SymbolGlyph {
		if d, ok := c.Display(); ok && d.Symbol() != "" {
			return d.Symbol() + amount
		}
	}
	return c.Code().String() + " " + amount
}

func (f *Formatter) amount(m money.Money) string {
	d := m.Amount()
	scale := m.Currency().DefaultFractionDigits()
	if scale >= 0 {
		d = d.RoundBank(int32(scale))
	} else {
		scale = int(-d.Exponent())
		if scale < 0 {
			scale = 0
		}
	}

	// The printer works on float64. Amounts that do not survive the
	// conversion are rendered without localization.
	v, exact := d.Float64()
	if !exact && !decimal.NewFromFloat(v).Equal(d) {
		return d.StringFixed(int32(scale))
	}
	return f.printer.Sprint(number.Decimal(v, number.Scale(scale)))
}
