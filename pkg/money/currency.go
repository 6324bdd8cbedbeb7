package money

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// MaxFractionDigits is the largest number of fraction digits a currency may declare.
const MaxFractionDigits = 18

// Displayable is the optional presentation capability of a currency.
type Displayable interface {
	DisplayName() string
	Symbol() string
}

type display struct {
	name   string
	symbol string
}

func (d display) DisplayName() string { return d.name }
func (d display) Symbol() string      { return d.symbol }

// Currency is the identity of a currency unit.
// Invariants:
//   - (namespace, code) identifies the unit at a point in time.
//   - Two units with the same pair and disjoint validity windows are
//     revisions of the same legal currency.
//   - Immutable after construction; share freely across goroutines.
type Currency struct {
	namespace      string
	code           Code
	numericCode    int
	fractionDigits int
	validFrom      time.Time
	validUntil     time.Time
	virtual        bool
	display        *display
}

// Namespace returns the classification scheme of the code.
func (c Currency) Namespace() string { return c.namespace }

// Code returns the currency code.
func (c Currency) Code() Code { return c.code }

// NumericCode returns the numeric code, -1 when undefined.
func (c Currency) NumericCode() int { return c.numericCode }

// DefaultFractionDigits returns the canonical scale, -1 for pseudo-currencies.
func (c Currency) DefaultFractionDigits() int { return c.fractionDigits }

// ValidFrom returns the start of the validity window; zero means unbounded.
func (c Currency) ValidFrom() time.Time { return c.validFrom }

// ValidUntil returns the exclusive end of the validity window; zero means unbounded.
func (c Currency) ValidUntil() time.Time { return c.validUntil }

// IsVirtual reports whether the unit is not a legal tender (e.g. test or metal codes).
func (c Currency) IsVirtual() bool { return c.virtual }

// IsZero reports whether c is the zero Currency.
func (c Currency) IsZero() bool { return c.code == "" }

// Key returns the process cache key of the unit.
func (c Currency) Key() string { return Key(c.namespace, c.code) }

// Display returns the presentation data when the unit carries it.
func (c Currency) Display() (Displayable, bool) {
	if c.display == nil {
		return nil, false
	}
	return *c.display, true
}

// IsValidAt reports whether t lies in [validFrom, validUntil).
func (c Currency) IsValidAt(t time.Time) bool {
	return withinWindow(c.validFrom, c.validUntil, t)
}

// SameCurrency compares identity only: namespace and code.
func (c Currency) SameCurrency(other Currency) bool {
	return c.namespace == other.namespace && c.code == other.code
}

// Equal compares identity and validity window.
func (c Currency) Equal(other Currency) bool {
	return c.SameCurrency(other) &&
		c.numericCode == other.numericCode &&
		c.fractionDigits == other.fractionDigits &&
		c.validFrom.Equal(other.validFrom) &&
		c.validUntil.Equal(other.validUntil)
}

// String returns the currency key.
func (c Currency) String() string { return c.Key() }

func withinWindow(from, until, t time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !until.IsZero() && !t.Before(until) {
		return false
	}
	return true
}

// CurrencyBuilder assembles a Currency. A builder is not safe for concurrent
// use; confine it to one goroutine until Build.
type CurrencyBuilder struct {
	namespace      string
	code           Code
	numericCode    int
	fractionDigits int
	validFrom      time.Time
	validUntil     time.Time
	virtual        bool
	display        *display
}

// NewCurrencyBuilder starts an ISO 4217 currency with the given code.
func NewCurrencyBuilder(code Code) *CurrencyBuilder {
	return &CurrencyBuilder{
		namespace:      DefaultNamespace,
		code:           code,
		numericCode:    -1,
		fractionDigits: 2,
	}
}

// Namespace sets the code scheme. It defaults to ISO 4217.
func (b *CurrencyBuilder) Namespace(ns string) *CurrencyBuilder {
	b.namespace = ns
	return b
}

// Code replaces the code given to NewCurrencyBuilder.
func (b *CurrencyBuilder) Code(code Code) *CurrencyBuilder {
	b.code = code
	return b
}

// NumericCode sets the numeric code, -1 when there is none.
func (b *CurrencyBuilder) NumericCode(n int) *CurrencyBuilder {
	b.numericCode = n
	return b
}

// FractionDigits sets the default fraction digits, -1 for pseudo currencies.
func (b *CurrencyBuilder) FractionDigits(d int) *CurrencyBuilder {
	b.fractionDigits = d
	return b
}

// ValidFrom sets the first instant the currency is in use, inclusive.
func (b *CurrencyBuilder) ValidFrom(t time.Time) *CurrencyBuilder {
	b.validFrom = t.UTC()
	return b
}

// ValidUntil sets the instant the currency was withdrawn, exclusive.
func (b *CurrencyBuilder) ValidUntil(t time.Time) *CurrencyBuilder {
	b.validUntil = t.UTC()
	return b
}

// Virtual marks a currency with no issuing authority.
func (b *CurrencyBuilder) Virtual(v bool) *CurrencyBuilder {
	b.virtual = v
	return b
}

// Display attaches a display name and symbol.
func (b *CurrencyBuilder) Display(name, symbol string) *CurrencyBuilder {
	b.display = &display{name: name, symbol: symbol}
	return b
}

func (b *CurrencyBuilder) validate() error {
	var errs []error
	if b.namespace == "" {
		errs = append(errs, errors.New("namespace is required"))
	}
	if b.code == "" {
		errs = append(errs, errors.New("code is required"))
	} else if b.namespace == DefaultNamespace && !b.code.IsValid() {
		errs = append(errs, fmt.Errorf("code %q is not an ISO 4217 code", b.code))
	}
	if b.fractionDigits < -1 || b.fractionDigits > MaxFractionDigits {
		errs = append(errs, fmt.Errorf("fraction digits %d out of range [-1, %d]", b.fractionDigits, MaxFractionDigits))
	}
	if b.numericCode < -1 {
		errs = append(errs, fmt.Errorf("numeric code %d is negative", b.numericCode))
	}
	if !b.validFrom.IsZero() && !b.validUntil.IsZero() && !b.validUntil.After(b.validFrom) {
		errs = append(errs, errors.New("valid until must be after valid from"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidCurrency, errors.Join(errs...))
	}
	return nil
}

// IsBuildable reports whether Build would succeed.
func (b *CurrencyBuilder) IsBuildable() bool {
	return b.validate() == nil
}

// Build validates the builder state and returns the currency.
func (b *CurrencyBuilder) Build() (Currency, error) {
	if err := b.validate(); err != nil {
		return Currency{}, err
	}
	c := Currency{
		namespace:      b.namespace,
		code:           b.code,
		numericCode:    b.numericCode,
		fractionDigits: b.fractionDigits,
		validFrom:      b.validFrom,
		validUntil:     b.validUntil,
		virtual:        b.virtual,
	}
	if b.display != nil {
		d := *b.display
		c.display = &d
	}
	return c, nil
}

// MustCurrency builds an ISO 4217 currency with the given scale and panics on
// invalid input. Intended for package-level tables and tests.
func MustCurrency(code Code, fractionDigits int) Currency {
	c, err := NewCurrencyBuilder(code).FractionDigits(fractionDigits).Build()
	if err != nil {
		panic(fmt.Sprintf("money.MustCurrency(%q, %d): %v", code, fractionDigits, err))
	}
	return c
}

type currencyJSON struct {
	Namespace      string     `json:"namespace"`
	Code           Code       `json:"code"`
	NumericCode    int        `json:"numeric_code"`
	FractionDigits int        `json:"fraction_digits"`
	ValidFrom      *time.Time `json:"valid_from,omitempty"`
	ValidUntil     *time.Time `json:"valid_until,omitempty"`
	Virtual        bool       `json:"virtual,omitempty"`
	Name           string     `json:"name,omitempty"`
	Symbol         string     `json:"symbol,omitempty"`
}

// MarshalJSON implements json.Marshaler interface.
func (c Currency) MarshalJSON() ([]byte, error) {
	out := currencyJSON{
		Namespace:      c.namespace,
		Code:           c.code,
		NumericCode:    c.numericCode,
		FractionDigits: c.fractionDigits,
		Virtual:        c.virtual,
	}
	if !c.validFrom.IsZero() {
		out.ValidFrom = &c.validFrom
	}
	if !c.validUntil.IsZero() {
		out.ValidUntil = &c.validUntil
	}
	if c.display != nil {
		out.Name = c.display.name
		out.Symbol = c.display.symbol
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler interface. The decoded unit goes
// through the same validation as CurrencyBuilder.Build.
func (c *Currency) UnmarshalJSON(data []byte) error {
	var in currencyJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	b := NewCurrencyBuilder(in.Code).
		NumericCode(in.NumericCode).
		FractionDigits(in.FractionDigits).
		Virtual(in.Virtual)
	if in.Namespace != "" {
		b.Namespace(in.Namespace)
	}
	if in.ValidFrom != nil {
		b.ValidFrom(*in.ValidFrom)
	}
	if in.ValidUntil != nil {
		b.ValidUntil(*in.ValidUntil)
	}
	if in.Name != "" || in.Symbol != "" {
		b.Display(in.Name, in.Symbol)
	}
	built, err := b.Build()
	if err != nil {
		return err
	}
	*c = built
	return nil
}
