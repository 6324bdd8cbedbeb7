package money

// Code represents a currency code (e.g., "USD", "EUR").
type Code string

// DefaultNamespace is the namespace of ISO 4217 currency codes.
const DefaultNamespace = "ISO-4217"

// Common currency codes
const (
	USD Code = "USD" // US Dollar
	EUR Code = "EUR" // Euro
	CHF Code = "CHF" // Swiss Franc
	GBP Code = "GBP" // British Pound
	JPY Code = "JPY" // Japanese Yen
	KWD Code = "KWD" // Kuwaiti Dinar
)

// IsValid reports whether the code is a well-formed ISO 4217 code
// (three uppercase ASCII letters).
func (c Code) IsValid() bool {
	if len(c) != 3 {
		return false
	}
	return c[0] >= 'A' && c[0] <= 'Z' &&
		c[1] >= 'A' && c[1] <= 'Z' &&
		c[2] >= 'A' && c[2] <= 'Z'
}

// String returns the string representation of the currency code.
func (c Code) String() string {
	return string(c)
}

// Key builds the cache key of a currency: the bare code inside the default
// namespace, "namespace:code" otherwise.
func Key(namespace string, code Code) string {
	if namespace == "" || namespace == DefaultNamespace {
		return string(code)
	}
	return namespace + ":" + string(code)
}
