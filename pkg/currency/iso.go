package currency

import (
	_ "embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/amirasaad/monetary/pkg/money"
)

// ISOProviderName is the name the embedded ISO 4217 table registers under.
const ISOProviderName = "iso4217"

const isoColumns = 8

//go:embed iso4217.csv
var isoCSV string

// NewISOProvider returns a provider over the embedded ISO 4217 table.
func NewISOProvider() (*StaticProvider, error) {
	currencies, err := LoadISOCSV(strings.NewReader(isoCSV))
	if err != nil {
		return nil, fmt.Errorf("embedded iso4217 table: %w", err)
	}
	return NewStaticProvider(ISOProviderName, currencies...), nil
}

// LoadISOFile reads a currency table with the same layout as the embedded one.
func LoadISOFile(path string) ([]money.Currency, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close() //nolint:errcheck
	return LoadISOCSV(f)
}

// LoadISOCSV parses rows of
// code,numeric,digits,name,symbol,valid_from,valid_until,virtual.
// Dates are YYYY-MM-DD in UTC; empty dates are unbounded.
func LoadISOCSV(r io.Reader) ([]money.Currency, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.New("empty currency table")
	}
	if len(records[0]) < isoColumns {
		return nil, fmt.Errorf(
			"invalid CSV format: expected at least %d columns, got %d",
			isoColumns,
			len(records[0]),
		)
	}

	currencies := make([]money.Currency, 0, len(records)-1)
	for i, rec := range records[1:] {
		c, err := parseISORecord(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		currencies = append(currencies, c)
	}
	return currencies, nil
}

func parseISORecord(rec []string) (money.Currency, error) {
	numeric, err := strconv.Atoi(rec[1])
	if err != nil {
		return money.Currency{}, fmt.Errorf("numeric code %q: %w", rec[1], err)
	}
	digits, err := strconv.Atoi(rec[2])
	if err != nil {
		return money.Currency{}, fmt.Errorf("fraction digits %q: %w", rec[2], err)
	}

	b := money.NewCurrencyBuilder(money.Code(rec[0])).
		NumericCode(numeric).
		FractionDigits(digits).
		Display(rec[3], rec[4]).
		Virtual(strings.EqualFold(rec[7], "true"))

	if rec[5] != "" {
		from, err := time.Parse(time.DateOnly, rec[5])
		if err != nil {
			return money.Currency{}, fmt.Errorf("valid from %q: %w", rec[5], err)
		}
		b.ValidFrom(from)
	}
	if rec[6] != "" {
		until, err := time.Parse(time.DateOnly, rec[6])
		if err != nil {
			return money.Currency{}, fmt.Errorf("valid until %q: %w", rec[6], err)
		}
		b.ValidUntil(until)
	}
	return b.Build()
}
