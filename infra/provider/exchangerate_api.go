package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/amirasaad/monetary/pkg/exchange"
	"github.com/amirasaad/monetary/pkg/money"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// ExchangeRateAPIProviderName is the name the exchangerate-api provider
// registers under.
const ExchangeRateAPIProviderName = "exchangerate-api"

// ExchangeRateAPIResponseV6 represents the v6 response from the ExchangeRate API
// See: https://www.exchangerate-api.com/docs/standard-requests
type ExchangeRateAPIResponseV6 struct {
	Result             string                     `json:"result"`
	Documentation      string                     `json:"documentation"`
	TermsOfUse         string                     `json:"terms_of_use"`
	TimeLastUpdateUnix int64                      `json:"time_last_update_unix"`
	TimeNextUpdateUnix int64                      `json:"time_next_update_unix"`
	BaseCode           string                     `json:"base_code"`
	ConversionRates    map[string]decimal.Decimal `json:"conversion_rates"`
	// Error fields (if any)
	ErrorType string `json:"error-type,omitempty"`
}

// ExchangeRateAPIConfig configures an ExchangeRateAPIProvider.
type ExchangeRateAPIConfig struct {
	BaseURL  string // e.g. https://v6.exchangerate-api.com/v6
	APIKey   string
	Timeout  time.Duration
	TTL      time.Duration // how long a fetched table is reused
	RateType exchange.RateType
}

type rateTable struct {
	rates      map[string]decimal.Decimal
	validFrom  time.Time
	validUntil time.Time
	fetchedAt  time.Time
}

// ExchangeRateAPIProvider serves the latest rates of exchangerate-api.com.
// One table per base currency is fetched and reused until its TTL elapses;
// concurrent fetches of the same base share one request.
type ExchangeRateAPIProvider struct {
	cfg        ExchangeRateAPIConfig
	httpClient *http.Client
	logger     *slog.Logger
	group      singleflight.Group
	mu         sync.RWMutex
	tables     map[string]*rateTable
	now        func() time.Time
}

// NewExchangeRateAPIProvider creates a new ExchangeRate API provider using config
func NewExchangeRateAPIProvider(cfg ExchangeRateAPIConfig, logger *slog.Logger) *ExchangeRateAPIProvider {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RateType == "" {
		cfg.RateType = exchange.RateTypeDefault
	}
	return &ExchangeRateAPIProvider{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
		tables: make(map[string]*rateTable),
		now:    time.Now,
	}
}

// Name returns the provider's name
func (p *ExchangeRateAPIProvider) Name() string {
	return ExchangeRateAPIProviderName
}

// Rate returns the latest source→target rate. Historical queries are only
// answered when they fall inside the window of the current table.
func (p *ExchangeRateAPIProvider) Rate(ctx context.Context, q exchange.Query) (*exchange.ExchangeRate, bool) {
	if q.Source.Namespace() != money.DefaultNamespace || q.Target.Namespace() != money.DefaultNamespace {
		return nil, false
	}
	if q.Source.SameCurrency(q.Target) {
		return nil, false
	}

	table, err := p.table(ctx, q.Source.Code().String())
	if err != nil {
		p.logger.Warn("Failed to fetch exchange rates",
			"provider", ExchangeRateAPIProviderName,
			"base", q.Source.Code(),
			"error", err,
		)
		return nil, false
	}
	if !q.At.IsZero() && !within(table.validFrom, table.validUntil, q.At) {
		return nil, false
	}
	factor, ok := table.rates[q.Target.Code().String()]
	if !ok {
		return nil, false
	}

	b := exchange.NewBuilder(p.cfg.RateType).
		Source(q.Source).
		Target(q.Target).
		SourceLeadingFactor(factor).
		Provider(ExchangeRateAPIProviderName)
	if !table.validFrom.IsZero() {
		b.ValidFrom(table.validFrom)
	}
	if !table.validUntil.IsZero() {
		b.ValidUntil(table.validUntil)
	}
	rate, err := b.Build()
	if err != nil {
		p.logger.Warn("Discarding invalid exchange rate",
			"provider", ExchangeRateAPIProviderName,
			"source", q.Source,
			"target", q.Target,
			"error", err,
		)
		return nil, false
	}
	return rate, true
}

// IsAvailable reports whether Rate would answer q.
func (p *ExchangeRateAPIProvider) IsAvailable(ctx context.Context, q exchange.Query) bool {
	_, ok := p.Rate(ctx, q)
	return ok
}

func within(from, until, t time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !until.IsZero() && !t.Before(until) {
		return false
	}
	return true
}

// table returns the rate table of base, fetching it when absent or older
// than the TTL.
func (p *ExchangeRateAPIProvider) table(ctx context.Context, base string) (*rateTable, error) {
	p.mu.RLock()
	t, ok := p.tables[base]
	p.mu.RUnlock()
	if ok && p.now().Sub(t.fetchedAt) < p.cfg.TTL {
		return t, nil
	}

	// The fetch is shared by every waiter, so it must outlive the caller
	// that started it. The HTTP client timeout still bounds it.
	fetchCtx := context.WithoutCancel(ctx)
	v, err, shared := p.group.Do(base, func() (any, error) {
		fetched, err := p.fetch(fetchCtx, base)
		if err != nil {
			return nil, err
		}
		p.mu.Lock()
		p.tables[base] = fetched
		p.mu.Unlock()
		return fetched, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		p.logger.Debug("Shared in-flight exchange rate fetch", "base", base)
	}
	return v.(*rateTable), nil
}

func (p *ExchangeRateAPIProvider) fetch(ctx context.Context, base string) (*rateTable, error) {
	url := fmt.Sprintf("%s/%s/latest/%s", p.cfg.BaseURL, p.cfg.APIKey, base)
	p.logger.Info("Fetching exchange rates from API", "base", base)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch rates: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	var apiResp ExchangeRateAPIResponseV6
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if apiResp.Result != "success" {
		return nil, fmt.Errorf("API returned result=%s error-type=%s", apiResp.Result, apiResp.ErrorType)
	}
	if apiResp.BaseCode != "" && apiResp.BaseCode != base {
		return nil, fmt.Errorf("API returned base %s, requested %s", apiResp.BaseCode, base)
	}

	t := &rateTable{
		rates:     apiResp.ConversionRates,
		fetchedAt: p.now(),
	}
	if apiResp.TimeLastUpdateUnix > 0 {
		t.validFrom = time.Unix(apiResp.TimeLastUpdateUnix, 0).UTC()
	}
	if apiResp.TimeNextUpdateUnix > apiResp.TimeLastUpdateUnix {
		t.validUntil = time.Unix(apiResp.TimeNextUpdateUnix, 0).UTC()
	}
	p.logger.Info("Exchange rates fetched successfully", "base", base, "count", len(t.rates))
	return t, nil
}

var _ exchange.ProviderSpi = (*ExchangeRateAPIProvider)(nil)
