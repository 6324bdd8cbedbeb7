package initializer

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	infra_eventbus "github.com/amirasaad/monetary/infra/eventbus"
	"github.com/amirasaad/monetary/pkg/config"
	"github.com/amirasaad/monetary/pkg/exchange"
	"github.com/amirasaad/monetary/pkg/exchange/service"
	"github.com/amirasaad/monetary/pkg/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.App {
	return &config.App{
		Env:       "test",
		Server:    &config.Server{Scheme: "http", Host: "localhost", Port: 3000},
		Log:       &config.Log{Format: "text", TimeFormat: time.RFC3339},
		RateLimit: &config.RateLimit{MaxRequests: 100, Window: time.Minute},
		Rates: &config.Rates{
			DefaultType: "ECB",
			StaticType:  "ECB",
			Static:      "USD:EUR=0.92,USD:CHF=0.88",
			Base:        "USD",
			Reciprocal:  true,
		},
		ExchangeRateApi: &config.ExchangeRateApi{},
		Cache:           &config.Cache{Enabled: true, TTL: time.Minute, CleanupInterval: time.Minute},
		Metrics:         &config.Metrics{Enabled: true, Route: "/metrics"},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBuild(t *testing.T) {
	deps, err := Build(testConfig(), discardLogger())
	require.NoError(t, err)
	defer func() { assert.NoError(t, deps.Close()) }()

	assert.Equal(t, []exchange.RateType{exchange.RateTypeECB, exchange.RateTypeIdentity}, deps.Rates.RateTypes())
	require.NotNil(t, deps.Metrics)

	ctx := context.Background()
	usd := deps.Currencies.MustGet(money.USD)
	eur := deps.Currencies.MustGet(money.EUR)
	chf := deps.Currencies.MustGet(money.CHF)

	got, err := deps.Converter.Convert(ctx, exchange.RateTypeECB, money.Must("100", usd), eur)
	require.NoError(t, err)
	assert.Equal(t, "92.00 EUR", got.String())

	// Reciprocal of USD:EUR.
	_, err = deps.Converter.Convert(ctx, exchange.RateTypeECB, money.Must("100", eur), usd)
	require.NoError(t, err)

	// Triangulated over USD.
	rp, ok := deps.Rates.Provider(exchange.RateTypeECB)
	require.True(t, ok)
	r, ok := rp.Get(ctx, exchange.Query{Source: eur, Target: chf})
	require.True(t, ok)
	assert.True(t, r.IsDerived())

	// Identity.
	_, err = deps.Converter.Convert(ctx, exchange.RateTypeIdentity, money.Must("1", usd), usd)
	require.NoError(t, err)

	families, err := deps.Metrics.Gather()
	require.NoError(t, err)
	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "monetary_conversions_total")
}

func TestBuild_Warmer(t *testing.T) {
	cfg := testConfig()
	cfg.Cache.WarmTargets = "eur, chf"
	deps, err := Build(cfg, discardLogger())
	require.NoError(t, err)
	defer func() { assert.NoError(t, deps.Close()) }()

	require.NotNil(t, deps.Warmer)
	assert.Eventually(t, func() bool { return !deps.Warmer.LastUpdated().IsZero() }, time.Second, 10*time.Millisecond)
}

func TestBuild_NoWarmerWithoutTargets(t *testing.T) {
	deps, err := Build(testConfig(), discardLogger())
	require.NoError(t, err)
	defer func() { assert.NoError(t, deps.Close()) }()

	assert.Nil(t, deps.Warmer)
}

func TestBuild_Events(t *testing.T) {
	var buf bytes.Buffer
	cfg := testConfig()
	cfg.Events = &config.Events{Enabled: true, Stream: "conversions", Group: "test"}
	deps, err := Build(cfg, slog.New(slog.NewTextHandler(&buf, nil)))
	require.NoError(t, err)
	defer func() { assert.NoError(t, deps.Close()) }()

	bus, ok := deps.Events.(*infra_eventbus.MemoryEventBus)
	require.True(t, ok)

	usd := deps.Currencies.MustGet(money.USD)
	eur := deps.Currencies.MustGet(money.EUR)
	_, err = deps.Converter.Convert(context.Background(), exchange.RateTypeECB, money.Must("100", usd), eur)
	require.NoError(t, err)

	published := bus.Published()
	require.Len(t, published, 1)
	evt, ok := published[0].(service.ConversionCompleted)
	require.True(t, ok)
	assert.Equal(t, "92", evt.ToAmount)
	assert.Equal(t, "EUR", evt.ToCurrency)
	assert.Contains(t, buf.String(), "Conversion recorded")
}

func TestBuild_NoEventsByDefault(t *testing.T) {
	deps, err := Build(testConfig(), discardLogger())
	require.NoError(t, err)
	defer func() { assert.NoError(t, deps.Close()) }()

	assert.Nil(t, deps.Events)
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.App)
	}{
		{"bad static table", func(c *config.App) { c.Rates.Static = "USD:EUR" }},
		{"unknown base", func(c *config.App) { c.Rates.Base = "ZZZ" }},
		{"bad redis url", func(c *config.App) { c.Cache.Url = "::not-a-url" }},
		{"missing currencies file", func(c *config.App) { c.Rates.CurrenciesFile = "/does/not/exist.csv" }},
		{"unknown warm target", func(c *config.App) { c.Cache.WarmTargets = "EUR,ZZZ" }},
		{"bad events url", func(c *config.App) {
			c.Events = &config.Events{Enabled: true, Url: "::not-a-url", Stream: "s", Group: "g"}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(cfg)
			deps, err := Build(cfg, discardLogger())
			assert.Error(t, err)
			assert.Nil(t, deps)
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&config.Log{Format: "json", TimeFormat: time.RFC3339, Prefix: "[test]"}, &buf)
	logger.Info("hello", "rate_type", "ECB")

	out := buf.String()
	assert.Contains(t, out, `"msg":"hello"`)
	assert.Contains(t, out, `"rate_type":"ECB"`)
}
