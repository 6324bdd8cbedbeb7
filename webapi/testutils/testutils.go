// Package testutils holds helpers for the HTTP handler tests.
package testutils

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/amirasaad/monetary/infra/initializer"
	"github.com/amirasaad/monetary/pkg/config"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

// TestConfig returns a configuration with the static ECB table, an
// in-memory cache and metrics enabled. No network access is needed.
func TestConfig() *config.App {
	return &config.App{
		Env:       "test",
		Server:    &config.Server{Scheme: "http", Host: "localhost", Port: 3000},
		Log:       &config.Log{Format: "text", TimeFormat: time.RFC3339},
		RateLimit: &config.RateLimit{MaxRequests: 1000, Window: time.Minute},
		Rates: &config.Rates{
			DefaultType: "ECB",
			StaticType:  "ECB",
			Static:      "USD:EUR=0.92,USD:CHF=0.88,USD:JPY=151.5",
			Base:        "USD",
			Reciprocal:  true,
		},
		ExchangeRateApi: &config.ExchangeRateApi{},
		Cache:           &config.Cache{Enabled: true, TTL: time.Minute, CleanupInterval: time.Minute},
		Metrics:         &config.Metrics{Enabled: true, Route: "/metrics"},
	}
}

// NewDeps builds dependencies from cfg, or TestConfig when cfg is nil,
// and closes them when the test ends.
func NewDeps(t testing.TB, cfg *config.App) *initializer.Deps {
	t.Helper()
	if cfg == nil {
		cfg = TestConfig()
	}
	deps, err := initializer.Build(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = deps.Close() })
	return deps
}

// MakeRequestWithApp is a helper for making HTTP requests in tests
func MakeRequestWithApp(app *fiber.App, method, path, body string, headers ...string) *http.Response {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := app.Test(req, 10000)
	if err != nil {
		panic(err) // For standalone tests, panic on error
	}
	return resp
}

// Envelope mirrors common.Response with the data left raw.
type Envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Title   string          `json:"title"`
	Detail  string          `json:"detail"`
	Errors  map[string]any  `json:"errors"`
}

// DecodeResponse reads and closes the response body.
func DecodeResponse(t testing.TB, resp *http.Response) Envelope {
	t.Helper()
	defer resp.Body.Close() //nolint: errcheck
	var env Envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return env
}
