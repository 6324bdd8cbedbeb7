package initializer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	infra_cache "github.com/amirasaad/monetary/infra/cache"
	"github.com/amirasaad/monetary/infra/caching"
	infra_eventbus "github.com/amirasaad/monetary/infra/eventbus"
	infra_provider "github.com/amirasaad/monetary/infra/provider"
	"github.com/amirasaad/monetary/pkg/config"
	"github.com/amirasaad/monetary/pkg/currency"
	"github.com/amirasaad/monetary/pkg/eventbus"
	"github.com/amirasaad/monetary/pkg/exchange"
	"github.com/amirasaad/monetary/pkg/exchange/service"
	"github.com/amirasaad/monetary/pkg/money"
	"github.com/amirasaad/monetary/pkg/rounding"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Deps holds everything the HTTP API and the CLI need.
type Deps struct {
	Config     *config.App
	Logger     *slog.Logger
	Currencies *currency.Provider
	Rates      *exchange.Registry
	Converter  *service.Service
	Rounding   *rounding.Provider
	// Metrics is nil when metrics are disabled.
	Metrics *prometheus.Registry
	// Warmer is nil unless warm targets are configured.
	Warmer *caching.Warmer
	// Events is nil when conversion events are disabled.
	Events eventbus.Bus

	closers []io.Closer
}

// Close releases caches and connections held by the dependencies, in
// reverse order of creation.
func (d *Deps) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	return errors.Join(errs...)
}

// InitializeDependencies sets up the process logger from cfg and builds
// the dependencies.
func InitializeDependencies(cfg *config.App) (*Deps, error) {
	logger := SetupLogger(cfg.Log)
	return Build(cfg, logger)
}

// Build wires the currency provider, the rate registry and the conversion
// service from cfg. Providers are listed explicitly; the order of
// registration is the order of precedence.
func Build(cfg *config.App, logger *slog.Logger) (_ *Deps, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	deps := &Deps{Config: cfg, Logger: logger, Rounding: rounding.NewProvider()}
	defer func() {
		if err != nil {
			_ = deps.Close()
		}
	}()

	deps.Currencies, err = buildCurrencies(cfg.Rates, logger)
	if err != nil {
		return nil, err
	}

	rateCache, err := buildRateCache(cfg.Cache, logger)
	if err != nil {
		return nil, err
	}
	if c, ok := rateCache.(io.Closer); ok {
		deps.closers = append(deps.closers, c)
	}

	deps.Rates, err = buildRates(cfg, deps.Currencies, rateCache, logger)
	if err != nil {
		return nil, err
	}

	var opts []service.Option
	if cfg.Metrics != nil && cfg.Metrics.Enabled {
		deps.Metrics = prometheus.NewRegistry()
		deps.Metrics.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		opts = append(opts, service.WithMetrics(deps.Metrics))
	}

	deps.Events, err = buildEvents(cfg.Events, logger)
	if err != nil {
		return nil, err
	}
	if deps.Events != nil {
		if c, ok := deps.Events.(io.Closer); ok {
			deps.closers = append(deps.closers, c)
		}
		deps.Events.Register(service.EventTypeConversionCompleted, logConversion(logger))
		opts = append(opts, service.WithEvents(deps.Events))
	}
	deps.Converter = service.New(deps.Rates, logger, opts...)

	deps.Warmer, err = buildWarmer(cfg, deps.Currencies, deps.Converter, logger)
	if err != nil {
		return nil, err
	}
	if deps.Warmer != nil {
		deps.Warmer.Start(context.Background())
		deps.closers = append(deps.closers, deps.Warmer)
	}

	logger.Info("Dependencies initialized",
		"currencies", len(deps.Currencies.Currencies(money.DefaultNamespace)),
		"rate_types", deps.Rates.RateTypes(),
		"metrics", deps.Metrics != nil,
		"events", deps.Events != nil,
	)
	return deps, nil
}

func buildCurrencies(cfg *config.Rates, logger *slog.Logger) (*currency.Provider, error) {
	iso, err := currency.NewISOProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to load ISO 4217 table: %w", err)
	}
	spis := []currency.ProviderSpi{iso}

	if cfg != nil && cfg.CurrenciesFile != "" {
		extra, err := currency.LoadISOFile(cfg.CurrenciesFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load currencies file: %w", err)
		}
		spis = append(spis, currency.NewStaticProvider("file", extra...))
		logger.Info("Loaded extra currencies", "path", cfg.CurrenciesFile, "count", len(extra))
	}
	return currency.New(logger, spis), nil
}

// buildRateCache returns nil when caching is disabled.
func buildRateCache(cfg *config.Cache, logger *slog.Logger) (infra_cache.RateCache, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}
	if cfg.Url == "" {
		logger.Info("Using in-memory rate cache", "ttl", cfg.TTL)
		return infra_cache.NewMemoryCache(cfg.CleanupInterval), nil
	}
	c, err := infra_cache.NewRedisCache(cfg.Url, cfg.Prefix, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis rate cache: %w", err)
	}
	logger.Info("Using Redis rate cache", "prefix", cfg.Prefix, "ttl", cfg.TTL)
	return c, nil
}

func buildRates(
	cfg *config.App,
	currencies *currency.Provider,
	rateCache infra_cache.RateCache,
	logger *slog.Logger,
) (*exchange.Registry, error) {
	registry := exchange.NewRegistry(logger)
	registry.Register(exchange.RateTypeIdentity, infra_provider.IdentityProvider{})

	ttl := 15 * time.Minute
	if cfg.Cache != nil {
		ttl = cfg.Cache.TTL
	}
	cached := func(spi exchange.ProviderSpi, rateType exchange.RateType) exchange.ProviderSpi {
		if rateCache == nil {
			return spi
		}
		return infra_provider.NewCachedProvider(spi, rateCache, rateType, ttl, logger)
	}

	// A live feed takes precedence over the static table of the same type.
	if api := cfg.ExchangeRateApi; api != nil && api.Enabled {
		rateType := exchange.RateType(api.RateType)
		p := infra_provider.NewExchangeRateAPIProvider(infra_provider.ExchangeRateAPIConfig{
			BaseURL:  api.ApiUrl,
			APIKey:   api.ApiKey,
			Timeout:  api.HTTPTimeout,
			TTL:      api.RefreshTTL,
			RateType: rateType,
		}, logger)
		registry.Register(rateType, cached(p, rateType))
	}

	if rc := cfg.Rates; rc != nil && rc.Static != "" {
		rateType := exchange.RateType(rc.StaticType)
		rates, err := infra_provider.ParseRateTable(rc.Static, rateType, "static", currencies)
		if err != nil {
			return nil, fmt.Errorf("invalid static rate table: %w", err)
		}
		opts := []infra_provider.StaticOption{infra_provider.WithLogger(logger)}
		if rc.Reciprocal {
			opts = append(opts, infra_provider.WithReciprocal())
		}
		if rc.Base != "" {
			base, err := currencies.Get(money.DefaultNamespace, money.Code(rc.Base))
			if err != nil {
				return nil, fmt.Errorf("invalid rate base currency: %w", err)
			}
			opts = append(opts, infra_provider.WithBase(base))
		}
		registry.Register(rateType, infra_provider.NewStaticRateProvider("static", rateType, rates, opts...))
	}

	return registry, nil
}

// buildEvents returns nil when events are disabled.
func buildEvents(cfg *config.Events, logger *slog.Logger) (eventbus.Bus, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}
	if cfg.Url == "" {
		logger.Info("Using in-memory event bus")
		return infra_eventbus.NewWithMemory(logger), nil
	}
	bus, err := infra_eventbus.NewWithRedis(cfg.Url, cfg.Stream, cfg.Group, service.EventTypes(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis event bus: %w", err)
	}
	logger.Info("Using Redis event bus", "stream", cfg.Stream, "group", cfg.Group)
	return bus, nil
}

func logConversion(logger *slog.Logger) eventbus.HandlerFunc {
	return func(_ context.Context, e eventbus.Event) error {
		var evt service.ConversionCompleted
		switch v := e.(type) {
		case service.ConversionCompleted:
			evt = v
		case *service.ConversionCompleted:
			evt = *v
		default:
			return fmt.Errorf("unexpected event %T", e)
		}
		logger.Info("Conversion recorded",
			"id", evt.ID,
			"rate_type", evt.RateType,
			"from", evt.FromAmount+" "+evt.FromCurrency,
			"to", evt.ToAmount+" "+evt.ToCurrency,
			"factor", evt.Factor,
		)
		return nil
	}
}

// buildWarmer returns nil when caching is off or no targets are listed.
func buildWarmer(
	cfg *config.App,
	currencies *currency.Provider,
	fetcher caching.RatesFetcher,
	logger *slog.Logger,
) (*caching.Warmer, error) {
	if cfg.Cache == nil || !cfg.Cache.Enabled || cfg.Cache.WarmTargets == "" || cfg.Rates == nil {
		return nil, nil
	}
	base, err := currencies.Get(money.DefaultNamespace, money.Code(cfg.Rates.Base))
	if err != nil {
		return nil, fmt.Errorf("invalid rate base currency: %w", err)
	}
	var targets []money.Currency
	for _, code := range strings.Split(cfg.Cache.WarmTargets, ",") {
		code = strings.ToUpper(strings.TrimSpace(code))
		if code == "" {
			continue
		}
		c, err := currencies.Get(money.DefaultNamespace, money.Code(code))
		if err != nil {
			return nil, fmt.Errorf("invalid warm target: %w", err)
		}
		targets = append(targets, c)
	}
	return caching.NewWarmer(
		fetcher,
		exchange.RateType(cfg.Rates.DefaultType),
		base,
		targets,
		cfg.Cache.TTL,
		logger,
	), nil
}
