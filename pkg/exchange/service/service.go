package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/amirasaad/monetary/pkg/eventbus"
	"github.com/amirasaad/monetary/pkg/exchange"
	"github.com/amirasaad/monetary/pkg/money"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// Service converts monetary amounts using the providers of a rate registry
type Service struct {
	registry *exchange.Registry
	logger   *slog.Logger
	metrics  *Collector
	events   eventbus.Bus
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithMetrics records conversion metrics and registers them with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(s *Service) {
		c := NewMetricsCollector()
		if err := reg.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				if existing, ok := already.ExistingCollector.(*Collector); ok {
					s.metrics = existing
					return
				}
			}
			s.logger.Warn("failed to register conversion metrics", "error", err)
			return
		}
		s.metrics = c
	}
}

// WithEvents emits a ConversionCompleted event on bus after every
// successful conversion. Emission failures are logged, never returned.
func WithEvents(bus eventbus.Bus) Option {
	return func(s *Service) {
		s.events = bus
	}
}

// WithClock overrides the clock used to stamp quotes.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// New creates a conversion service over registry.
func New(
	registry *exchange.Registry,
	logger *slog.Logger,
	opts ...Option,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Service{
		registry: registry,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Conversion is a converted amount together with the rate that produced it.
type Conversion struct {
	ID   uuid.UUID              `json:"id"`
	From money.Money            `json:"from"`
	To   money.Money            `json:"to"`
	Rate *exchange.ExchangeRate `json:"rate"`
	At   time.Time              `json:"at"`
}

// Convert converts amount to target using the current rate of rateType.
func (s *Service) Convert(
	ctx context.Context,
	rateType exchange.RateType,
	amount money.Money,
	target money.Currency,
) (money.Money, error) {
	return s.ConvertAt(ctx, rateType, amount, target, time.Time{})
}

// ConvertAt converts amount to target using the rate of rateType valid at
// at. A zero at asks for the current rate. The result is not rounded.
func (s *Service) ConvertAt(
	ctx context.Context,
	rateType exchange.RateType,
	amount money.Money,
	target money.Currency,
	at time.Time,
) (money.Money, error) {
	c, err := s.quote(ctx, rateType, amount, target, at)
	if err != nil {
		return money.Money{}, err
	}
	return c.To, nil
}

// Quote converts amount like ConvertAt and returns the full record of the
// conversion.
func (s *Service) Quote(
	ctx context.Context,
	rateType exchange.RateType,
	amount money.Money,
	target money.Currency,
	at time.Time,
) (*Conversion, error) {
	return s.quote(ctx, rateType, amount, target, at)
}

func (s *Service) quote(
	ctx context.Context,
	rateType exchange.RateType,
	amount money.Money,
	target money.Currency,
	at time.Time,
) (*Conversion, error) {
	fail := func(outcome string, cause error) (*Conversion, error) {
		s.metrics.observeConversion(string(rateType), outcome)
		s.logger.Debug("conversion failed",
			"rate_type", rateType,
			"from", amount.Currency(),
			"to", target,
			"error", cause,
		)
		return nil, &exchange.ConversionError{
			RateType: rateType,
			Source:   amount.Currency(),
			Target:   target,
			At:       at,
			Err:      cause,
		}
	}

	provider, ok := s.registry.Provider(rateType)
	if !ok {
		return fail(outcomeNoProvider, exchange.ErrNoProvider)
	}

	stamp := at
	if stamp.IsZero() {
		stamp = s.now().UTC()
	}

	if amount.Currency().SameCurrency(target) {
		rate, err := exchange.NewBuilder(rateType).
			Source(amount.Currency()).
			Target(target).
			SourceLeadingFactor(decimal.NewFromInt(1)).
			Provider("identity").
			Build()
		if err != nil {
			return fail(outcomeError, err)
		}
		return s.succeed(ctx, rateType, &Conversion{ID: uuid.New(), From: amount, To: amount, Rate: rate, At: stamp}), nil
	}

	start := time.Now()
	rate, ok := provider.Get(ctx, exchange.Query{
		Source: amount.Currency(),
		Target: target,
		At:     at,
	})
	s.metrics.observeLookup(string(rateType), time.Since(start).Seconds())
	if !ok {
		return fail(outcomeNotFound, exchange.ErrRateNotFound)
	}

	converted, err := exchange.Apply(amount, rate)
	if err != nil {
		if errors.Is(err, exchange.ErrSourceMismatch) {
			s.logger.Warn("provider returned rate for another source",
				"rate_type", rateType,
				"provider", rate.Provider(),
				"expected", amount.Currency(),
				"got", rate.Source(),
			)
			return fail(outcomeMismatch, exchange.ErrSourceMismatch)
		}
		return fail(outcomeError, err)
	}

	return s.succeed(ctx, rateType, &Conversion{
		ID:   uuid.New(),
		From: amount,
		To:   converted,
		Rate: rate,
		At:   stamp,
	}), nil
}

func (s *Service) succeed(ctx context.Context, rateType exchange.RateType, c *Conversion) *Conversion {
	s.metrics.observeConversion(string(rateType), outcomeOK)
	if s.events != nil {
		if err := s.events.Emit(ctx, newConversionCompleted(c)); err != nil {
			s.logger.Warn("failed to emit conversion event", "id", c.ID, "error", err)
		}
	}
	return c
}

// Rates looks up the rates from one currency to several targets in a single
// call. Targets without a rate map to nil.
func (s *Service) Rates(
	ctx context.Context,
	rateType exchange.RateType,
	from money.Currency,
	to []money.Currency,
	at time.Time,
) (map[string]*exchange.ExchangeRate, error) {
	if len(to) == 0 {
		return nil, errors.New("no target currencies provided")
	}

	provider, ok := s.registry.Provider(rateType)
	if !ok {
		return nil, &exchange.ConversionError{
			RateType: rateType,
			Source:   from,
			At:       at,
			Err:      exchange.ErrNoProvider,
		}
	}

	result := make(map[string]*exchange.ExchangeRate, len(to))
	for _, target := range to {
		rate, ok := provider.Get(ctx, exchange.Query{Source: from, Target: target, At: at})
		if !ok {
			result[target.Key()] = nil // Indicate missing rate
			continue
		}
		result[target.Key()] = rate
	}
	return result, nil
}
