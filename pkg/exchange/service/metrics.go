package service

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "monetary"

// Conversion outcomes recorded in the conversions counter.
const (
	outcomeOK         = "ok"
	outcomeNoProvider = "no_provider"
	outcomeNotFound   = "rate_not_found"
	outcomeMismatch   = "source_mismatch"
	outcomeError      = "error"
)

// Collector is a prometheus.Collector that collects metrics about
// conversions.
type Collector struct {
	conversions   *prometheus.CounterVec
	lookupSeconds *prometheus.HistogramVec
}

// NewMetricsCollector returns a new Collector.
func NewMetricsCollector() *Collector {
	return &Collector{
		conversions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "conversions_total",
				Help:      "The number of currency conversions by rate type and outcome.",
			}, []string{"rate_type", "outcome"},
		),
		lookupSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "rate_lookup_seconds",
				Help:      "The time taken to resolve an exchange rate.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"rate_type"},
		),
	}
}

// Describe is part of the prometheus.Collector interface.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.conversions.Describe(ch)
	c.lookupSeconds.Describe(ch)
}

// Collect is part of the prometheus.Collector interface.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.conversions.Collect(ch)
	c.lookupSeconds.Collect(ch)
}

func (c *Collector) observeConversion(rateType, outcome string) {
	if c == nil {
		return
	}
	c.conversions.WithLabelValues(rateType, outcome).Inc()
}

func (c *Collector) observeLookup(rateType string, seconds float64) {
	if c == nil {
		return
	}
	c.lookupSeconds.WithLabelValues(rateType).Observe(seconds)
}
