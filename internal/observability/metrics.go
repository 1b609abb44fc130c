package observability

import (
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector bundles the Prometheus metrics for oracle traffic, curtain
// builds and the base-elevation cache.
type Collector struct {
	gatherer prometheus.Gatherer

	OracleRequests  *prometheus.CounterVec
	OracleDurations *prometheus.HistogramVec
	Builds          *prometheus.CounterVec
	CacheLookups    *prometheus.CounterVec
}

// NewCollector registers metrics against reg, defaulting to the global
// registry when nil. Registering twice against the same registry reuses
// the existing collectors.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	requests, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geocurtain_oracle_requests_total",
		Help: "Elevation oracle queries, labeled by provider and outcome.",
	}, []string{"provider", "outcome"}), "geocurtain_oracle_requests_total")
	if err != nil {
		return nil, err
	}

	durations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "geocurtain_oracle_request_duration_seconds",
		Help:    "Elevation oracle query latency in seconds.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"provider"}), "geocurtain_oracle_request_duration_seconds")
	if err != nil {
		return nil, err
	}

	builds, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geocurtain_curtain_builds_total",
		Help: "Curtain builds, labeled by outcome (ok, fallback, degenerate, superseded).",
	}, []string{"outcome"}), "geocurtain_curtain_builds_total")
	if err != nil {
		return nil, err
	}

	lookups, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geocurtain_cache_lookups_total",
		Help: "Safe-base cache lookups, labeled by hit or miss.",
	}, []string{"result"}), "geocurtain_cache_lookups_total")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:        gatherer,
		OracleRequests:  requests,
		OracleDurations: durations,
		Builds:          builds,
		CacheLookups:    lookups,
	}, nil
}

// ObserveOracle records one oracle query.
func (c *Collector) ObserveOracle(provider, outcome string, d time.Duration) {
	if c == nil {
		return
	}
	c.OracleRequests.WithLabelValues(provider, outcome).Inc()
	c.OracleDurations.WithLabelValues(provider).Observe(d.Seconds())
}

// ObserveBuild records the outcome of one curtain build.
func (c *Collector) ObserveBuild(outcome string) {
	if c == nil {
		return
	}
	c.Builds.WithLabelValues(outcome).Inc()
}

// ObserveCache records a cache hit or miss.
func (c *Collector) ObserveCache(hit bool) {
	if c == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	c.CacheLookups.WithLabelValues(result).Inc()
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, errors.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, errors.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}
