// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics exposes Prometheus collectors for strategy attempts and
// resolutions across every cascade.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nayanlc19/journal-club-standalone/internal/cascade"
)

// Collector records cascade activity. It implements cascade.Observer.
type Collector struct {
	attempts    *prometheus.CounterVec
	durations   *prometheus.HistogramVec
	resolutions *prometheus.CounterVec
	gatherer    prometheus.Gatherer
}

// New registers the collectors on reg. Passing nil uses a fresh private
// registry, which keeps tests isolated from the default one.
func New(reg *prometheus.Registry) *Collector {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)
	return &Collector{
		attempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "journalclub_strategy_attempts_total",
				Help: "Strategy attempts, labeled by stage, tier, strategy and outcome.",
			},
			[]string{"stage", "tier", "strategy", "outcome"},
		),
		durations: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "journalclub_strategy_duration_seconds",
				Help:    "Histogram of strategy attempt latencies.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 120},
			},
			[]string{"stage", "strategy"},
		),
		resolutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "journalclub_resolutions_total",
				Help: "Resolutions, labeled by stage and result (won or exhausted).",
			},
			[]string{"stage", "result"},
		),
		gatherer: reg,
	}
}

// ObserveAttempt counts one settled attempt.
func (c *Collector) ObserveAttempt(kind cascade.Kind, a cascade.Attempt) {
	c.attempts.WithLabelValues(string(kind), a.Tier, a.Strategy, string(a.Status)).Inc()
	if a.Status != cascade.StatusSkipped && a.Status != cascade.StatusAbandoned {
		c.durations.WithLabelValues(string(kind), a.Strategy).Observe(a.Duration.Seconds())
	}
}

// ObserveResolution counts a finished resolution.
func (c *Collector) ObserveResolution(kind cascade.Kind, won bool) {
	result := "exhausted"
	if won {
		result = "won"
	}
	c.resolutions.WithLabelValues(string(kind), result).Inc()
}

// Handler returns an http.Handler exposing the collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}
