// Package observability holds the Prometheus metrics and logger setup.
package observability

import (
	"io"
	"log/slog"
	"strings"

	"github.com/opensource-finance/baobab/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for the comparison pipeline.
type Metrics struct {
	Comparisons        prometheus.Counter
	Cells              *prometheus.CounterVec // labels: status={ok,failed}, kind
	ComparisonDuration prometheus.Histogram
	CacheLookups       *prometheus.CounterVec // labels: result={hit,miss,error}
	JobsProcessed      *prometheus.CounterVec // labels: outcome={ok,error}
	SevereAlerts       prometheus.Counter
}

func newMetrics() *Metrics {
	return &Metrics{
		Comparisons: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "baobab",
			Name:      "comparisons_total",
			Help:      "Total scenario comparisons computed.",
		}),
		Cells: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "baobab",
			Name:      "cells_total",
			Help:      "Comparison cells by status and failure kind.",
		}, []string{"status", "kind"}),
		ComparisonDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "baobab",
			Name:      "comparison_duration_seconds",
			Help:      "Duration of a full scenario comparison.",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.5},
		}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "baobab",
			Name:      "cache_lookups_total",
			Help:      "Comparison cache lookups by result.",
		}, []string{"result"}),
		JobsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "baobab",
			Name:      "jobs_processed_total",
			Help:      "Async comparison jobs by outcome.",
		}, []string{"outcome"}),
		SevereAlerts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "baobab",
			Name:      "severe_alerts_total",
			Help:      "Comparisons that produced at least one Severe cell.",
		}),
	}
}

// NewMetrics creates the metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := newMetrics()
	reg.MustRegister(
		m.Comparisons,
		m.Cells,
		m.ComparisonDuration,
		m.CacheLookups,
		m.JobsProcessed,
		m.SevereAlerts,
	)
	return m
}

// NewMetricsForTesting creates unregistered metrics so tests can build as
// many as they need.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

// ObserveComparison records one finished comparison.
func (m *Metrics) ObserveComparison(result *domain.ComparisonResult, seconds float64) {
	if m == nil {
		return
	}
	m.Comparisons.Inc()
	m.ComparisonDuration.Observe(seconds)
	for i := range result.Cells {
		c := &result.Cells[i]
		if c.OK() {
			m.Cells.WithLabelValues(domain.CellOK, "").Inc()
			continue
		}
		m.Cells.WithLabelValues(domain.CellFailed, c.Failure.Kind).Inc()
	}
}

// NewLogger builds the process logger from the logging config.
func NewLogger(w io.Writer, cfg domain.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
