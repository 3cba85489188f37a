// Copyright 2025 Certen Protocol

package service

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the Prometheus collectors the service loop publishes to
// on every iteration, grounded on the pack's Metrics-struct-of-collectors
// idiom (internal/middleware.Metrics).
type Metrics struct {
	IterationsTotal    prometheus.Counter
	IterationFailures  *prometheus.CounterVec
	ProveDuration      prometheus.Histogram
	LatestBlockNumber  prometheus.Gauge
	HistoryDepth       prometheus.Gauge
}

// NewMetrics registers and returns the service loop's collectors against
// reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		IterationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "coprocessor_iterations_total",
			Help: "Total number of service loop iterations run.",
		}),
		IterationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coprocessor_iteration_failures_total",
			Help: "Service loop iterations that failed, by stage.",
		}, []string{"stage"}),
		ProveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "coprocessor_prove_duration_seconds",
			Help:    "Wall-clock duration of a prove+wrap round.",
			Buckets: prometheus.DefBuckets,
		}),
		LatestBlockNumber: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "coprocessor_latest_block_number",
			Help: "Execution block number of the most recently published proof.",
		}),
		HistoryDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "coprocessor_history_depth",
			Help: "Number of entries currently held in the proven-state history.",
		}),
	}

	reg.MustRegister(
		m.IterationsTotal,
		m.IterationFailures,
		m.ProveDuration,
		m.LatestBlockNumber,
		m.HistoryDepth,
	)

	return m
}
