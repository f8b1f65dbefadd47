// Package metrics exposes the Prometheus instrumentation for scan runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Set holds every metric on its own registry so tests and embedded use
// never collide with the global default registry.
type Set struct {
	registry *prometheus.Registry

	// CandidatesEvaluated counts every evaluated candidate by strategy
	// and terminal status.
	CandidatesEvaluated *prometheus.CounterVec
	// HardFilterHits counts deliberate exclusions by reason code.
	HardFilterHits *prometheus.CounterVec
	// EvaluationFaults counts errored candidates by reason code.
	EvaluationFaults *prometheus.CounterVec

	ScanDuration   prometheus.Histogram
	SimulatedPaths prometheus.Counter

	LastScanCandidates prometheus.Gauge
	LastScanRanked     prometheus.Gauge
	LastScanTimestamp  prometheus.Gauge
}

// NewSet builds and registers the full metric set.
func NewSet() *Set {
	s := &Set{
		registry: prometheus.NewRegistry(),

		CandidatesEvaluated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "optionscan_candidates_evaluated_total",
				Help: "Candidates evaluated by strategy type and verdict status",
			},
			[]string{"strategy", "status"},
		),

		HardFilterHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "optionscan_hard_filter_hits_total",
				Help: "Hard-filter exclusions by reason code",
			},
			[]string{"reason"},
		),

		EvaluationFaults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "optionscan_evaluation_faults_total",
				Help: "Candidates that errored during evaluation, by reason code",
			},
			[]string{"reason"},
		),

		ScanDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "optionscan_scan_duration_seconds",
				Help:    "Wall-clock duration of full scan sessions",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
			},
		),

		SimulatedPaths: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "optionscan_simulated_paths_total",
				Help: "Total Monte Carlo paths drawn across all scans",
			},
		),

		LastScanCandidates: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "optionscan_last_scan_candidates",
				Help: "Candidate count of the most recent scan",
			},
		),

		LastScanRanked: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "optionscan_last_scan_ranked",
				Help: "Ranked candidate count of the most recent scan",
			},
		),

		LastScanTimestamp: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "optionscan_last_scan_timestamp_seconds",
				Help: "Unix timestamp of the most recent completed scan",
			},
		),
	}

	s.registry.MustRegister(
		s.CandidatesEvaluated,
		s.HardFilterHits,
		s.EvaluationFaults,
		s.ScanDuration,
		s.SimulatedPaths,
		s.LastScanCandidates,
		s.LastScanRanked,
		s.LastScanTimestamp,
	)
	return s
}

// RecordOutcome tallies one evaluated candidate. reason is empty for
// ranked candidates.
func (s *Set) RecordOutcome(strategy, status, reason string) {
	if s == nil {
		return
	}
	s.CandidatesEvaluated.WithLabelValues(strategy, status).Inc()
	switch status {
	case "hard_filtered":
		s.HardFilterHits.WithLabelValues(reason).Inc()
	case "errored":
		s.EvaluationFaults.WithLabelValues(reason).Inc()
	}
}

// RecordScan tallies one completed session.
func (s *Set) RecordScan(duration time.Duration, candidates, ranked, paths int) {
	if s == nil {
		return
	}
	s.ScanDuration.Observe(duration.Seconds())
	s.SimulatedPaths.Add(float64(paths))
	s.LastScanCandidates.Set(float64(candidates))
	s.LastScanRanked.Set(float64(ranked))
	s.LastScanTimestamp.SetToCurrentTime()
}

// Handler serves the set over HTTP for the /metrics endpoint.
func (s *Set) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}
