package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics tracks metrics for the rule engine service.
//
// Metrics:
//   - regula_rebuilds_total: Snapshot rebuilds by outcome
//   - regula_rebuild_duration_seconds: Snapshot rebuild duration
//   - regula_snapshot_version: Version of the currently published snapshot
//   - regula_snapshot_rules: Number of rules in the current snapshot
//   - regula_searches_total: Search queries by outcome
//   - regula_search_duration_seconds: Search query duration
//   - regula_evaluations_total: Scenario evaluations by outcome
//   - regula_evaluation_duration_seconds: Scenario evaluation duration
type EngineMetrics struct {
	rebuildsTotal   *prometheus.CounterVec
	rebuildDuration prometheus.Histogram
	snapshotVersion prometheus.Gauge
	snapshotRules   prometheus.Gauge

	searchesTotal  *prometheus.CounterVec
	searchDuration prometheus.Histogram

	evaluationsTotal   *prometheus.CounterVec
	evaluationDuration prometheus.Histogram
}

// Config contains configuration for metric registration.
type Config struct {
	// Namespace is the Prometheus namespace prefix (default: "regula").
	Namespace string
}

// NewEngineMetrics creates and registers engine metrics with the provided
// registry.
func NewEngineMetrics(cfg Config, registry *prometheus.Registry) *EngineMetrics {
	namespace := cfg.Namespace
	if namespace == "" {
		namespace = "regula"
	}

	em := &EngineMetrics{
		rebuildsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rebuilds_total",
				Help:      "Total number of snapshot rebuild attempts",
			},
			[]string{"outcome"},
		),

		rebuildDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "rebuild_duration_seconds",
				Help:      "Duration of snapshot rebuilds in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 16), // 100µs to ~3s
			},
		),

		snapshotVersion: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "snapshot_version",
				Help:      "Version of the currently published snapshot",
			},
		),

		snapshotRules: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "snapshot_rules",
				Help:      "Number of rules in the current snapshot",
			},
		),

		searchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "searches_total",
				Help:      "Total number of search queries",
			},
			[]string{"outcome"},
		),

		searchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "search_duration_seconds",
				Help:      "Duration of search queries in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.000001, 2, 15), // 1µs to 16ms
			},
		),

		evaluationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "evaluations_total",
				Help:      "Total number of scenario evaluations",
			},
			[]string{"outcome"},
		),

		evaluationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "evaluation_duration_seconds",
				Help:      "Duration of scenario evaluations in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.000001, 2, 15),
			},
		),
	}

	registry.MustRegister(
		em.rebuildsTotal,
		em.rebuildDuration,
		em.snapshotVersion,
		em.snapshotRules,
		em.searchesTotal,
		em.searchDuration,
		em.evaluationsTotal,
		em.evaluationDuration,
	)

	return em
}

// RecordRebuild records a snapshot rebuild attempt.
//
// On success, version and ruleCount describe the published snapshot. On
// failure they are ignored and the previous snapshot gauges are left in
// place.
func (em *EngineMetrics) RecordRebuild(err error, duration time.Duration, version uint64, ruleCount int) {
	em.rebuildDuration.Observe(duration.Seconds())
	if err != nil {
		em.rebuildsTotal.WithLabelValues("error").Inc()
		return
	}
	em.rebuildsTotal.WithLabelValues("success").Inc()
	em.snapshotVersion.Set(float64(version))
	em.snapshotRules.Set(float64(ruleCount))
}

// RecordSearch records a search query.
func (em *EngineMetrics) RecordSearch(err error, duration time.Duration) {
	em.searchDuration.Observe(duration.Seconds())
	em.searchesTotal.WithLabelValues(outcome(err)).Inc()
}

// RecordEvaluation records a scenario evaluation.
func (em *EngineMetrics) RecordEvaluation(err error, duration time.Duration) {
	em.evaluationDuration.Observe(duration.Seconds())
	em.evaluationsTotal.WithLabelValues(outcome(err)).Inc()
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
