// Package metrics exposes the Prometheus collectors the admin surface
// serves at /metrics (SPEC_FULL.md §A4), covering C2's fetch/retry
// behavior, C3's cache effectiveness, and C6/C7's run outcomes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Recorder bundles every collector this module registers. It is built
// once at startup and threaded into C2–C7 by reference.
type Recorder struct {
	FetchLatency   *prometheus.HistogramVec
	FetchRetries   *prometheus.CounterVec
	CacheHits      *prometheus.CounterVec
	CacheMisses    *prometheus.CounterVec
	RunDuration    *prometheus.HistogramVec
	RunsTotal      *prometheus.CounterVec
	DroppedItems   *prometheus.CounterVec
}

// NewRecorder creates and registers every collector against reg. Passing
// prometheus.NewRegistry() (rather than the global DefaultRegisterer)
// keeps repeated construction in tests from panicking on duplicate
// registration.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		FetchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pytanis",
			Subsystem: "fetch",
			Name:      "latency_seconds",
			Help:      "Latency of individual upstream list/detail requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),

		FetchRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pytanis",
			Subsystem: "fetch",
			Name:      "retries_total",
			Help:      "Count of retried requests, by endpoint and reason.",
		}, []string{"endpoint", "reason"}),

		CacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pytanis",
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Expansion cache hits, by entity kind.",
		}, []string{"kind"}),

		CacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pytanis",
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Expansion cache misses, by entity kind.",
		}, []string{"kind"}),

		RunDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pytanis",
			Subsystem: "run",
			Name:      "duration_seconds",
			Help:      "Wall-clock duration of a fetch/assign/schedule run.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}, []string{"kind", "outcome"}),

		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pytanis",
			Subsystem: "run",
			Name:      "total",
			Help:      "Completed runs, by kind and outcome.",
		}, []string{"kind", "outcome"}),

		DroppedItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pytanis",
			Subsystem: "run",
			Name:      "dropped_items_total",
			Help:      "Proposals or reviewers dropped as non-fatal diagnostics, by reason.",
		}, []string{"reason"}),
	}

	reg.MustRegister(
		r.FetchLatency,
		r.FetchRetries,
		r.CacheHits,
		r.CacheMisses,
		r.RunDuration,
		r.RunsTotal,
		r.DroppedItems,
	)

	return r
}

// CacheHitRatio returns hits/(hits+misses), or 0 when neither
// has been observed. Intended for the admin surface's run summary, not
// for the scraped Prometheus series itself (counters can't divide).
func CacheHitRatio(hits, misses float64) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return hits / total
}
