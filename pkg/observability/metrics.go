package observability

import (
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// durationBucketBoundaries covers 10ms to 600s, spanning a single fast unit
// test up to a slow integration suite under a multi-minute timeout.
var durationBucketBoundaries = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600}

// RunMetrics holds the Prometheus instruments for a single headlamp
// invocation. There is no scrape endpoint, since the process does not live
// long enough for a collector to poll it: WriteFile gathers the registry
// into a text-exposition file instead.
type RunMetrics struct {
	registry *prometheus.Registry

	testsTotal       *prometheus.CounterVec
	testDuration     *prometheus.HistogramVec
	suitesTotal      *prometheus.CounterVec
	runDuration      prometheus.Histogram
	selectionSize    prometheus.Gauge
	selectionSkipped prometheus.Gauge
	cacheHits        *prometheus.CounterVec
	cacheMisses      *prometheus.CounterVec
}

// NewRunMetrics creates a fresh registry with all headlamp instruments registered.
func NewRunMetrics() *RunMetrics {
	reg := prometheus.NewRegistry()

	m := &RunMetrics{
		registry: reg,
		testsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "headlamp_tests_total",
			Help: "Total number of test cases observed, by runner and outcome.",
		}, []string{"runner", "outcome"}),
		testDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "headlamp_test_duration_seconds",
			Help:    "Per-test-case duration in seconds, by runner.",
			Buckets: durationBucketBoundaries,
		}, []string{"runner"}),
		suitesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "headlamp_suites_total",
			Help: "Total number of test suite files run, by runner and outcome.",
		}, []string{"runner", "outcome"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "headlamp_run_duration_seconds",
			Help:    "Wall-clock duration of a full headlamp invocation.",
			Buckets: durationBucketBoundaries,
		}),
		selectionSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "headlamp_selection_size",
			Help: "Number of test files selected to run in the last selection pass.",
		}),
		selectionSkipped: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "headlamp_selection_skipped",
			Help: "Number of candidate test files excluded by the selection pass.",
		}),
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "headlamp_cache_hits_total",
			Help: "Cache hits, by cache layer (fingerprint, dependency, route).",
		}, []string{"layer"}),
		cacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "headlamp_cache_misses_total",
			Help: "Cache misses, by cache layer (fingerprint, dependency, route).",
		}, []string{"layer"}),
	}

	reg.MustRegister(
		m.testsTotal, m.testDuration, m.suitesTotal, m.runDuration,
		m.selectionSize, m.selectionSkipped, m.cacheHits, m.cacheMisses,
	)

	return m
}

// RecordTest records the outcome and duration of a single test case.
// Safe to call on a nil receiver (no-op).
func (m *RunMetrics) RecordTest(runner, outcome string, duration time.Duration) {
	if m == nil {
		return
	}

	m.testsTotal.WithLabelValues(runner, outcome).Inc()
	m.testDuration.WithLabelValues(runner).Observe(duration.Seconds())
}

// RecordSuite records the outcome of a single test suite file.
func (m *RunMetrics) RecordSuite(runner, outcome string) {
	if m == nil {
		return
	}

	m.suitesTotal.WithLabelValues(runner, outcome).Inc()
}

// RecordRunDuration records the total wall-clock time of the invocation.
func (m *RunMetrics) RecordRunDuration(d time.Duration) {
	if m == nil {
		return
	}

	m.runDuration.Observe(d.Seconds())
}

// RecordSelection records the size of the final selected test set and how
// many candidates were excluded.
func (m *RunMetrics) RecordSelection(selected, skipped int) {
	if m == nil {
		return
	}

	m.selectionSize.Set(float64(selected))
	m.selectionSkipped.Set(float64(skipped))
}

// RecordCacheHit increments the hit counter for the named cache layer.
func (m *RunMetrics) RecordCacheHit(layer string) {
	if m == nil {
		return
	}

	m.cacheHits.WithLabelValues(layer).Inc()
}

// RecordCacheMiss increments the miss counter for the named cache layer.
func (m *RunMetrics) RecordCacheMiss(layer string) {
	if m == nil {
		return
	}

	m.cacheMisses.WithLabelValues(layer).Inc()
}

// Registry returns the underlying Prometheus registry, for gathering or for
// tests that want to inspect recorded samples directly.
func (m *RunMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteFile gathers all registered metric families and writes them to path
// in Prometheus text-exposition format. The headlamp CLI does not call it.
func (m *RunMetrics) WriteFile(path string) error {
	families, err := m.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create metrics file: %w", err)
	}
	defer f.Close()

	enc := expfmt.NewEncoder(f, expfmt.NewFormat(expfmt.TypeTextPlain))

	for _, mf := range families {
		encErr := enc.Encode(mf)
		if encErr != nil {
			return fmt.Errorf("encode metric family %s: %w", mf.GetName(), encErr)
		}
	}

	return nil
}
