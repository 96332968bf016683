package observability_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/headlamp-run/headlamp/pkg/observability"
)

// acceptanceSpanCount is the expected number of spans in the acceptance test
// (root run span + selection span + runner span).
const acceptanceSpanCount = 3

// TestAcceptance_EndToEnd verifies tracing (for log correlation), Prometheus
// metrics, and structured logging all work together across a single
// simulated headlamp run.
func TestAcceptance_EndToEnd(t *testing.T) {
	t.Parallel()

	spanExporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(spanExporter))

	t.Cleanup(func() { require.NoError(t, tp.Shutdown(context.Background())) })

	tracer := tp.Tracer("headlamp")

	metrics := observability.NewRunMetrics()

	var logBuf bytes.Buffer

	innerHandler := slog.NewJSONHandler(&logBuf, &slog.HandlerOptions{Level: slog.LevelDebug})
	tracingHandler := observability.NewTracingHandler(innerHandler, "headlamp", "test", observability.ModeRun)
	logger := slog.New(tracingHandler)

	ctx, rootSpan := tracer.Start(context.Background(), "headlamp.run")

	_, selectSpan := tracer.Start(ctx, "headlamp.selection")
	selectSpan.End()

	_, runSpan := tracer.Start(ctx, "headlamp.runner.cargo-nextest")
	runSpan.End()

	metrics.RecordTest("cargo-nextest", "passed", 120*time.Millisecond)
	metrics.RecordSuite("cargo-nextest", "passed")
	metrics.RecordRunDuration(3 * time.Second)
	metrics.RecordSelection(12, 4)
	metrics.RecordCacheHit("fingerprint")
	metrics.RecordCacheMiss("dependency")

	logger.InfoContext(ctx, "run.complete", "tests_run", 12)

	rootSpan.End()

	spans := spanExporter.GetSpans()
	require.Len(t, spans, acceptanceSpanCount, "expected root + selection + runner spans")

	spanNames := make(map[string]bool, len(spans))
	for _, s := range spans {
		spanNames[s.Name] = true
	}

	assert.True(t, spanNames["headlamp.run"])
	assert.True(t, spanNames["headlamp.selection"])
	assert.True(t, spanNames["headlamp.runner.cargo-nextest"])

	traceID := spans[0].SpanContext.TraceID()
	for _, s := range spans[1:] {
		assert.Equal(t, traceID, s.SpanContext.TraceID(), "span %q should share trace ID", s.Name)
	}

	families, err := metrics.Registry().Gather()
	require.NoError(t, err)
	assert.True(t, hasMetric(families, "headlamp_tests_total"))
	assert.True(t, hasMetric(families, "headlamp_suites_total"))
	assert.True(t, hasMetric(families, "headlamp_run_duration_seconds"))
	assert.True(t, hasMetric(families, "headlamp_cache_hits_total"))
	assert.True(t, hasMetric(families, "headlamp_cache_misses_total"))

	var logRecord map[string]any

	err = json.Unmarshal(logBuf.Bytes(), &logRecord)
	require.NoError(t, err)

	assert.Equal(t, traceID.String(), logRecord["trace_id"])
	assert.Contains(t, logRecord, "span_id")
	assert.Equal(t, "headlamp", logRecord["service"])

	testsRun, ok := logRecord["tests_run"].(float64)
	require.True(t, ok)
	assert.InDelta(t, 12, testsRun, 0)
}
