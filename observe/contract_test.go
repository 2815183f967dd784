package observe

import (
	"context"
	"testing"
	"time"
)

func TestLoggerContract_WithRegistry(t *testing.T) {
	logger := &noopLogger{}
	if logger.WithRegistry(RegistryMeta{Name: "noop"}) == nil {
		t.Fatalf("WithRegistry should return non-nil logger")
	}
}

func TestMetricsContract_NoPanic(t *testing.T) {
	metrics := &noopMetrics{}
	ctx := context.Background()
	meta := RegistryMeta{Name: "noop"}
	metrics.RecordLookup(ctx, meta, true)
	metrics.RecordCompute(ctx, meta, 10*time.Millisecond, true, nil)
	metrics.RecordEviction(ctx, meta, ReasonCollected, 1)
}

func TestTracerContract_NoPanic(t *testing.T) {
	tracer := newNoopTracer()
	_, span := tracer.StartSpan(context.Background(), RegistryMeta{Name: "noop"}, 1)
	tracer.EndSpan(span, nil)
}
