package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Reason says why an entry left a registry.
type Reason string

const (
	// ReasonCollected means the cached value was reclaimed by the garbage collector.
	ReasonCollected Reason = "collected"
	// ReasonUnregistered means the caller removed the entry explicitly.
	ReasonUnregistered Reason = "unregistered"
	// ReasonKeyCollected means an object in the key sequence was reclaimed.
	ReasonKeyCollected Reason = "key_collected"
)

// Metrics records registry activity.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordLookup records a Register call that hit or missed the cache.
	RecordLookup(ctx context.Context, meta RegistryMeta, hit bool)

	// RecordCompute records one factory invocation. weak reports whether the
	// result is held weakly. err is non-nil when the factory panicked.
	RecordCompute(ctx context.Context, meta RegistryMeta, duration time.Duration, weak bool, err error)

	// RecordEviction records n entries removed for reason.
	RecordEviction(ctx context.Context, meta RegistryMeta, reason Reason, n int)
}

type metricsImpl struct {
	lookups      metric.Int64Counter
	computes     metric.Int64Counter
	panics       metric.Int64Counter
	durationHist metric.Float64Histogram
	evictions    metric.Int64Counter
}

// NewMetrics creates the registry instruments on meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	lookups, err := meter.Int64Counter(
		"memo.lookups",
		metric.WithDescription("Register calls by cache result"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	computes, err := meter.Int64Counter(
		"memo.computes",
		metric.WithDescription("Factory invocations"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	panics, err := meter.Int64Counter(
		"memo.compute.panics",
		metric.WithDescription("Factory invocations that panicked"),
		metric.WithUnit("{panic}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"memo.compute.duration_ms",
		metric.WithDescription("Factory duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	evictions, err := meter.Int64Counter(
		"memo.evictions",
		metric.WithDescription("Entries removed from a registry"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		lookups:      lookups,
		computes:     computes,
		panics:       panics,
		durationHist: durationHist,
		evictions:    evictions,
	}, nil
}

func (m *metricsImpl) RecordLookup(ctx context.Context, meta RegistryMeta, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	attrs := append(meta.attributes(), attribute.String("memo.result", result))
	m.lookups.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *metricsImpl) RecordCompute(ctx context.Context, meta RegistryMeta, duration time.Duration, weak bool, err error) {
	opt := metric.WithAttributes(meta.attributes()...)

	if err != nil {
		m.panics.Add(ctx, 1, opt)
	} else {
		storage := "strong"
		if weak {
			storage = "weak"
		}
		attrs := append(meta.attributes(), attribute.String("memo.storage", storage))
		m.computes.Add(ctx, 1, metric.WithAttributes(attrs...))
	}

	m.durationHist.Record(ctx, float64(duration.Microseconds())/1000, opt)
}

func (m *metricsImpl) RecordEviction(ctx context.Context, meta RegistryMeta, reason Reason, n int) {
	if n <= 0 {
		return
	}
	attrs := append(meta.attributes(), attribute.String("memo.reason", string(reason)))
	m.evictions.Add(ctx, int64(n), metric.WithAttributes(attrs...))
}

type noopMetrics struct{}

func (m *noopMetrics) RecordLookup(context.Context, RegistryMeta, bool) {}

func (m *noopMetrics) RecordCompute(context.Context, RegistryMeta, time.Duration, bool, error) {}

func (m *noopMetrics) RecordEviction(context.Context, RegistryMeta, Reason, int) {}
