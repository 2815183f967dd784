package observe

import (
	"context"
	"fmt"
	"time"
)

// ComputeFunc runs a factory for a key sequence of keyLen keys. It returns
// the value and whether the registry will hold it weakly.
type ComputeFunc func(ctx context.Context, meta RegistryMeta, keyLen int) (value any, weak bool)

// Middleware instruments a registry with tracing, metrics and logging.
//
// Contract:
//   - Concurrency: all methods are safe for concurrent use.
//   - Errors: a panicking factory is recorded, then re-raised with its original value.
//   - Ownership: values are passed through without modification.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a Middleware. Nil components are replaced by no-ops.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = newNoopTracer()
	}
	if metrics == nil {
		metrics = &noopMetrics{}
	}
	if logger == nil {
		logger = &noopLogger{}
	}
	return &Middleware{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// NopMiddleware returns a Middleware that records nothing.
func NopMiddleware() *Middleware {
	return NewMiddleware(nil, nil, nil)
}

// MiddlewareFromObserver creates a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}

	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, fmt.Errorf("observe: create metrics: %w", err)
	}

	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}

// Logger returns the logger the middleware writes to.
func (m *Middleware) Logger() Logger {
	return m.logger
}

// Wrap wraps fn with a span, compute metrics and a debug log line.
func (m *Middleware) Wrap(fn ComputeFunc) ComputeFunc {
	return func(ctx context.Context, meta RegistryMeta, keyLen int) (value any, weak bool) {
		ctx, span := m.tracer.StartSpan(ctx, meta, keyLen)
		start := time.Now()
		completed := false

		defer func() {
			if completed {
				return
			}
			r := recover()
			duration := time.Since(start)
			if r == nil {
				// runtime.Goexit
				m.tracer.EndSpan(span, nil)
				return
			}
			err := fmt.Errorf("%w: %v", ErrComputePanicked, r)
			m.tracer.EndSpan(span, err)
			m.metrics.RecordCompute(ctx, meta, duration, false, err)
			m.logger.WithRegistry(meta).Error(ctx, "memo compute panicked",
				Field{Key: "key_len", Value: keyLen},
				Field{Key: "duration_ms", Value: float64(duration.Milliseconds())},
				Field{Key: "error", Value: err.Error()},
			)
			panic(r)
		}()

		value, weak = fn(ctx, meta, keyLen)
		completed = true

		duration := time.Since(start)
		m.tracer.EndSpan(span, nil)
		m.metrics.RecordCompute(ctx, meta, duration, weak, nil)
		m.logger.WithRegistry(meta).Debug(ctx, "memo value computed",
			Field{Key: "key_len", Value: keyLen},
			Field{Key: "weak", Value: weak},
			Field{Key: "duration_ms", Value: float64(duration.Milliseconds())},
		)

		return value, weak
	}
}

// Lookup records a Register call that hit or missed.
func (m *Middleware) Lookup(ctx context.Context, meta RegistryMeta, hit bool) {
	m.metrics.RecordLookup(ctx, meta, hit)
}

// Evicted records n entries removed for reason.
func (m *Middleware) Evicted(ctx context.Context, meta RegistryMeta, reason Reason, n int) {
	if n <= 0 {
		return
	}
	m.metrics.RecordEviction(ctx, meta, reason, n)
	m.logger.WithRegistry(meta).Debug(ctx, "memo entries evicted",
		Field{Key: "reason", Value: string(reason)},
		Field{Key: "count", Value: n},
	)
}
