package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// RegistryMeta identifies a memoization registry in telemetry.
type RegistryMeta struct {
	Namespace string // Optional grouping, e.g. the owning package
	Name      string // Registry name; "default" when empty
}

// ID returns the fully qualified registry identifier.
// Format: <namespace>.<name> or <name>.
func (m RegistryMeta) ID() string {
	name := m.Name
	if name == "" {
		name = "default"
	}
	if m.Namespace != "" {
		return m.Namespace + "." + name
	}
	return name
}

// SpanName returns the span name used for factory invocations.
func (m RegistryMeta) SpanName() string {
	return "memo.compute." + m.ID()
}

func (m RegistryMeta) attributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("memo.registry", m.ID()),
	}
	if m.Namespace != "" {
		attrs = append(attrs, attribute.String("memo.namespace", m.Namespace))
	}
	return attrs
}

// Tracer wraps OpenTelemetry tracing for factory invocations.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a span for one factory invocation.
	StartSpan(ctx context.Context, meta RegistryMeta, keyLen int) (context.Context, trace.Span)

	// EndSpan ends the span, recording err when non-nil.
	EndSpan(span trace.Span, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer wraps an OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

func (t *tracerImpl) StartSpan(ctx context.Context, meta RegistryMeta, keyLen int) (context.Context, trace.Span) {
	attrs := append(meta.attributes(),
		attribute.Int("memo.keys", keyLen),
		attribute.Bool("memo.error", false),
	)

	return t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("memo.error", true))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

type noopTracer struct {
	noop trace.Tracer
}

func newNoopTracer() Tracer {
	return &noopTracer{
		noop: tracenoop.NewTracerProvider().Tracer("noop"),
	}
}

func (t *noopTracer) StartSpan(ctx context.Context, meta RegistryMeta, _ int) (context.Context, trace.Span) {
	return t.noop.Start(ctx, meta.SpanName())
}

func (t *noopTracer) EndSpan(span trace.Span, _ error) {
	span.End()
}
