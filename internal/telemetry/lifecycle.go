package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const lifecycleScope = instrumentationScope + "/lifecycle"

// Lifecycle holds the instruments recorded by the lifecycle engine.
// The zero value is not usable; call NewLifecycle after Init.
type Lifecycle struct {
	tracer      trace.Tracer
	transitions metric.Int64Counter
	denials     metric.Int64Counter
	failures    metric.Int64Counter
}

// NewLifecycle binds instruments to the current global providers.
func NewLifecycle() *Lifecycle {
	m := Meter(lifecycleScope)
	transitions, _ := m.Int64Counter("celerix.bugs.transitions",
		metric.WithDescription("Successful bug mutations by action"),
	)
	denials, _ := m.Int64Counter("celerix.bugs.denials",
		metric.WithDescription("Requests rejected by the role authorizer"),
	)
	failures, _ := m.Int64Counter("celerix.bugs.failures",
		metric.WithDescription("Requests failed for reasons other than authorization"),
	)
	return &Lifecycle{
		tracer:      Tracer(lifecycleScope),
		transitions: transitions,
		denials:     denials,
		failures:    failures,
	}
}

// Start opens a span for one lifecycle operation.
func (l *Lifecycle) Start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return l.tracer.Start(ctx, "lifecycle."+op, trace.WithAttributes(attrs...))
}

// Transition counts a successful mutation.
func (l *Lifecycle) Transition(ctx context.Context, action, role string) {
	l.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", action),
		attribute.String("role", role),
	))
}

// Denied counts an authorization rejection.
func (l *Lifecycle) Denied(ctx context.Context, action, role string) {
	l.denials.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", action),
		attribute.String("role", role),
	))
}

// Failed counts a validation, not-found or conflict failure.
func (l *Lifecycle) Failed(ctx context.Context, action, code string) {
	l.failures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", action),
		attribute.String("code", code),
	))
}
