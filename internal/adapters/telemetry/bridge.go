package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Bridge implements sdktrace.SpanProcessor to feed finished spans into the
// span duration histogram.
type Bridge struct {
	metrics *Metrics
}

// NewBridge returns a new Bridge.
func NewBridge(metrics *Metrics) *Bridge {
	return &Bridge{
		metrics: metrics,
	}
}

// OnStart does nothing.
func (b *Bridge) OnStart(_ context.Context, _ sdktrace.ReadWriteSpan) {}

// OnEnd is called when a span ends.
func (b *Bridge) OnEnd(s sdktrace.ReadOnlySpan) {
	if b.metrics == nil {
		return
	}

	sc := s.SpanContext()
	if !sc.IsValid() {
		return
	}

	status := "ok"
	if s.Status().Code == codes.Error {
		status = "error"
	}
	b.metrics.spanDuration.WithLabelValues(s.Name(), status).Observe(s.EndTime().Sub(s.StartTime()).Seconds())
}

// ForceFlush does nothing.
func (b *Bridge) ForceFlush(_ context.Context) error {
	return nil
}

// Shutdown does nothing.
func (b *Bridge) Shutdown(_ context.Context) error {
	return nil
}
