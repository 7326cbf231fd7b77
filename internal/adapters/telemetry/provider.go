package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// ServiceName identifies the process in trace resources.
const ServiceName = "relcache"

// NewTracerProvider creates a TracerProvider that reports span durations to
// metrics and hands spans to any extra processors.
func NewTracerProvider(metrics *Metrics, version string, processors ...sdktrace.SpanProcessor) *sdktrace.TracerProvider {
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", ServiceName),
			attribute.String("service.version", version),
		)),
		sdktrace.WithSpanProcessor(NewBridge(metrics)),
	}
	for _, p := range processors {
		opts = append(opts, sdktrace.WithSpanProcessor(p))
	}
	return sdktrace.NewTracerProvider(opts...)
}

// Setup registers a TracerProvider as the global provider and returns its
// shutdown function.
func Setup(metrics *Metrics, version string) func(context.Context) error {
	tp := NewTracerProvider(metrics, version)
	otel.SetTracerProvider(tp)
	return tp.Shutdown
}
