package oteltrace

import (
	"context"

	"github.com/Zhima-Mochi/readify/internal/observability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

type tracer struct{ t trace.Tracer }

// New returns a tracer bound to the global otel provider.
func New(name string) observability.Tracer {
	if name == "" {
		name = "readify"
	}
	return &tracer{t: otel.Tracer(name)}
}

func (t *tracer) Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.t.Start(ctx, name, trace.WithAttributes(attrs...))
}

// Install sets a sampling SDK provider and the W3C trace-context propagator as the otel globals.
// Span processors (exporters) are passed in by the caller; with none, spans still carry real ids
// for log correlation but are not shipped anywhere. The returned func flushes and stops the provider.
func Install(serviceName string, opts ...sdktrace.TracerProviderOption) func(context.Context) error {
	if serviceName == "" {
		serviceName = "readify"
	}
	res := sdkresource.NewSchemaless(attribute.String("service.name", serviceName))
	base := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
	}
	tp := sdktrace.NewTracerProvider(append(base, opts...)...)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))
	return tp.Shutdown
}
