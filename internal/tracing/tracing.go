// Package tracing wires OpenTelemetry to a stdout exporter. When disabled,
// StartSpan hands back the span already in the context.
package tracing

import (
	"context"
	"io"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

const ServiceName = "trade-journal"

var (
	mu       sync.RWMutex
	tracer   trace.Tracer
	provider *sdktrace.TracerProvider
)

// Init installs a tracer provider exporting to w (stdout when nil).
func Init(enabled bool, w io.Writer) error {
	if !enabled {
		return nil
	}

	opts := []stdouttrace.Option{stdouttrace.WithPrettyPrint()}
	if w != nil {
		opts = append(opts, stdouttrace.WithWriter(w))
	}
	exporter, err := stdouttrace.New(opts...)
	if err != nil {
		return err
	}

	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(semconv.ServiceName(ServiceName)),
	)
	if err != nil {
		return err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	mu.Lock()
	provider = tp
	tracer = tp.Tracer(ServiceName)
	mu.Unlock()
	return nil
}

func Shutdown(ctx context.Context) error {
	mu.Lock()
	tp := provider
	provider, tracer = nil, nil
	mu.Unlock()

	if tp != nil {
		return tp.Shutdown(ctx)
	}
	return nil
}

func Enabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return tracer != nil
}

func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	mu.RLock()
	t := tracer
	mu.RUnlock()

	if t == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return t.Start(ctx, name, opts...)
}

// TraceID returns the active trace id, if any.
func TraceID(ctx context.Context) (string, bool) {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return "", false
	}
	return sc.TraceID().String(), true
}
