package api

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"sigs.k8s.io/controller-runtime/pkg/log"
)

// loggingSpanProcessor logs every span start/end, grounded on the
// teacher's pkg/server/middleware.loggingSpanProcessor — this system has
// no Jaeger/Tempo deployment of its own, so spans default to the log
// stream, with SetupTracing additionally batching to an OTLP collector
// when one is configured.
type loggingSpanProcessor struct{}

var _ sdktrace.SpanProcessor = (*loggingSpanProcessor)(nil)

func spanLogValues(s trace.SpanContext) []interface{} {
	return []interface{}{"span.id", s.SpanID().String(), "trace.id", s.TraceID().String()}
}

func (*loggingSpanProcessor) OnStart(_ context.Context, s sdktrace.ReadWriteSpan) {
	log.Log.Info("request started", spanLogValues(s.SpanContext())...)
}

func (*loggingSpanProcessor) OnEnd(s sdktrace.ReadOnlySpan) {
	log.Log.Info("request completed", spanLogValues(s.SpanContext())...)
}

func (*loggingSpanProcessor) Shutdown(context.Context) error { return nil }

func (*loggingSpanProcessor) ForceFlush(context.Context) error { return nil }

// SetupTracing installs the global tracer provider, shipping spans to
// otlpEndpoint over OTLP/HTTP when set, always logging them regardless.
func SetupTracing(ctx context.Context, otlpEndpoint string) error {
	otel.SetLogger(log.Log)

	opts := []sdktrace.TracerProviderOption{sdktrace.WithSpanProcessor(&loggingSpanProcessor{})}

	if otlpEndpoint != "" {
		exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpoint(otlpEndpoint), otlptracehttp.WithInsecure())
		if err != nil {
			return err
		}

		opts = append(opts, sdktrace.WithBatcher(exporter))
	}

	otel.SetTracerProvider(sdktrace.NewTracerProvider(opts...))

	return nil
}

// Tracing wraps every request in a server span named by its path, the
// chi-middleware-shaped equivalent of the teacher's middleware.Logger.
func Tracing(next http.Handler) http.Handler {
	tracer := otel.Tracer("airm-controller")
	propagator := otel.GetTextMapPropagator()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))

		ctx, span := tracer.Start(ctx, r.URL.Path, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		span.SetAttributes(attribute.String("http.method", r.Method), attribute.String("http.target", r.URL.Path))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
