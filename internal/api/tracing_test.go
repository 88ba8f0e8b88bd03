package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"go.opentelemetry.io/otel/trace"
)

func TestTracingPropagatesSpanContextToHandler(t *testing.T) {
	assert.NoError(t, SetupTracing(context.Background(), ""))

	var sawSpanContext trace.SpanContext

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawSpanContext = trace.SpanContextFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	handler := Tracing(next)

	req := httptest.NewRequest(http.MethodGet, "/v1/projects/my-project", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, sawSpanContext.IsValid())
}

func TestSetupTracingWithoutOTLPEndpoint(t *testing.T) {
	// No OTLP endpoint configured: SetupTracing should install the
	// logging-only tracer provider and return without attempting any
	// network dial.
	err := SetupTracing(context.Background(), "")
	assert.NoError(t, err)
}
