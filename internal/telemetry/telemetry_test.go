package telemetry

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

func TestSetup_InstallsGlobals(t *testing.T) {
	prevTP, prevProp := otel.GetTracerProvider(), otel.GetTextMapPropagator()
	t.Cleanup(func() {
		otel.SetTracerProvider(prevTP)
		otel.SetTextMapPropagator(prevProp)
	})
	ctx := context.Background()

	tp, err := Setup(ctx, "storefront-test", "")
	require.NoError(t, err)
	assert.Same(t, tp, otel.GetTracerProvider())
	assert.ElementsMatch(t, []string{"traceparent", "tracestate", "baggage"}, otel.GetTextMapPropagator().Fields())

	spanCtx, span := otel.Tracer("test").Start(ctx, "add item")
	require.True(t, span.SpanContext().IsValid(), "provider should create real spans")

	header := http.Header{}
	otel.GetTextMapPropagator().Inject(spanCtx, propagation.HeaderCarrier(header))
	assert.Contains(t, header.Get("traceparent"), span.SpanContext().TraceID().String())
	span.End()

	require.NoError(t, tp.Shutdown(ctx))
}

func TestSetup_WithExporterEndpoint(t *testing.T) {
	prevTP, prevProp := otel.GetTracerProvider(), otel.GetTextMapPropagator()
	t.Cleanup(func() {
		otel.SetTracerProvider(prevTP)
		otel.SetTextMapPropagator(prevProp)
	})

	// the exporter dials lazily, so no collector is needed to build it
	tp, err := Setup(context.Background(), "storefront-test", "localhost:4317")
	require.NoError(t, err)
	require.NotNil(t, tp)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = tp.Shutdown(ctx)
}
