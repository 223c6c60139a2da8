package infrastructure

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datacleaner/internal/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestOTelInitialization(t *testing.T) {
	providers, err := InitializeOTel(nil, discardLogger())
	require.NoError(t, err)

	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.MeterProvider)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.PrometheusHTTP)
	assert.Nil(t, providers.TracerProvider)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, providers.Shutdown(ctx))
}

func TestOTelInitialization_Disabled(t *testing.T) {
	providers, err := InitializeOTel(NewOTelConfig(config.TelemetryConfig{Enabled: false}), discardLogger())
	require.NoError(t, err)

	assert.Nil(t, providers.PrometheusHTTP)
	assert.NotNil(t, providers.Meter)

	metrics, err := CreateBusinessMetrics(providers.Meter)
	require.NoError(t, err)
	RecordCoercion(context.Background(), metrics, "integer", "success")
}

func TestOTelInitialization_UnknownExporter(t *testing.T) {
	cfg := DefaultOTelConfig()
	cfg.MetricExporter = "statsd"

	_, err := InitializeOTel(cfg, discardLogger())
	assert.Error(t, err)
}

func TestNewOTelConfig(t *testing.T) {
	oc := NewOTelConfig(config.TelemetryConfig{Enabled: true, ServiceName: "svc", TraceExporter: "stdout"})

	assert.Equal(t, "svc", oc.ServiceName)
	assert.True(t, oc.EnableTracing)
	assert.Equal(t, "stdout", oc.TraceExporter)
	assert.Equal(t, "prometheus", oc.MetricExporter)
}

func TestBusinessMetrics_Exposed(t *testing.T) {
	// Two providers in one process must not collide on registration
	for i := 0; i < 2; i++ {
		providers, err := InitializeOTel(DefaultOTelConfig(), discardLogger())
		require.NoError(t, err)

		metrics, err := CreateBusinessMetrics(providers.Meter)
		require.NoError(t, err)

		ctx := context.Background()
		RecordCoercion(ctx, metrics, "integer", "error")
		RecordSessionChange(ctx, metrics, 1)
		RecordRowsIngested(ctx, metrics, "csv", 42)
		RecordOperationMetrics(ctx, metrics, "convert", 20*time.Millisecond, errors.New("boom"))

		rec := httptest.NewRecorder()
		providers.PrometheusHTTP.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
		body := rec.Body.String()

		assert.Contains(t, body, "coercions_total")
		assert.Contains(t, body, `outcome="error"`)
		assert.Contains(t, body, "rows_ingested_total")
		assert.Contains(t, body, "sessions_active")
		assert.Contains(t, body, "operation_duration_seconds")
		assert.Contains(t, body, "operation_errors_total")
		assert.Contains(t, body, "go_goroutines")

		require.NoError(t, providers.Shutdown(context.Background()))
	}
}

func TestRecordHelpers_NilMetrics(t *testing.T) {
	ctx := context.Background()
	assert.NotPanics(t, func() {
		RecordCoercion(ctx, nil, "float", "success")
		RecordSessionChange(ctx, nil, -1)
		RecordRowsIngested(ctx, nil, "json", 1)
		RecordOperationMetrics(ctx, nil, "describe", time.Second, nil)
	})
}

func TestTraceIDFromContext_NoSpan(t *testing.T) {
	assert.Empty(t, TraceIDFromContext(context.Background()))
	assert.NotPanics(t, func() {
		AddSpanEvent(context.Background(), "x", map[string]interface{}{"k": 1})
		RecordError(context.Background(), errors.New("x"))
	})
}
