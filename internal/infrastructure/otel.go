package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"

	"datacleaner/internal/config"
)

const MeterName = "datacleaner"

// OTelConfig holds OpenTelemetry configuration
type OTelConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	TraceExporter  string // "stdout", "none"
	MetricExporter string // "prometheus", "none"
	EnableMetrics  bool
	EnableTracing  bool
	SampleRatio    float64
}

// OTelProviders holds the OpenTelemetry providers
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	PrometheusHTTP http.Handler
	Logger         *slog.Logger
}

// DefaultOTelConfig returns a default OpenTelemetry configuration
func DefaultOTelConfig() *OTelConfig {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	return &OTelConfig{
		ServiceName:    config.AppName,
		ServiceVersion: config.AppVersion,
		Environment:    env,
		TraceExporter:  "none",
		MetricExporter: "prometheus",
		EnableMetrics:  true,
		EnableTracing:  false,
		SampleRatio:    1.0,
	}
}

// NewOTelConfig maps the telemetry section of the application config.
func NewOTelConfig(cfg config.TelemetryConfig) *OTelConfig {
	oc := DefaultOTelConfig()
	if cfg.ServiceName != "" {
		oc.ServiceName = cfg.ServiceName
	}
	oc.EnableMetrics = cfg.Enabled
	if !cfg.Enabled {
		oc.MetricExporter = "none"
	}
	if cfg.Enabled && cfg.TraceExporter == "stdout" {
		oc.EnableTracing = true
		oc.TraceExporter = "stdout"
	}
	return oc
}

// InitializeOTel initializes tracing and metrics. Disabled signals fall back
// to no-op implementations so callers never check for nil.
func InitializeOTel(cfg *OTelConfig, logger *slog.Logger) (*OTelProviders, error) {
	if cfg == nil {
		cfg = DefaultOTelConfig()
	}

	ctx := context.Background()

	logger.InfoContext(ctx, "Initializing OpenTelemetry",
		slog.String("service", cfg.ServiceName),
		slog.String("version", cfg.ServiceVersion),
		slog.String("environment", cfg.Environment),
		slog.Bool("tracing_enabled", cfg.EnableTracing),
		slog.Bool("metrics_enabled", cfg.EnableMetrics))

	res := createResource(cfg)

	providers := &OTelProviders{
		Logger: logger,
	}

	if cfg.EnableTracing {
		if err := initializeTracing(ctx, cfg, res, providers); err != nil {
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
	}
	if providers.Tracer == nil {
		providers.Tracer = otel.Tracer(MeterName)
	}

	if cfg.EnableMetrics {
		if err := initializeMetrics(ctx, cfg, res, providers); err != nil {
			return nil, fmt.Errorf("failed to initialize metrics: %w", err)
		}
	}
	if providers.Meter == nil {
		providers.Meter = noop.NewMeterProvider().Meter(MeterName)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.InfoContext(ctx, "OpenTelemetry initialization complete",
		slog.Bool("tracing_enabled", cfg.EnableTracing),
		slog.Bool("metrics_enabled", cfg.EnableMetrics))

	return providers, nil
}

// createResource creates the OpenTelemetry resource
func createResource(cfg *OTelConfig) *resource.Resource {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.DeploymentEnvironmentName(cfg.Environment),
		attribute.String("service.instance.id", generateInstanceID()),
	)
}

// initializeTracing sets up OpenTelemetry tracing
func initializeTracing(ctx context.Context, cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	var exporter sdktrace.SpanExporter
	var err error

	switch cfg.TraceExporter {
	case "stdout":
		exporter, err = stdouttrace.New(
			stdouttrace.WithPrettyPrint(),
		)
	case "none", "":
		return nil
	default:
		return fmt.Errorf("unsupported trace exporter: %s", cfg.TraceExporter)
	}

	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRatio)),
	)

	providers.TracerProvider = tp
	providers.Tracer = tp.Tracer(MeterName, trace.WithInstrumentationVersion(cfg.ServiceVersion))

	otel.SetTracerProvider(tp)

	providers.Logger.InfoContext(ctx, "Tracing initialized",
		slog.String("exporter", cfg.TraceExporter),
		slog.Float64("sample_ratio", cfg.SampleRatio))

	return nil
}

// initializeMetrics sets up OpenTelemetry metrics. Every provider gets its
// own registry so repeated initialisation (tests, CLI runs) never collides
// on the default registerer.
func initializeMetrics(ctx context.Context, cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	switch cfg.MetricExporter {
	case "prometheus":
		registry := promclient.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)

		exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
		if err != nil {
			return fmt.Errorf("failed to create prometheus exporter: %w", err)
		}

		providers.PrometheusHTTP = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(exporter),
		)

		providers.MeterProvider = mp
		providers.Meter = mp.Meter(MeterName, metric.WithInstrumentationVersion(cfg.ServiceVersion))

		otel.SetMeterProvider(mp)

	case "none", "":
		return nil
	default:
		return fmt.Errorf("unsupported metric exporter: %s", cfg.MetricExporter)
	}

	providers.Logger.InfoContext(ctx, "Metrics initialized",
		slog.String("exporter", cfg.MetricExporter))

	return nil
}

// BusinessMetrics are the service's instruments. The HTTP ones are fed by
// the OTel middleware, the rest by the session store and the hub.
type BusinessMetrics struct {
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
	HTTPActiveRequests  metric.Int64UpDownCounter

	CoercionsTotal    metric.Int64Counter
	OperationsTotal   metric.Int64Counter
	OperationDuration metric.Float64Histogram
	OperationErrors   metric.Int64Counter
	SessionsActive    metric.Int64UpDownCounter
	RowsIngested      metric.Int64Counter

	WebSocketClients metric.Int64UpDownCounter
}

// CreateBusinessMetrics registers every instrument on meter.
func CreateBusinessMetrics(meter metric.Meter) (*BusinessMetrics, error) {
	m := &BusinessMetrics{}
	var errs []error
	counter := func(dst *metric.Int64Counter, name, desc string) {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc))
		*dst, errs = c, append(errs, err)
	}
	gauge := func(dst *metric.Int64UpDownCounter, name, desc string) {
		c, err := meter.Int64UpDownCounter(name, metric.WithDescription(desc))
		*dst, errs = c, append(errs, err)
	}
	seconds := func(dst *metric.Float64Histogram, name, desc string) {
		h, err := meter.Float64Histogram(name, metric.WithDescription(desc), metric.WithUnit("s"))
		*dst, errs = h, append(errs, err)
	}

	counter(&m.HTTPRequestsTotal, "http_requests_total", "Total number of HTTP requests")
	seconds(&m.HTTPRequestDuration, "http_request_duration_seconds", "HTTP request duration in seconds")
	gauge(&m.HTTPActiveRequests, "http_active_requests", "Number of active HTTP requests")

	counter(&m.CoercionsTotal, "coercions_total", "Column conversions by target kind and outcome")
	counter(&m.OperationsTotal, "operations_total", "Dataset operations by name and status")
	seconds(&m.OperationDuration, "operation_duration_seconds", "Dataset operation duration in seconds")
	counter(&m.OperationErrors, "operation_errors_total", "Total number of failed dataset operations")
	gauge(&m.SessionsActive, "sessions_active", "Number of open dataset sessions")
	counter(&m.RowsIngested, "rows_ingested_total", "Rows loaded from uploaded files by format")

	gauge(&m.WebSocketClients, "websocket_clients", "Number of connected event stream clients")

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}
	return m, nil
}

// Shutdown flushes and stops whichever providers were started.
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var errs []error
	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider: %w", err))
		}
	}
	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("opentelemetry shutdown: %w", err)
	}

	p.Logger.InfoContext(ctx, "OpenTelemetry shutdown complete")
	return nil
}

// generateInstanceID generates a unique instance identifier
func generateInstanceID() string {
	hostname, _ := os.Hostname()
	return fmt.Sprintf("%s-%d", hostname, time.Now().Unix())
}

// TraceIDFromContext extracts trace ID from context for logging correlation
func TraceIDFromContext(ctx context.Context) string {
	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.IsValid() {
		return spanCtx.TraceID().String()
	}
	return ""
}

// AddSpanEvent adds an event to the current span with structured attributes
func AddSpanEvent(ctx context.Context, name string, attributes map[string]interface{}) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	attrs := make([]attribute.KeyValue, 0, len(attributes))
	for k, v := range attributes {
		switch val := v.(type) {
		case string:
			attrs = append(attrs, attribute.String(k, val))
		case int:
			attrs = append(attrs, attribute.Int(k, val))
		case int64:
			attrs = append(attrs, attribute.Int64(k, val))
		case float64:
			attrs = append(attrs, attribute.Float64(k, val))
		case bool:
			attrs = append(attrs, attribute.Bool(k, val))
		default:
			attrs = append(attrs, attribute.String(k, fmt.Sprintf("%v", val)))
		}
	}

	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// RecordError records an error on the current span
func RecordError(ctx context.Context, err error, options ...trace.EventOption) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	span.RecordError(err, options...)
	span.SetStatus(codes.Error, err.Error())
}

// RecordOperationMetrics records one dataset operation.
func RecordOperationMetrics(ctx context.Context, metrics *BusinessMetrics, operation string, duration time.Duration, err error) {
	if metrics == nil {
		return
	}

	status := "success"
	if err != nil {
		status = "failure"
	}
	attrs := []attribute.KeyValue{
		attribute.String("operation", operation),
		attribute.String("status", status),
	}

	metrics.OperationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	metrics.OperationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))

	if err != nil {
		metrics.OperationErrors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("error.type", fmt.Sprintf("%T", err)),
		))
	}
}

// RecordCoercion counts a conversion by target kind and outcome
// (success, warning, info or error).
func RecordCoercion(ctx context.Context, metrics *BusinessMetrics, target, outcome string) {
	if metrics == nil {
		return
	}
	metrics.CoercionsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("target", target),
		attribute.String("outcome", outcome),
	))
}

// RecordSessionChange tracks sessions opening (+1) and closing (-1).
func RecordSessionChange(ctx context.Context, metrics *BusinessMetrics, delta int64) {
	if metrics == nil {
		return
	}
	metrics.SessionsActive.Add(ctx, delta)
}

// RecordRowsIngested counts rows loaded from a file of the given format.
func RecordRowsIngested(ctx context.Context, metrics *BusinessMetrics, format string, rows int) {
	if metrics == nil {
		return
	}
	metrics.RowsIngested.Add(ctx, int64(rows), metric.WithAttributes(attribute.String("format", format)))
}
