package telemetry

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Endpoint is where one signal is exported to, grpc wins when both are set.
// A signal with neither is not exported.
type Endpoint struct {
	Grpc    string            `json:"grpc_endpoint"`
	Http    string            `json:"http_endpoint"`
	Headers map[string]string `json:"headers"`
}

func (e Endpoint) Enabled() bool {
	return e.Grpc != "" || e.Http != ""
}

func (e Endpoint) transport() string {
	if e.Grpc != "" {
		return "grpc"
	}
	return "http"
}

type OtlpConfig struct {
	Traces  Endpoint `json:"traces"`
	Metrics Endpoint `json:"metrics"`
}

type Config struct {
	Otlp OtlpConfig `json:"otlp"`
	// how often metrics are exported, defaults to 5 seconds
	MetricIntervalSeconds float64 `json:"metric_interval_seconds"`
}

func (c Config) metricInterval() time.Duration {
	if c.MetricIntervalSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.MetricIntervalSeconds * float64(time.Second))
}

func newResource(serviceName string) (*resource.Resource, error) {
	return resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(ServiceVersion),
		),
	)
}

// each exporter gets at most this long to be created
const exporterTimeout = 3 * time.Second

func newSpanExporter(ctx context.Context, e Endpoint) (trace.SpanExporter, error) {
	ctx, cancel := context.WithTimeout(ctx, exporterTimeout)
	defer cancel()

	if e.Grpc != "" {
		return otlptracegrpc.New(
			ctx,
			otlptracegrpc.WithEndpointURL(e.Grpc),
			otlptracegrpc.WithHeaders(e.Headers),
		)
	}
	return otlptracehttp.New(
		ctx,
		otlptracehttp.WithEndpointURL(e.Http),
		otlptracehttp.WithHeaders(e.Headers),
	)
}

func newMetricExporter(ctx context.Context, e Endpoint) (metric.Exporter, error) {
	ctx, cancel := context.WithTimeout(ctx, exporterTimeout)
	defer cancel()

	if e.Grpc != "" {
		return otlpmetricgrpc.New(
			ctx,
			otlpmetricgrpc.WithEndpointURL(e.Grpc),
			otlpmetricgrpc.WithHeaders(e.Headers),
		)
	}
	return otlpmetrichttp.New(
		ctx,
		otlpmetrichttp.WithEndpointURL(e.Http),
		otlpmetrichttp.WithHeaders(e.Headers),
	)
}

// newTracerProvider is nil when traces have no endpoint.
func newTracerProvider(ctx context.Context, r *resource.Resource, cfg Config) (*trace.TracerProvider, error) {
	if !cfg.Otlp.Traces.Enabled() {
		slog.Debug("traces have no endpoint, not exporting")
		return nil, nil
	}
	exporter, err := newSpanExporter(ctx, cfg.Otlp.Traces)
	if err != nil {
		return nil, err
	}
	slog.Info(
		"exporting traces",
		"transport", cfg.Otlp.Traces.transport(),
		"headers", len(cfg.Otlp.Traces.Headers) > 0,
	)
	return trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(r),
	), nil
}

// newMeterProvider is nil when metrics have no endpoint.
func newMeterProvider(ctx context.Context, r *resource.Resource, cfg Config) (*metric.MeterProvider, error) {
	if !cfg.Otlp.Metrics.Enabled() {
		slog.Debug("metrics have no endpoint, not exporting")
		return nil, nil
	}
	exporter, err := newMetricExporter(ctx, cfg.Otlp.Metrics)
	if err != nil {
		return nil, err
	}
	slog.Info(
		"exporting metrics",
		"transport", cfg.Otlp.Metrics.transport(),
		"interval", cfg.metricInterval(),
		"headers", len(cfg.Otlp.Metrics.Headers) > 0,
	)
	return metric.NewMeterProvider(
		metric.WithReader(metric.NewPeriodicReader(exporter, metric.WithInterval(cfg.metricInterval()))),
		metric.WithResource(r),
	), nil
}
