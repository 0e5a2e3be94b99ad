package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// RegistryMetricsMeterName is the name used for the registry metrics meter
	RegistryMetricsMeterName = "github.com/stacklok/toolhive-transform-registry/registry"

	// AggregationMetricsMeterName is the name used for the aggregation metrics meter
	AggregationMetricsMeterName = "github.com/stacklok/toolhive-transform-registry/aggregation"
)

// RegistryMetrics holds the OpenTelemetry instruments describing the published registry
type RegistryMetrics struct {
	transformersTotal metric.Int64Gauge
	unresolvedTotal   metric.Int64Gauge
	enginesContacted  metric.Int64Gauge
}

// NewRegistryMetrics creates a new RegistryMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewRegistryMetrics(provider metric.MeterProvider) (*RegistryMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(RegistryMetricsMeterName)

	transformersTotal, err := meter.Int64Gauge(
		"thv_transform_transformers_total",
		metric.WithDescription("Number of transformers registered by the last aggregation run"),
		metric.WithUnit("{transformer}"),
	)
	if err != nil {
		return nil, err
	}

	unresolvedTotal, err := meter.Int64Gauge(
		"thv_transform_unresolved_transformers",
		metric.WithDescription("Number of transformers whose pipeline or failover references could not be ordered"),
		metric.WithUnit("{transformer}"),
	)
	if err != nil {
		return nil, err
	}

	enginesContacted, err := meter.Int64Gauge(
		"thv_transform_engines_contacted",
		metric.WithDescription("Number of transform engines that contributed transformers in the last run"),
		metric.WithUnit("{engine}"),
	)
	if err != nil {
		return nil, err
	}

	return &RegistryMetrics{
		transformersTotal: transformersTotal,
		unresolvedTotal:   unresolvedTotal,
		enginesContacted:  enginesContacted,
	}, nil
}

// RecordRegistry records the size of a freshly published registry
func (m *RegistryMetrics) RecordRegistry(
	ctx context.Context, registryName string, transformers, unresolved, engines int64,
) {
	if m == nil || m.transformersTotal == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String("registry", registryName))

	m.transformersTotal.Record(ctx, transformers, attrs)
	m.unresolvedTotal.Record(ctx, unresolved, attrs)
	m.enginesContacted.Record(ctx, engines, attrs)
}

// AggregationMetrics holds the OpenTelemetry instruments for aggregation runs and engine fetches
type AggregationMetrics struct {
	runDuration   metric.Float64Histogram
	fetchDuration metric.Float64Histogram
}

// NewAggregationMetrics creates a new AggregationMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewAggregationMetrics(provider metric.MeterProvider) (*AggregationMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(AggregationMetricsMeterName)

	runDuration, err := meter.Float64Histogram(
		"thv_transform_run_duration_seconds",
		metric.WithDescription("Duration of aggregation runs in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300),
	)
	if err != nil {
		return nil, err
	}

	fetchDuration, err := meter.Float64Histogram(
		"thv_transform_fetch_duration_seconds",
		metric.WithDescription("Duration of transform engine configuration fetches in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30),
	)
	if err != nil {
		return nil, err
	}

	return &AggregationMetrics{
		runDuration:   runDuration,
		fetchDuration: fetchDuration,
	}, nil
}

// RecordRunDuration records the duration of an aggregation run
func (m *AggregationMetrics) RecordRunDuration(
	ctx context.Context, registryName string, duration time.Duration, success bool,
) {
	if m == nil || m.runDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("registry", registryName),
		attribute.Bool("success", success),
	}

	m.runDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordFetchDuration records the duration of a single engine fetch
func (m *AggregationMetrics) RecordFetchDuration(ctx context.Context, engine string, duration time.Duration, success bool) {
	if m == nil || m.fetchDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("engine", engine),
		attribute.Bool("success", success),
	}

	m.fetchDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}
