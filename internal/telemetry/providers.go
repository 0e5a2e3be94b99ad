package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// DefaultMetricsInterval is the OTLP metrics push interval
const DefaultMetricsInterval = 60 * time.Second

// ProviderOption configures NewTracerProvider and NewMeterProvider
type ProviderOption func(*providerConfig)

type providerConfig struct {
	serviceName    string
	serviceVersion string
	endpoint       string
	insecure       bool
	registerer     prometheus.Registerer
}

// WithServiceName sets the service.name resource attribute
func WithServiceName(name string) ProviderOption {
	return func(cfg *providerConfig) {
		cfg.serviceName = name
	}
}

// WithServiceVersion sets the service.version resource attribute
func WithServiceVersion(version string) ProviderOption {
	return func(cfg *providerConfig) {
		cfg.serviceVersion = version
	}
}

// WithEndpoint sets the OTLP collector endpoint
func WithEndpoint(endpoint string) ProviderOption {
	return func(cfg *providerConfig) {
		cfg.endpoint = endpoint
	}
}

// WithInsecure sends OTLP data over plain HTTP
func WithInsecure(insecure bool) ProviderOption {
	return func(cfg *providerConfig) {
		cfg.insecure = insecure
	}
}

// WithPrometheusRegisterer registers a Prometheus reader with the meter provider.
// It is ignored by NewTracerProvider.
func WithPrometheusRegisterer(reg prometheus.Registerer) ProviderOption {
	return func(cfg *providerConfig) {
		cfg.registerer = reg
	}
}

func newProviderConfig(opts []ProviderOption) *providerConfig {
	cfg := &providerConfig{
		serviceName:    DefaultServiceName,
		serviceVersion: "unknown",
		endpoint:       DefaultEndpoint,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// resource.New rather than resource.Default avoids schema URL conflicts
func (cfg *providerConfig) resource(ctx context.Context) (*resource.Resource, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.serviceName),
			semconv.ServiceVersion(cfg.serviceVersion),
		),
		resource.WithHost(),
		resource.WithTelemetrySDK(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}

// NewTracerProvider creates an OTLP HTTP tracer provider and installs it, together with the
// W3C trace context propagator, as the global provider.
// It returns a no-op provider when tc is nil or disabled.
func NewTracerProvider(ctx context.Context, tc *TracingConfig, opts ...ProviderOption) (trace.TracerProvider, error) {
	if tc == nil || !tc.Enabled {
		slog.Info("Tracing disabled, using no-op tracer provider")
		return tracenoop.NewTracerProvider(), nil
	}

	cfg := newProviderConfig(opts)
	res, err := cfg.resource(ctx)
	if err != nil {
		return nil, err
	}

	exporterOpts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.endpoint)}
	if cfg.insecure {
		exporterOpts = append(exporterOpts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, exporterOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(tc.GetSampling())),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if cfg.insecure {
		slog.Warn("Tracing uses an insecure connection, spans are sent over unencrypted HTTP")
	}
	slog.Info("Tracing initialized",
		"endpoint", cfg.endpoint,
		"sampling_ratio", tc.GetSampling(),
	)

	return tp, nil
}

// NewMeterProvider creates a meter provider pushing to the OTLP collector every
// DefaultMetricsInterval and installs it as the global provider. When mc.Prometheus is set a
// Prometheus reader is registered with the registerer given through WithPrometheusRegisterer.
// It returns a no-op provider when mc is nil or disabled.
func NewMeterProvider(ctx context.Context, mc *MetricsConfig, opts ...ProviderOption) (metric.MeterProvider, error) {
	if mc == nil || !mc.Enabled {
		slog.Info("Metrics disabled, using no-op meter provider")
		return metricnoop.NewMeterProvider(), nil
	}

	cfg := newProviderConfig(opts)
	res, err := cfg.resource(ctx)
	if err != nil {
		return nil, err
	}

	exporterOpts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.endpoint)}
	if cfg.insecure {
		exporterOpts = append(exporterOpts, otlpmetrichttp.WithInsecure())
	}
	exporter, err := otlpmetrichttp.New(ctx, exporterOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP metric exporter: %w", err)
	}

	providerOpts := []sdkmetric.Option{
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(DefaultMetricsInterval))),
	}

	if mc.Prometheus {
		if cfg.registerer == nil {
			return nil, fmt.Errorf("prometheus metrics require a registerer")
		}
		promReader, err := otelprom.New(otelprom.WithRegisterer(cfg.registerer))
		if err != nil {
			return nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
		}
		providerOpts = append(providerOpts, sdkmetric.WithReader(promReader))
	}

	mp := sdkmetric.NewMeterProvider(providerOpts...)
	otel.SetMeterProvider(mp)

	slog.Info("Metrics initialized",
		"endpoint", cfg.endpoint,
		"prometheus", mc.Prometheus,
	)

	return mp, nil
}
