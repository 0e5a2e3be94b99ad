package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/toolhive-transform-registry/internal/api"
	"github.com/stacklok/toolhive-transform-registry/internal/combiner"
	"github.com/stacklok/toolhive-transform-registry/internal/config"
	"github.com/stacklok/toolhive-transform-registry/internal/coordinator"
	"github.com/stacklok/toolhive-transform-registry/internal/httpclient"
	"github.com/stacklok/toolhive-transform-registry/internal/registry"
	"github.com/stacklok/toolhive-transform-registry/internal/sources"
	"github.com/stacklok/toolhive-transform-registry/internal/status"
	"github.com/stacklok/toolhive-transform-registry/internal/telemetry"
)

const (
	defaultHTTPAddress    = ":8080"
	defaultRequestTimeout = 10 * time.Second
	defaultReadTimeout    = 10 * time.Second
	defaultWriteTimeout   = 15 * time.Second
	defaultIdleTimeout    = 60 * time.Second

	// AggregationTracerName is the instrumentation scope of aggregation spans
	AggregationTracerName = "github.com/stacklok/toolhive-transform-registry/aggregation"
)

// RegistryAppOptions is a function that configures the registry app builder
type RegistryAppOptions func(*registryAppConfig) error

// registryAppConfig collects the builder options. Component overrides are mostly for testing.
type registryAppConfig struct {
	config *config.Config

	runner            coordinator.Runner
	httpClient        httpclient.Client
	documentReader    sources.DocumentReader
	statusPersistence status.StatusPersistence

	address        string
	middlewares    []func(http.Handler) http.Handler
	requestTimeout time.Duration
	readTimeout    time.Duration
	writeTimeout   time.Duration
	idleTimeout    time.Duration

	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
	metricsHandler http.Handler
}

func baseConfig(opts ...RegistryAppOptions) (*registryAppConfig, error) {
	cfg := &registryAppConfig{
		address:        defaultHTTPAddress,
		requestTimeout: defaultRequestTimeout,
		readTimeout:    defaultReadTimeout,
		writeTimeout:   defaultWriteTimeout,
		idleTimeout:    defaultIdleTimeout,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	return cfg, nil
}

// NewRegistryApp builds the application from the given options
func NewRegistryApp(
	ctx context.Context,
	opts ...RegistryAppOptions,
) (*RegistryApp, error) {
	cfg, err := baseConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build base configuration: %w", err)
	}

	holder := &registry.Holder{}

	aggregationCoordinator, err := buildAggregationComponents(cfg, holder)
	if err != nil {
		return nil, fmt.Errorf("failed to build aggregation components: %w", err)
	}

	httpServer, err := buildHTTPServer(cfg, holder)
	if err != nil {
		return nil, fmt.Errorf("failed to build HTTP server: %w", err)
	}

	appCtx, cancel := context.WithCancel(ctx)

	return &RegistryApp{
		config: cfg.config,
		components: &AppComponents{
			Coordinator:       aggregationCoordinator,
			Holder:            holder,
			StatusPersistence: cfg.statusPersistence,
		},
		httpServer: httpServer,
		ctx:        appCtx,
		cancelFunc: cancel,
	}, nil
}

// WithConfig sets the configuration
func WithConfig(c *config.Config) RegistryAppOptions {
	return func(cfg *registryAppConfig) error {
		cfg.config = c
		return nil
	}
}

// WithAddress sets the HTTP server address
func WithAddress(addr string) RegistryAppOptions {
	return func(cfg *registryAppConfig) error {
		if addr == "" {
			return fmt.Errorf("address cannot be empty")
		}

		host, port, found := strings.Cut(addr, ":")
		if !found || port == "" {
			return fmt.Errorf("address is not a valid port: %s", addr)
		}
		if host == "localhost" {
			host = "127.0.0.1"
		}
		if host == "" {
			host = "0.0.0.0"
		}

		if _, err := netip.ParseAddrPort(host + ":" + port); err != nil {
			return fmt.Errorf("address is not a valid port: %w", err)
		}

		cfg.address = addr
		return nil
	}
}

// WithMiddlewares replaces the default HTTP middlewares
func WithMiddlewares(mw ...func(http.Handler) http.Handler) RegistryAppOptions {
	return func(cfg *registryAppConfig) error {
		cfg.middlewares = mw
		return nil
	}
}

// WithRunner allows injecting the aggregation runner (for testing)
func WithRunner(r coordinator.Runner) RegistryAppOptions {
	return func(cfg *registryAppConfig) error {
		cfg.runner = r
		return nil
	}
}

// WithHTTPClient sets the client used to fetch engine configurations
func WithHTTPClient(c httpclient.Client) RegistryAppOptions {
	return func(cfg *registryAppConfig) error {
		cfg.httpClient = c
		return nil
	}
}

// WithDocumentReader sets the reader used for local configuration files
func WithDocumentReader(r sources.DocumentReader) RegistryAppOptions {
	return func(cfg *registryAppConfig) error {
		cfg.documentReader = r
		return nil
	}
}

// WithStatusPersistence allows injecting the run status store (for testing)
func WithStatusPersistence(p status.StatusPersistence) RegistryAppOptions {
	return func(cfg *registryAppConfig) error {
		cfg.statusPersistence = p
		return nil
	}
}

// WithMeterProvider sets the OpenTelemetry meter provider for aggregation and HTTP metrics
func WithMeterProvider(mp metric.MeterProvider) RegistryAppOptions {
	return func(cfg *registryAppConfig) error {
		cfg.meterProvider = mp
		return nil
	}
}

// WithTracerProvider sets the OpenTelemetry tracer provider for aggregation and HTTP spans
func WithTracerProvider(tp trace.TracerProvider) RegistryAppOptions {
	return func(cfg *registryAppConfig) error {
		cfg.tracerProvider = tp
		return nil
	}
}

// WithMetricsHandler serves handler on /metrics
func WithMetricsHandler(h http.Handler) RegistryAppOptions {
	return func(cfg *registryAppConfig) error {
		cfg.metricsHandler = h
		return nil
	}
}

// buildAggregationComponents builds the combiner, the aggregator and the coordinator
func buildAggregationComponents(
	b *registryAppConfig,
	holder *registry.Holder,
) (coordinator.Coordinator, error) {
	slog.Info("Initializing aggregation components")

	var (
		aggregationMetrics *telemetry.AggregationMetrics
		registryMetrics    *telemetry.RegistryMetrics
		err                error
	)
	if b.meterProvider != nil {
		aggregationMetrics, err = telemetry.NewAggregationMetrics(b.meterProvider)
		if err != nil {
			return nil, fmt.Errorf("failed to create aggregation metrics: %w", err)
		}
		registryMetrics, err = telemetry.NewRegistryMetrics(b.meterProvider)
		if err != nil {
			return nil, fmt.Errorf("failed to create registry metrics: %w", err)
		}
		slog.Info("Aggregation metrics enabled")
	}

	if b.runner == nil {
		runner, err := buildAggregator(b, aggregationMetrics)
		if err != nil {
			return nil, err
		}
		b.runner = runner
	}

	if b.statusPersistence == nil {
		b.statusPersistence = status.NewFileStatusPersistence(b.config.GetStatusPath())
	}

	aggregationCoordinator := coordinator.New(
		b.runner,
		holder,
		b.statusPersistence,
		b.config.GetRegistryName(),
		coordinator.WithInterval(b.config.GetRefreshInterval()),
		coordinator.WithAggregationMetrics(aggregationMetrics),
		coordinator.WithRegistryMetrics(registryMetrics),
	)

	slog.Info("Aggregation components initialized successfully",
		"registry", b.config.GetRegistryName(),
		"engine_groups", len(b.config.Engines),
		"local_paths", len(b.config.LocalPaths))
	return aggregationCoordinator, nil
}

// NewAggregator builds the aggregator a RegistryApp would run, for one-off aggregations
func NewAggregator(opts ...RegistryAppOptions) (*coordinator.Aggregator, error) {
	cfg, err := baseConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build base configuration: %w", err)
	}
	return buildAggregator(cfg, nil)
}

// buildAggregator builds the default runner reading the sources of the configuration
func buildAggregator(
	b *registryAppConfig,
	metrics *telemetry.AggregationMetrics,
) (*coordinator.Aggregator, error) {
	if b.documentReader == nil {
		reader, err := sources.NewDocumentReader()
		if err != nil {
			return nil, fmt.Errorf("failed to create document reader: %w", err)
		}
		b.documentReader = reader
	}

	if b.httpClient == nil {
		b.httpClient = httpclient.NewDefaultClient(
			b.config.GetFetchTimeout(),
			httpclient.WithMaxTries(b.config.GetFetchMaxTries()),
		)
	}

	var tracer trace.Tracer
	if b.tracerProvider != nil {
		tracer = b.tracerProvider.Tracer(AggregationTracerName)
	}

	c := combiner.New(b.documentReader, b.httpClient,
		combiner.WithConcurrency(b.config.GetFetchConcurrency()),
		combiner.WithMetrics(metrics),
		combiner.WithTracer(tracer),
	)
	return coordinator.NewAggregator(c, b.config, tracer), nil
}

// buildHTTPServer builds the HTTP server with router and middleware
func buildHTTPServer(
	b *registryAppConfig,
	holder *registry.Holder,
) (*http.Server, error) {
	slog.Info("Initializing HTTP server")

	if b.middlewares == nil {
		b.middlewares = []func(http.Handler) http.Handler{
			middleware.RequestID,
			middleware.RealIP,
			middleware.Recoverer,
			middleware.Timeout(b.requestTimeout),
			api.LoggingMiddleware,
		}
	}

	// Telemetry middlewares go first so rejected and timed out requests are observed too
	var telemetryMiddlewares []func(http.Handler) http.Handler
	if b.meterProvider != nil {
		metricsMiddleware, err := telemetry.MetricsMiddleware(b.meterProvider)
		if err != nil {
			return nil, fmt.Errorf("failed to create metrics middleware: %w", err)
		}
		telemetryMiddlewares = append(telemetryMiddlewares, metricsMiddleware)
		slog.Info("HTTP metrics middleware enabled")
	}
	if b.tracerProvider != nil {
		telemetryMiddlewares = append(telemetryMiddlewares, telemetry.TracingMiddleware(b.tracerProvider))
		slog.Info("HTTP tracing middleware enabled")
	}
	b.middlewares = append(telemetryMiddlewares, b.middlewares...)

	serverOpts := []api.ServerOption{
		api.WithMiddlewares(b.middlewares...),
	}
	if b.metricsHandler != nil {
		serverOpts = append(serverOpts, api.WithMetricsHandler(b.metricsHandler))
	}
	router := api.NewServer(holder, serverOpts...)

	server := &http.Server{
		Addr:         b.address,
		Handler:      router,
		ReadTimeout:  b.readTimeout,
		WriteTimeout: b.writeTimeout,
		IdleTimeout:  b.idleTimeout,
	}

	slog.Info("HTTP server configured", "address", b.address)
	return server, nil
}
