// Package telemetry wires OpenTelemetry tracing and metrics for the transform registry.
// Providers export over OTLP HTTP; metrics can additionally be scraped in the Prometheus format.
package telemetry

import (
	"errors"
	"fmt"
)

const (
	// DefaultServiceName identifies the service when serviceName is not configured
	DefaultServiceName = "thv-transform-registry"

	// DefaultEndpoint is the OTLP HTTP collector address
	DefaultEndpoint = "localhost:4318"

	// DefaultSampling samples 5% of traces
	DefaultSampling = 0.05
)

// Config represents the telemetry section of the configuration file
type Config struct {
	// Enabled turns telemetry on; when false only no-op providers are created
	Enabled bool `yaml:"enabled"`

	// ServiceName defaults to "thv-transform-registry"
	ServiceName string `yaml:"serviceName,omitempty"`

	// ServiceVersion defaults to the build version
	ServiceVersion string `yaml:"serviceVersion,omitempty"`

	// Endpoint is the OTLP collector as "host:port"; /v1/traces and /v1/metrics are appended
	Endpoint string `yaml:"endpoint,omitempty"`

	// Insecure sends OTLP over plain HTTP
	Insecure bool `yaml:"insecure,omitempty"`

	Tracing *TracingConfig `yaml:"tracing,omitempty"`
	Metrics *MetricsConfig `yaml:"metrics,omitempty"`
}

// TracingConfig defines tracing-specific configuration
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`

	// Sampling is the ratio of traces kept, between 0.0 and 1.0.
	// 0 means DefaultSampling.
	Sampling float64 `yaml:"sampling,omitempty"`
}

// MetricsConfig defines metrics-specific configuration
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`

	// Prometheus adds a pull reader served on /metrics next to the OTLP push exporter
	Prometheus bool `yaml:"prometheus,omitempty"`
}

// GetServiceName returns the service name, using DefaultServiceName if not specified
func (c *Config) GetServiceName() string {
	if c.ServiceName == "" {
		return DefaultServiceName
	}
	return c.ServiceName
}

// GetServiceVersion returns the service version, using "unknown" if not specified
func (c *Config) GetServiceVersion() string {
	if c.ServiceVersion == "" {
		return "unknown"
	}
	return c.ServiceVersion
}

// GetEndpoint returns the OTLP endpoint, using DefaultEndpoint if not specified
func (c *Config) GetEndpoint() string {
	if c.Endpoint == "" {
		return DefaultEndpoint
	}
	return c.Endpoint
}

// GetSampling returns the sampling ratio.
// An unset (zero) ratio cannot be told apart from an explicit 0 in YAML, so both mean DefaultSampling.
func (c *TracingConfig) GetSampling() float64 {
	if c.Sampling == 0.0 {
		return DefaultSampling
	}
	return c.Sampling
}

// PrometheusEnabled reports whether metrics are scraped through the Prometheus handler
func (c *Config) PrometheusEnabled() bool {
	return c != nil && c.Enabled && c.Metrics != nil && c.Metrics.Enabled && c.Metrics.Prometheus
}

// Validate validates the telemetry configuration. A nil or disabled config is valid.
func (c *Config) Validate() error {
	if c == nil || !c.Enabled {
		return nil
	}

	var errs []error
	if err := c.Tracing.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("tracing: %w", err))
	}
	return errors.Join(errs...)
}

// Validate validates the tracing configuration
func (c *TracingConfig) Validate() error {
	if c == nil || !c.Enabled {
		return nil
	}

	if c.Sampling < 0 || c.Sampling > 1.0 {
		return fmt.Errorf("sampling must be between 0.0 and 1.0, got %f", c.Sampling)
	}

	return nil
}
