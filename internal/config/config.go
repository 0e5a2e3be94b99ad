// Package config provides configuration loading and management for the transform registry.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"github.com/stacklok/toolhive-transform-registry/internal/telemetry"
)

const (
	// EnvPrefix is the prefix of the environment variables read through viper
	EnvPrefix = "THV_TRANSFORM"

	// DefaultRegistryName is used when registryName is not set
	DefaultRegistryName = "default"

	// DefaultRemoteType labels engines configured without a type
	DefaultRemoteType = "T-Engine"

	// DefaultFetchTimeout is the per request timeout used when fetch.timeout is not set
	DefaultFetchTimeout = 10 * time.Second

	// stateDirName is the directory created under the XDG state home
	stateDirName = "thv-transform-registry"
)

// Option defines the interface for configuration options
type Option func(*loaderConfig) error

// loaderConfig defines the configuration for loading a configuration
type loaderConfig struct {
	path string
}

// WithConfigPath loads configuration from a YAML file
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

		// Resolve symlinks to prevent symlink attacks.
		// Note that this calls filepath.Clean internally.
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}

		// Validate the path to prevent path traversal attacks
		if !filepath.IsAbs(realPath) {
			if !filepath.IsLocal(realPath) {
				return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
			}
		}

		cfg.path = realPath
		return nil
	}
}

// Config represents the root configuration structure
type Config struct {
	// RegistryName is the name/identifier for this registry instance
	// Defaults to "default" if not specified
	RegistryName string `yaml:"registryName,omitempty"`

	// LocalPaths lists configuration files or directories read on every run
	LocalPaths []string `yaml:"localPaths,omitempty"`

	// Engines lists the transform engines queried on every run
	Engines []EngineConfig `yaml:"engines,omitempty"`

	Fetch     *FetchConfig      `yaml:"fetch,omitempty"`
	Refresh   *RefreshConfig    `yaml:"refresh,omitempty"`
	Status    *StatusConfig     `yaml:"status,omitempty"`
	Telemetry *telemetry.Config `yaml:"telemetry,omitempty"`
}

// EngineConfig defines a group of transform engines of the same kind
type EngineConfig struct {
	// Type labels the engines in origins and logs, e.g. "T-Engine"
	Type string `yaml:"type,omitempty"`

	// URLs are the engine base URLs; /transform/config is appended
	URLs []string `yaml:"urls"`
}

// FetchConfig defines how engines are contacted
type FetchConfig struct {
	// Timeout is the per request timeout (e.g., "10s")
	Timeout string `yaml:"timeout,omitempty"`

	// MaxTries is how often a request failing at transport level is attempted
	MaxTries uint `yaml:"maxTries,omitempty"`

	// Concurrency is the number of engines fetched at the same time
	Concurrency int `yaml:"concurrency,omitempty"`
}

// RefreshConfig defines the aggregation schedule
type RefreshConfig struct {
	// Interval between runs (e.g., "5m"); empty runs the aggregation only once
	Interval string `yaml:"interval,omitempty"`
}

// StatusConfig defines where run status is persisted
type StatusConfig struct {
	// Path is the status directory; defaults to $XDG_STATE_HOME/thv-transform-registry
	Path string `yaml:"path,omitempty"`
}

// LoadConfig loads and parses configuration from a YAML file
func LoadConfig(opts ...Option) (*Config, error) {
	loaderCfg := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loaderCfg); err != nil {
			return nil, err
		}
	}

	if loaderCfg.path == "" {
		return nil, fmt.Errorf("path is required")
	}

	data, err := os.ReadFile(loaderCfg.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// GetRegistryName returns the registry name, using "default" if not specified
func (c *Config) GetRegistryName() string {
	if c.RegistryName == "" {
		return DefaultRegistryName
	}
	return c.RegistryName
}

// GetFetchTimeout returns the per request timeout
func (c *Config) GetFetchTimeout() time.Duration {
	if c.Fetch == nil || c.Fetch.Timeout == "" {
		return DefaultFetchTimeout
	}
	// Validated on load
	d, _ := time.ParseDuration(c.Fetch.Timeout)
	return d
}

// GetFetchMaxTries returns the number of attempts per request, at least 1
func (c *Config) GetFetchMaxTries() uint {
	if c.Fetch == nil || c.Fetch.MaxTries == 0 {
		return 1
	}
	return c.Fetch.MaxTries
}

// GetFetchConcurrency returns the number of engines fetched at the same time, at least 1
func (c *Config) GetFetchConcurrency() int {
	if c.Fetch == nil || c.Fetch.Concurrency < 1 {
		return 1
	}
	return c.Fetch.Concurrency
}

// GetRefreshInterval returns the interval between runs, or 0 when runs are not repeated
func (c *Config) GetRefreshInterval() time.Duration {
	if c.Refresh == nil || c.Refresh.Interval == "" {
		return 0
	}
	// Validated on load
	d, _ := time.ParseDuration(c.Refresh.Interval)
	return d
}

// GetStatusPath returns the status directory
func (c *Config) GetStatusPath() string {
	if c.Status != nil && c.Status.Path != "" {
		return c.Status.Path
	}
	return filepath.Join(xdg.StateHome, stateDirName)
}

// GetType returns the engine type, using "T-Engine" if not specified
func (e *EngineConfig) GetType() string {
	if e.Type == "" {
		return DefaultRemoteType
	}
	return e.Type
}

// Validate performs validation on the configuration
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if len(c.LocalPaths) == 0 && len(c.Engines) == 0 {
		return fmt.Errorf("at least one local path or engine must be configured")
	}

	for i, path := range c.LocalPaths {
		if path == "" {
			return fmt.Errorf("localPaths[%d]: path cannot be empty", i)
		}
	}

	for i := range c.Engines {
		if err := validateEngineConfig(&c.Engines[i], i); err != nil {
			return err
		}
	}

	if err := validateFetchConfig(c.Fetch); err != nil {
		return err
	}

	if err := validateRefreshConfig(c.Refresh); err != nil {
		return err
	}

	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}

	return nil
}

// validateEngineConfig validates a single engine group
func validateEngineConfig(engine *EngineConfig, index int) error {
	prefix := fmt.Sprintf("engines[%d] (%s)", index, engine.GetType())

	if len(engine.URLs) == 0 {
		return fmt.Errorf("%s: at least one url is required", prefix)
	}

	var errs []error
	for j, raw := range engine.URLs {
		u, err := url.Parse(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: urls[%d] is not a valid URL: %w", prefix, j, err))
			continue
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			errs = append(errs, fmt.Errorf("%s: urls[%d] must use http or https, got %q", prefix, j, raw))
			continue
		}
		if u.Host == "" {
			errs = append(errs, fmt.Errorf("%s: urls[%d] has no host: %q", prefix, j, raw))
		}
	}
	return errors.Join(errs...)
}

// validateFetchConfig validates the fetch configuration
func validateFetchConfig(fetch *FetchConfig) error {
	if fetch == nil {
		return nil
	}

	if fetch.Timeout != "" {
		d, err := time.ParseDuration(fetch.Timeout)
		if err != nil {
			return fmt.Errorf("fetch.timeout must be a valid duration (e.g., '10s', '1m'): %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("fetch.timeout must be positive, got %s", fetch.Timeout)
		}
	}

	if fetch.Concurrency < 0 {
		return fmt.Errorf("fetch.concurrency cannot be negative, got %d", fetch.Concurrency)
	}

	return nil
}

// validateRefreshConfig validates the refresh configuration
func validateRefreshConfig(refresh *RefreshConfig) error {
	if refresh == nil || refresh.Interval == "" {
		return nil
	}

	d, err := time.ParseDuration(refresh.Interval)
	if err != nil {
		return fmt.Errorf("refresh.interval must be a valid duration (e.g., '30m', '1h'): %w", err)
	}
	if d < time.Second {
		return fmt.Errorf("refresh.interval must be at least 1s, got %s", refresh.Interval)
	}

	return nil
}
