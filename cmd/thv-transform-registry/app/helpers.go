package app

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"sigs.k8s.io/yaml"

	"github.com/stacklok/toolhive-transform-registry/internal/config"
)

const (
	outputJSON  = "json"
	outputYAML  = "yaml"
	outputTable = "table"
)

func bindFlag(v *viper.Viper, key string, flag *pflag.Flag) {
	if err := v.BindPFlag(key, flag); err != nil {
		slog.Error("Failed to bind flag", "flag", key, "error", err)
	}
}

// loadConfig loads and validates the file named by the config flag or THV_TRANSFORM_CONFIG
func loadConfig(v *viper.Viper) (*config.Config, error) {
	configPath := v.GetString("config")
	if configPath == "" {
		return nil, fmt.Errorf("a configuration file is required, set --config or %s_CONFIG", config.EnvPrefix)
	}

	cfg, err := config.LoadConfig(config.WithConfigPath(configPath))
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	slog.Info("Loaded configuration",
		"path", configPath,
		"registry", cfg.GetRegistryName(),
		"engine_groups", len(cfg.Engines),
		"local_paths", len(cfg.LocalPaths))
	return cfg, nil
}

func validateOutput(output string) error {
	switch output {
	case outputJSON, outputYAML, outputTable:
		return nil
	default:
		return fmt.Errorf("unsupported output format %q, use %s, %s or %s", output, outputJSON, outputYAML, outputTable)
	}
}

// writeDocument writes data as indented JSON or as YAML.
// YAML goes through the JSON tags so both formats use the same field names.
func writeDocument(w io.Writer, output string, data any) error {
	var (
		out []byte
		err error
	)
	switch output {
	case outputYAML:
		out, err = yaml.Marshal(data)
	default:
		out, err = json.MarshalIndent(data, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	if output != outputYAML {
		out = append(out, '\n')
	}
	_, err = w.Write(out)
	return err
}
