// Package app provides the commands of the ToolHive transform registry.
package app

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stacklok/toolhive-transform-registry/internal/config"
	"github.com/stacklok/toolhive-transform-registry/internal/versions"
)

// NewRootCmd creates the root command. Flags can also be set through THV_TRANSFORM_*
// environment variables, e.g. THV_TRANSFORM_CONFIG.
func NewRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(config.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	rootCmd := &cobra.Command{
		Use:               "thv-transform-registry",
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		Short:             "ToolHive transform registry",
		Long: `ToolHive transform registry aggregates the transform configuration of transform engines
and local configuration files into a single registry, and serves it over HTTP.`,
		Run: func(cmd *cobra.Command, _ []string) {
			if err := cmd.Help(); err != nil {
				slog.Error("Error displaying help", "error", err)
			}
		},
	}

	rootCmd.PersistentFlags().String("config", "", "Path to configuration file (YAML format, required)")
	bindFlag(v, "config", rootCmd.PersistentFlags().Lookup("config"))

	rootCmd.AddCommand(newServeCmd(v))
	rootCmd.AddCommand(newAggregateCmd(v))
	rootCmd.AddCommand(newStatusCmd(v))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := versions.GetVersionInfo()
			format, err := cmd.Flags().GetString("format")
			if err != nil {
				return fmt.Errorf("error retrieving format flag: %w", err)
			}

			if format == "json" {
				output, err := json.MarshalIndent(info, "", "  ")
				if err != nil {
					return fmt.Errorf("error formatting version info as JSON: %w", err)
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(output))
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), info.String())
			return err
		},
	}
	cmd.Flags().String("format", "", "Output format (json)")
	return cmd
}
