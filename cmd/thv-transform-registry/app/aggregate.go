package app

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	registryapp "github.com/stacklok/toolhive-transform-registry/internal/app"
	"github.com/stacklok/toolhive-transform-registry/internal/coordinator"
	"github.com/stacklok/toolhive-transform-registry/internal/registry"
	"github.com/stacklok/toolhive-transform-registry/internal/status"
)

func newAggregateCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Run one aggregation and print the result",
		Long: `Run one aggregation over the configured engines and local paths and print the result.

The json and yaml outputs are a transform configuration document in the format engines
serve on /transform/config. The table output lists the registered transformers with their
origin and unresolved references.

The command fails when no source could be read. It also fails when some sources failed
unless --allow-partial is set.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			output, err := cmd.Flags().GetString("output")
			if err != nil {
				return err
			}
			allowPartial, err := cmd.Flags().GetBool("allow-partial")
			if err != nil {
				return err
			}
			if err := validateOutput(output); err != nil {
				return err
			}

			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}

			aggregator, err := registryapp.NewAggregator(registryapp.WithConfig(cfg))
			if err != nil {
				return err
			}

			result := aggregator.Aggregate(cmd.Context())
			if err := checkResult(result, allowPartial); err != nil {
				return err
			}

			if output == outputTable {
				return writeTransformerTable(cmd.OutOrStdout(), result.Registry.List())
			}
			return writeDocument(cmd.OutOrStdout(), output, result.Registry.Config())
		},
	}

	cmd.Flags().StringP("output", "o", outputJSON, "Output format (json, yaml or table)")
	cmd.Flags().Bool("allow-partial", false, "Print the result when some sources failed")

	return cmd
}

func checkResult(result *coordinator.Result, allowPartial bool) error {
	info := result.Registry.Info()
	slog.Info("Aggregation finished",
		"run_id", result.RunID,
		"phase", result.Phase(),
		"engines", info.EngineCount,
		"documents", info.DocumentCount,
		"transformers", info.TransformerCount,
		"unresolved", info.UnresolvedCount)

	switch result.Phase() {
	case status.RunPhaseFailed:
		return fmt.Errorf("no transform configuration could be read: %w", result.Err())
	case status.RunPhasePartial:
		if !allowPartial {
			return fmt.Errorf("aggregation completed with errors: %w", result.Err())
		}
		slog.Warn("Aggregation completed with errors", "error", result.Err())
	}
	return nil
}

func writeTransformerTable(w io.Writer, entries []registry.Entry) error {
	table := tablewriter.NewWriter(w)
	table.Header("Name", "Origin", "Sources", "References", "Unresolved")

	for _, e := range entries {
		name := e.Transformer.TransformerName
		if e.Transformer.IsAnonymous() {
			name = "<anonymous>"
		}
		if err := table.Append([]string{
			name,
			e.Origin.ReadFrom,
			strconv.Itoa(len(e.Transformer.SupportedSourceAndTargetList)),
			strings.Join(e.Transformer.References(), ", "),
			strings.Join(e.UnresolvedReferences, ", "),
		}); err != nil {
			return fmt.Errorf("failed to add table row: %w", err)
		}
	}

	return table.Render()
}
