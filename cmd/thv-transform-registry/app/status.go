package app

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stacklok/toolhive-transform-registry/internal/status"
)

func newStatusCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print the status of the latest aggregation runs",
		Long: `Print the persisted status of the latest aggregation run of every registry found
under the configured status path.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			output, err := cmd.Flags().GetString("output")
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

			statuses, err := status.NewFileStatusPersistence(cfg.GetStatusPath()).LoadAllStatus(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to load run status: %w", err)
			}

			if output == outputTable {
				return writeStatusTable(cmd.OutOrStdout(), statuses)
			}
			return writeDocument(cmd.OutOrStdout(), output, statuses)
		},
	}

	cmd.Flags().StringP("output", "o", outputTable, "Output format (json, yaml or table)")

	return cmd
}

func writeStatusTable(w io.Writer, statuses map[string]*status.RunStatus) error {
	names := make([]string, 0, len(statuses))
	for name := range statuses {
		names = append(names, name)
	}
	slices.Sort(names)

	table := tablewriter.NewWriter(w)
	table.Header("Registry", "Phase", "Last Attempt", "Last Success", "Attempts", "Transformers", "Unresolved", "Message")

	for _, name := range names {
		s := statuses[name]
		if err := table.Append([]string{
			name,
			string(s.Phase),
			formatTime(s.LastAttempt),
			formatTime(s.LastSuccess),
			strconv.Itoa(s.AttemptCount),
			strconv.Itoa(s.TransformerCount),
			strconv.Itoa(s.UnresolvedCount),
			s.Message,
		}); err != nil {
			return fmt.Errorf("failed to add table row: %w", err)
		}
	}

	return table.Render()
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}
