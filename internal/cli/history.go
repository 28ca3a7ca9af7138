package cli

import (
	"github.com/spf13/cobra"

	"github.com/example/embexp/internal/ports/primary"
	"github.com/example/embexp/internal/wire"
)

// HistoryCmd returns the history command
func HistoryCmd() *cobra.Command {
	var filters primary.HistoryFilters

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded experiment runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			adapter, err := wire.HistoryAdapter(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			_, err = adapter.List(cmd.Context(), filters)
			return err
		},
	}
	cmd.Flags().StringVarP(&filters.ExperimentID, "experiment", "e", "", "Only runs of this experiment")
	cmd.Flags().StringVarP(&filters.RunKey, "run-key", "r", "", "Only runs with this run key")
	cmd.Flags().BoolVar(&filters.FailedOnly, "failed", false, "Only failed or mismatching runs")
	cmd.Flags().IntVarP(&filters.Limit, "limit", "n", 20, "Maximum number of runs (0 for all)")
	return cmd
}
