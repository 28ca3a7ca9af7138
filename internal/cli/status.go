package cli

import (
	"github.com/spf13/cobra"

	cliadapter "github.com/example/embexp/internal/adapters/cli"
	"github.com/example/embexp/internal/ports/primary"
	"github.com/example/embexp/internal/wire"
)

// StatusCmd returns the status command
func StatusCmd() *cobra.Command {
	var req primary.StatusRequest
	var format string
	var sections cliadapter.StatusSections

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Summarize the results of all experiments of an architecture",
		Long: `Classify every valid experiment of an architecture by its stored result for
one run key. The run key defaults to <branch head>.<board>.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := wire.Config()
			if req.Arch == "" {
				req.Arch = cfg.Arch
			}
			if req.Branch == "" {
				req.Branch = cfg.Branch
			}
			if req.BoardType == "" {
				req.BoardType = cfg.BoardType
			}
			adapter, err := wire.StatusAdapter(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			_, err = adapter.Status(cmd.Context(), req, format, sections)
			return err
		},
	}
	cmd.Flags().StringVar(&req.Arch, "arch", "", "Architecture id (default from config)")
	cmd.Flags().StringVarP(&req.RunKey, "run-key", "r", "", "Run key, e.g. 13700076ab79.rpi3")
	cmd.Flags().StringVar(&req.Branch, "branch", "", "Branch whose head names the default run key")
	cmd.Flags().StringVarP(&req.BoardType, "board", "b", "", "Board type of the default run key")
	cmd.Flags().StringVarP(&format, "format", "f", cliadapter.FormatText, "Output format: text or yaml")
	cmd.Flags().BoolVar(&sections.Programs, "progs", false, "Print the list of programs")
	cmd.Flags().BoolVar(&sections.Examples, "examples", false, "Print the list of validation examples")
	cmd.Flags().BoolVar(&sections.Counterexamples, "counterexamples", false, "Print the list of counterexamples")
	cmd.Flags().BoolVar(&sections.Inconclusive, "inconclusive", false, "Print the list of inconclusive examples")
	cmd.Flags().BoolVar(&sections.Others, "others", false, "Print the list of unclear examples")
	return cmd
}
