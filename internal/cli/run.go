package cli

import (
	"github.com/spf13/cobra"

	"github.com/example/embexp/internal/ports/primary"
	"github.com/example/embexp/internal/wire"
)

// runFlags are the options shared by every command that runs experiments.
type runFlags struct {
	board          string
	branch         string
	connMode       string
	forceCleanup   bool
	forceResults   bool
	ignoreMismatch bool
	noCleanup      bool
	dryRun         bool
}

func addRunFlags(cmd *cobra.Command, f *runFlags) {
	cmd.Flags().StringVarP(&f.board, "board", "b", "", "Board type (default from config)")
	cmd.Flags().StringVar(&f.branch, "branch", "", "ProgPlatform branch to run with (default from config)")
	cmd.Flags().StringVarP(&f.connMode, "conn-mode", "c", "", "Connection mode: try, run or reset (default from config)")
	cmd.Flags().BoolVar(&f.forceCleanup, "force-cleanup", false, "Reset the ProgPlatform checkout before running")
	cmd.Flags().BoolVar(&f.forceResults, "force-results", false, "Overwrite stored outputs that differ")
	cmd.Flags().BoolVar(&f.ignoreMismatch, "ignore-mismatch", false, "Do not fail when stored outputs differ")
	cmd.Flags().BoolVar(&f.noCleanup, "no-cleanup", false, "Leave the ProgPlatform checkout configured after the run")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "Run and decode without storing outputs")
}

// options fills unset flags from the configuration.
func (f *runFlags) options() primary.RunOptions {
	cfg := wire.Config()
	opts := primary.RunOptions{
		BoardType:      f.board,
		Branch:         f.branch,
		ConnMode:       f.connMode,
		ForceCleanup:   f.forceCleanup,
		ForceResults:   f.forceResults,
		IgnoreMismatch: f.ignoreMismatch,
		NoCleanup:      f.noCleanup,
		DryRun:         f.dryRun,
	}
	if opts.BoardType == "" {
		opts.BoardType = cfg.BoardType
	}
	if opts.Branch == "" {
		opts.Branch = cfg.Branch
	}
	if opts.ConnMode == "" {
		opts.ConnMode = cfg.ConnMode
	}
	return opts
}

// RunCmd returns the run command
func RunCmd() *cobra.Command {
	var flags runFlags
	var printEval bool

	cmd := &cobra.Command{
		Use:   "run <exp_id>",
		Short: "Run one experiment on the board",
		Long: `Configure the ProgPlatform checkout for one experiment, run it on the board,
decode the UART transcript and store the outputs under run.<revision>.<board>.

The checkout is cleaned again afterwards unless --no-cleanup is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			adapter, err := wire.RunAdapter(cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			_, err = adapter.Run(cmd.Context(), primary.RunRequest{
				ExperimentID: args[0],
				Options:      flags.options(),
			}, printEval)
			return err
		},
	}
	addRunFlags(cmd, &flags)
	cmd.Flags().BoolVarP(&printEval, "printeval", "p", false, "Print the decoded result")
	return cmd
}
