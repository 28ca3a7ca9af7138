package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/example/embexp/internal/ports/primary"
	"github.com/example/embexp/internal/wire"
)

// ShowCmd returns the show command
func ShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <exp_id>",
		Short: "Print generation info, runs, program and inputs of an experiment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			adapter, err := wire.ExperimentAdapter(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			_, err = adapter.Show(cmd.Context(), args[0])
			return err
		},
	}
}

// ExtractCmd returns the extract command
func ExtractCmd() *cobra.Command {
	var flags runFlags
	var execute, removeAfter bool

	cmd := &cobra.Command{
		Use:   "extract <exp_id> <input_idx> <new_name>",
		Short: "Create a single-run experiment from one input of a pair experiment",
		Long: `Copy code.hash and input<input_idx>.json of an exps2 experiment into a new
exps1 experiment named <new_name> of the same parameter set.

With --execute the new experiment is run right away and its cache listing
printed; --remove-after deletes it again afterwards.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid input index %q: %w", args[1], err)
			}
			if removeAfter && !execute {
				return errors.New("--remove-after requires --execute")
			}

			experiments, err := wire.ExperimentAdapter(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			resp, err := experiments.Extract(cmd.Context(), primary.ExtractRequest{
				ExperimentID: args[0],
				InputIndex:   idx,
				NewName:      args[2],
			}, removeAfter)
			if err != nil {
				return err
			}
			if !execute {
				return nil
			}

			runs, err := wire.RunAdapter(cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			_, runErr := runs.Run(cmd.Context(), primary.RunRequest{
				ExperimentID: resp.NewExperimentID,
				Options:      flags.options(),
			}, true)
			if removeAfter {
				if err := experiments.Remove(cmd.Context(), resp.NewExperimentID); err != nil {
					return errors.Join(runErr, err)
				}
			}
			return runErr
		},
	}
	addRunFlags(cmd, &flags)
	cmd.Flags().BoolVarP(&execute, "execute", "e", false, "Run the new experiment")
	cmd.Flags().BoolVar(&removeAfter, "remove-after", false, "Remove the new experiment after running it")
	return cmd
}

// ListsCmd returns the lists command
func ListsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lists <class> <name> <n>",
		Short: "Split the experiments of a class into n list files",
		Long: `Distribute the experiment directories of a class round-robin over n files
lists/exps_<name>_<i>.txt. Existing list files are never overwritten.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("invalid number of lists %q: %w", args[2], err)
			}
			adapter, err := wire.ExperimentAdapter(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			_, err = adapter.SplitLists(cmd.Context(), primary.SplitListsRequest{
				Class:    args[0],
				Name:     args[1],
				NumLists: n,
			})
			return err
		},
	}
}
