package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/embexp/internal/app"
	"github.com/example/embexp/internal/ports/primary"
	"github.com/example/embexp/internal/wire"
)

// BatchCmd returns the batch command
func BatchCmd() *cobra.Command {
	var flags runFlags
	var listFile, mode, prefix string
	var rounds int
	var delay time.Duration

	cmd := &cobra.Command{
		Use:   "batch <class>",
		Short: "Run the experiments of a class one after the other",
		Long: `Run every experiment of a class (arch/type/params) in sequence.

Modes:
  all  every valid experiment of the class
  fix  experiments without complete results for the current run key; the
       class is polled again until no work is left after --rounds attempts

With --list the experiments are read from a file (or stdin for "-"), one id
per line; lines starting with # are ignored. All ids are validated first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := wire.Config()
			req := primary.BatchRequest{
				Class:   args[0],
				Mode:    mode,
				Prefix:  prefix,
				Rounds:  rounds,
				Delay:   delay,
				Options: flags.options(),
			}
			if !cmd.Flags().Changed("rounds") {
				req.Rounds = cfg.PollRounds
			}
			if !cmd.Flags().Changed("delay") {
				d, err := cfg.PollInterval()
				if err != nil {
					return err
				}
				req.Delay = d
			}
			if listFile != "" {
				ids, err := readIDList(cmd.InOrStdin(), listFile)
				if err != nil {
					return err
				}
				if len(ids) == 0 {
					return fmt.Errorf("no experiments in %s", listFile)
				}
				req.IDs = ids
			}

			adapter, err := wire.RunAdapter(cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			summary, err := adapter.Batch(cmd.Context(), req)
			if err != nil {
				return err
			}
			if !summary.AllSucceeded() {
				return fmt.Errorf("%d of %d experiments failed", summary.Failed, len(summary.Items))
			}
			return nil
		},
	}
	addRunFlags(cmd, &flags)
	cmd.Flags().StringVarP(&listFile, "list", "l", "", `File listing experiment ids ("-" for stdin)`)
	cmd.Flags().StringVarP(&mode, "mode", "m", primary.BatchModeAll, "Selection mode: all or fix")
	cmd.Flags().StringVar(&prefix, "prefix", "", "Only run experiments whose hash starts with this prefix")
	cmd.Flags().IntVar(&rounds, "rounds", 1, "Discovery attempts before fix mode gives up (default from config)")
	cmd.Flags().DurationVar(&delay, "delay", time.Minute, "Wait between two empty discovery attempts (default from config)")
	return cmd
}

func readIDList(stdin io.Reader, path string) ([]string, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read experiment list: %w", err)
	}
	return app.ParseIDList(string(data)), nil
}
