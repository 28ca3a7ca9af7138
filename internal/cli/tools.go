package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	cliadapter "github.com/example/embexp/internal/adapters/cli"
	"github.com/example/embexp/internal/adapters/progplatform"
	"github.com/example/embexp/internal/core/encoder"
	"github.com/example/embexp/internal/core/transcript"
	"github.com/example/embexp/internal/models"
	"github.com/example/embexp/internal/wire"
)

// EncodeCmd returns the encode command
func EncodeCmd() *cobra.Command {
	var scratch string
	var cacheable, readable bool

	cmd := &cobra.Command{
		Use:   "encode <input.json>",
		Short: "Print the setup code generated for an input state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read input: %w", err)
			}
			state, err := models.DecodeStateJSON(data)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			if readable {
				fmt.Fprint(cmd.OutOrStdout(), state.Readable())
				return nil
			}

			if scratch == "" {
				scratch = wire.Config().Scratch
			}
			policy, err := encoder.ParseScratchPolicy(scratch)
			if err != nil {
				return err
			}
			code, err := progplatform.InputCode(state, progplatform.Options{
				Scratch:     policy,
				Uncacheable: wire.Config().Uncacheable && !cacheable,
			})
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), code)
			return nil
		},
	}
	cmd.Flags().StringVar(&scratch, "scratch", "", "Scratch register policy: fixed or avoid (default from config)")
	cmd.Flags().BoolVar(&cacheable, "cacheable", false, "Keep memory addresses in the cacheable region")
	cmd.Flags().BoolVar(&readable, "readable", false, "Print the registers with their tag/set/offset split instead")
	return cmd
}

// DecodeCmd returns the decode command
func DecodeCmd() *cobra.Command {
	var printEval bool

	cmd := &cobra.Command{
		Use:   "decode <exps1|exps2> <uart.log>",
		Short: "Decode a stored UART transcript and print its result",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			typ := models.ExperimentType(args[0])
			if !typ.Valid() {
				return fmt.Errorf("unknown experiment type: %s", args[0])
			}
			raw, err := os.ReadFile(args[1])
			if err != nil {
				return fmt.Errorf("failed to read transcript: %w", err)
			}

			outcome, err := transcript.NewDecoder(wire.Logger()).Decode(typ, raw)
			if err != nil {
				return err
			}
			if snap, ok := outcome.(models.CacheSnapshot); ok {
				snap.Sets = transcript.Clean(snap.Sets)
				outcome = snap
			}
			result := string(models.EncodeResult(outcome))
			if printEval {
				cliadapter.PrintEval(cmd.OutOrStdout(), outcome, result)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), result)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&printEval, "printeval", "p", false, "Print like run --printeval")
	return cmd
}
