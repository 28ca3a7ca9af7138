package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/example/embexp/internal/cli"
	"github.com/example/embexp/internal/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "embexp",
		Short:   "embexp - run cache experiments on embedded boards",
		Version: version.String(),
		Long: `embexp runs generated cache experiments on a board through an
EmbExp-ProgPlatform checkout and stores their outputs in the experiment tree.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: cli.Setup,
	}
	cli.AddGlobalFlags(rootCmd)

	// Running
	rootCmd.AddCommand(cli.RunCmd())
	rootCmd.AddCommand(cli.BatchCmd())

	// Inspection
	rootCmd.AddCommand(cli.StatusCmd())
	rootCmd.AddCommand(cli.ShowCmd())
	rootCmd.AddCommand(cli.HistoryCmd())

	// Experiment tree
	rootCmd.AddCommand(cli.ExtractCmd())
	rootCmd.AddCommand(cli.ListsCmd())

	// Developer tools
	rootCmd.AddCommand(cli.EncodeCmd())
	rootCmd.AddCommand(cli.DecodeCmd())
	rootCmd.AddCommand(cli.ConfigCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	cli.Teardown()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
