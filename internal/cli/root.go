// Package cli implements the embexp commands.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/example/embexp/internal/config"
	"github.com/example/embexp/internal/logging"
	"github.com/example/embexp/internal/wire"
)

var (
	configDir string
	verbose   bool
	logCloser io.Closer
)

// AddGlobalFlags registers the flags shared by all commands.
func AddGlobalFlags(root *cobra.Command) {
	root.PersistentFlags().StringVar(&configDir, "config-dir", ".", "Directory containing .embexp/config.json")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Increase output verbosity")
}

// Setup loads the configuration and the logger and hands them to wire.
// It runs before every command.
func Setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configDir)
	if err != nil {
		return err
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	if verbose {
		level = slog.LevelDebug
	}
	logFile := cfg.LogFile
	if logFile != "" && !filepath.IsAbs(logFile) {
		logFile = filepath.Join(configDir, logFile)
	}
	logger, closer, err := logging.New(logging.Options{Level: level, Stderr: cmd.ErrOrStderr(), File: logFile})
	if err != nil {
		return err
	}
	logCloser = closer

	wire.Configure(configDir, cfg, logger)
	return nil
}

// Teardown releases what Setup and wire opened.
func Teardown() {
	if err := wire.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to close run ledger: %v\n", err)
	}
	if logCloser != nil {
		logCloser.Close()
	}
}
