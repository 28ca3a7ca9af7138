package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/example/embexp/internal/config"
	"github.com/example/embexp/internal/wire"
)

// ConfigCmd returns the config command
func ConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or initialize the embexp configuration",
	}
	cmd.AddCommand(configInitCmd())
	cmd.AddCommand(configShowCmd())
	return cmd
}

func configInitCmd() *cobra.Command {
	var force bool
	var cfg config.Config

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write .embexp/config.json with the defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := filepath.Join(configDir, config.DirName, "config.json")
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}

			out := config.Default()
			if cfg.LogsRoot != "" {
				out.LogsRoot = cfg.LogsRoot
			}
			if cfg.EmbExpDir != "" {
				out.EmbExpDir = cfg.EmbExpDir
			}
			if err := out.Validate(); err != nil {
				return err
			}
			if err := config.SaveConfig(configDir, out); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing config")
	cmd.Flags().StringVar(&cfg.LogsRoot, "logs-root", "", "Root of the experiment tree")
	cmd.Flags().StringVar(&cfg.EmbExpDir, "embexp-dir", "", "Directory containing EmbExp-ProgPlatform")
	return cmd
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := json.MarshalIndent(wire.Config(), "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}
