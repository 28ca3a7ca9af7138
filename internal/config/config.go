package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

// DirName is the directory holding config.json, relative to the config dir.
const DirName = ".embexp"

// Supported hardware.
const (
	ArchARM8  = "arm8"
	BoardRPi3 = "rpi3"
)

// Config represents the flat embexp configuration. Values come from the
// defaults, then config.json, then EMBEXP_* environment variables.
type Config struct {
	// LogsRoot is the root of the experiment tree.
	LogsRoot string `json:"logs_root" env:"EMBEXP_LOGS_ROOT"`
	// EmbExpDir contains the EmbExp-ProgPlatform checkout.
	EmbExpDir   string `json:"embexp_dir" env:"HOLBA_EMBEXP_DIR"`
	Arch        string `json:"arch" env:"EMBEXP_ARCH"`
	BoardType   string `json:"board_type" env:"EMBEXP_BOARD"`
	Branch      string `json:"branch" env:"EMBEXP_BRANCH"`
	ConnMode    string `json:"conn_mode,omitempty" env:"EMBEXP_CONN_MODE"`
	Scratch     string `json:"scratch" env:"EMBEXP_SCRATCH"`
	Uncacheable bool   `json:"uncacheable" env:"EMBEXP_UNCACHEABLE"`

	PollRounds int    `json:"poll_rounds" env:"EMBEXP_POLL_ROUNDS"`
	PollDelay  string `json:"poll_delay" env:"EMBEXP_POLL_DELAY"`

	// LedgerPath is the sqlite database recording every run.
	LedgerPath string `json:"ledger_path" env:"EMBEXP_LEDGER"`
	LogFile    string `json:"log_file,omitempty" env:"EMBEXP_LOG_FILE"`
	LogLevel   string `json:"log_level,omitempty" env:"EMBEXP_LOG_LEVEL"`
}

// Default returns the configuration used when nothing else is set. Paths are
// relative to the working directory.
func Default() *Config {
	return &Config{
		LogsRoot:    ".",
		Arch:        ArchARM8,
		BoardType:   BoardRPi3,
		Branch:      "master",
		Scratch:     "fixed",
		Uncacheable: true,
		PollRounds:  1,
		PollDelay:   "1m",
		LedgerPath:  filepath.Join(DirName, "runs.db"),
		LogLevel:    "warn",
	}
}

// LoadConfig reads .embexp/config.json from the specified directory.
// Returns error if no config found - caller should handle accordingly.
func LoadConfig(dir string) (*Config, error) {
	path := filepath.Join(dir, DirName, "config.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}

// Load resolves the effective configuration for dir. A missing config file
// is not an error.
func Load(dir string) (*Config, error) {
	cfg, err := LoadConfig(dir)
	if errors.Is(err, os.ErrNotExist) {
		cfg = Default()
	} else if err != nil {
		return nil, err
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveConfig writes config.json to directory
func SaveConfig(dir string, cfg *Config) error {
	cfgDir := filepath.Join(dir, DirName)
	if err := os.MkdirAll(cfgDir, 0755); err != nil {
		return fmt.Errorf("failed to create %s dir: %w", DirName, err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	path := filepath.Join(cfgDir, "config.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Validate checks the values that cannot be checked by their consumers later.
func (c *Config) Validate() error {
	if c.LogsRoot == "" {
		return fmt.Errorf("logs_root must be set")
	}
	if c.Arch == "" || c.BoardType == "" || c.Branch == "" {
		return fmt.Errorf("arch, board_type and branch must be set")
	}
	if c.PollRounds < 1 {
		return fmt.Errorf("poll_rounds must be at least 1, got %d", c.PollRounds)
	}
	if _, err := c.PollInterval(); err != nil {
		return err
	}
	return nil
}

// PollInterval parses PollDelay.
func (c *Config) PollInterval() (time.Duration, error) {
	d, err := time.ParseDuration(c.PollDelay)
	if err != nil {
		return 0, fmt.Errorf("invalid poll_delay %q: %w", c.PollDelay, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("poll_delay must not be negative")
	}
	return d, nil
}

// ProgPlatformDir returns the EmbExp-ProgPlatform checkout inside EmbExpDir.
func (c *Config) ProgPlatformDir() (string, error) {
	if c.EmbExpDir == "" {
		return "", fmt.Errorf("embexp directory is not configured (set HOLBA_EMBEXP_DIR)")
	}
	return filepath.Join(c.EmbExpDir, "EmbExp-ProgPlatform"), nil
}
