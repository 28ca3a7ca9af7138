// Package progplatform drives an EmbExp-ProgPlatform checkout: it configures
// one experiment, builds and runs it on the board through make, and keeps the
// git working tree clean between runs.
package progplatform

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/example/embexp/internal/core/encoder"
	"github.com/example/embexp/internal/models"
	"github.com/example/embexp/internal/ports/secondary"
)

// ErrNotWritable is returned when the checkout is modified before EnsureClean succeeded.
var ErrNotWritable = errors.New("progplatform has not been checked clean")

// Files written into the checkout.
const (
	ConfigFile    = "Makefile.config"
	ExperimentDir = "inc/experiment"
	CodeHeader    = "cache_run_input.h"
	UARTLog       = "temp/uart.log"
)

// Run timeouts in seconds passed to the board by experiment type.
const (
	pairTimeout   = 6
	singleTimeout = 20
)

// SetupHeader returns the name of the setup file for input n (1-based).
func SetupHeader(n int) string {
	return fmt.Sprintf("cache_run_input_setup%d.h", n)
}

// Options configures code generation for the setup files.
type Options struct {
	Scratch encoder.ScratchPolicy
	// Uncacheable moves memory addresses to the uncacheable alias before encoding.
	Uncacheable bool
}

// runFunc executes name with args in dir and returns its standard output.
type runFunc func(ctx context.Context, dir, name string, args ...string) ([]byte, error)

// Platform implements secondary.BoardDriver.
type Platform struct {
	dir      string
	opts     Options
	logger   *slog.Logger
	run      runFunc
	writable bool
}

// New creates a driver for the checkout at dir.
func New(dir string, opts Options, logger *slog.Logger) (*Platform, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve progplatform path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("path to progplatform is not an existing directory: %s", abs)
	}
	logger.Info("using progplatform", "path", abs)
	p := &Platform{dir: abs, opts: opts, logger: logger}
	p.run = p.runCommand
	return p, nil
}

// Dir returns the checkout directory.
func (p *Platform) Dir() string {
	return p.dir
}

func (p *Platform) git(ctx context.Context, args ...string) ([]byte, error) {
	base := []string{"--git-dir", filepath.Join(p.dir, ".git"), "--work-tree", p.dir}
	return p.run(ctx, p.dir, "git", append(base, args...)...)
}

// EnsureClean verifies that the checkout has no local changes. With force it
// first reverts tracked files and removes ignored ones.
func (p *Platform) EnsureClean(ctx context.Context, force bool) error {
	if force {
		p.logger.Info("forcing cleanup on repository")
		if _, err := p.git(ctx, "checkout", "--", p.dir); err != nil {
			return fmt.Errorf("couldn't reset progplatform: %w", err)
		}
		if _, err := p.git(ctx, "clean", "-fdX", p.dir); err != nil {
			return fmt.Errorf("couldn't clean progplatform: %w", err)
		}
	}
	p.logger.Debug("checking whether git repository is clean")
	out, err := p.git(ctx, "status", "--porcelain")
	if err != nil {
		return fmt.Errorf("error checking for clean repo: %w", err)
	}
	if len(out) != 0 {
		p.writable = false
		return fmt.Errorf("check your working directory %q: either commit and push your changes or just clean it", p.dir)
	}
	p.writable = true
	return nil
}

// ChangeBranch checks out branch and removes ignored build files.
func (p *Platform) ChangeBranch(ctx context.Context, branch string) error {
	if !p.writable {
		return ErrNotWritable
	}
	if _, err := p.git(ctx, "checkout", branch); err != nil {
		return fmt.Errorf("couldn't checkout branch %s: %w", branch, err)
	}
	if _, err := p.git(ctx, "clean", "-fdX", "."); err != nil {
		return fmt.Errorf("couldn't clean progplatform: %w", err)
	}
	return nil
}

// Configure writes Makefile.config, the program and one setup file per input.
func (p *Platform) Configure(ctx context.Context, boardType string, setup secondary.ExperimentSetup) error {
	if !p.writable {
		return ErrNotWritable
	}
	id := setup.ID
	if n := id.Type.InputCount(); n == 0 || len(setup.Inputs) != n {
		return fmt.Errorf("experiment %s needs %d inputs, got %d", id, n, len(setup.Inputs))
	}

	files := []models.Output{
		{Name: ConfigFile, Data: []byte(MakefileConfig(id, boardType))},
		{Name: filepath.Join(ExperimentDir, CodeHeader), Data: []byte(setup.Code)},
	}
	for i, input := range setup.Inputs {
		code, err := InputCode(input, p.opts)
		if err != nil {
			return fmt.Errorf("failed to generate setup code for input %d: %w", i+1, err)
		}
		files = append(files, models.Output{Name: filepath.Join(ExperimentDir, SetupHeader(i+1)), Data: []byte(code)})
	}

	for _, f := range files {
		path := filepath.Join(p.dir, f.Name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", filepath.Dir(f.Name), err)
		}
		if err := os.WriteFile(path, f.Data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", f.Name, err)
		}
	}
	p.logger.Debug("configured experiment", "experiment", id.String(), "board", boardType)
	return nil
}

// Execute runs the make target for mode and returns the captured UART log.
func (p *Platform) Execute(ctx context.Context, mode secondary.ConnMode) ([]byte, error) {
	target, err := makeTarget(mode)
	if err != nil {
		return nil, err
	}
	if _, err := p.run(ctx, p.dir, "make", "-C", p.dir, target); err != nil {
		return nil, fmt.Errorf("experiment didn't run successfully: %w", err)
	}
	data, err := os.ReadFile(filepath.Join(p.dir, UARTLog))
	if err != nil {
		return nil, fmt.Errorf("failed to read uart log: %w", err)
	}
	return data, nil
}

// CurrentRevision returns the commit hash of HEAD.
func (p *Platform) CurrentRevision(ctx context.Context) (string, error) {
	return p.BranchRevision(ctx, "HEAD")
}

// BranchRevision returns the commit hash branch points to.
func (p *Platform) BranchRevision(ctx context.Context, branch string) (string, error) {
	out, err := p.git(ctx, "rev-parse", branch)
	if err != nil {
		return "", fmt.Errorf("couldn't get commit hash: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

func makeTarget(mode secondary.ConnMode) (string, error) {
	switch mode {
	case "", secondary.ConnTry:
		return "runlog_try", nil
	case secondary.ConnRun:
		return "runlog", nil
	case secondary.ConnReset:
		return "runlog_reset", nil
	default:
		return "", fmt.Errorf("invalid conn_mode: %s", mode)
	}
}

// MakefileConfig renders the build configuration for one experiment.
func MakefileConfig(id models.ExperimentID, boardType string) string {
	timeout := pairTimeout
	if id.Type == models.TypeSingle {
		timeout = singleTimeout
	}
	var b strings.Builder
	fmt.Fprintf(&b, "PROGPLAT_ARCH        =%s\n", id.Arch)
	fmt.Fprintf(&b, "PROGPLAT_TYPE        =%s\n", id.Type)
	fmt.Fprintf(&b, "PROGPLAT_PARAMS      =%s\n", id.Params)
	fmt.Fprintf(&b, "PROGPLAT_BOARD       =%s\n", boardType)
	fmt.Fprintf(&b, "PROGPLAT_RUN_TIMEOUT =%d\n", timeout)
	return b.String()
}

// InputCode generates the setup file content for one input state.
func InputCode(state models.StateMap, opts Options) (string, error) {
	if opts.Uncacheable {
		var err error
		state, err = state.Uncacheable()
		if err != nil {
			return "", err
		}
	}
	prog, err := encoder.Encode(state, encoder.Options{Scratch: opts.Scratch})
	if err != nil {
		return "", err
	}
	return prog.String(), nil
}

func (p *Platform) runCommand(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	p.logger.Debug("command finished", "cmd", name, "args", args, "stdout", stdout.String(), "stderr", stderr.String())
	if err != nil {
		return nil, fmt.Errorf("command %s %s not successful: %w: %s", name, strings.Join(args, " "), err, stderr.String())
	}
	return stdout.Bytes(), nil
}

// Ensure Platform implements the interface
var _ secondary.BoardDriver = (*Platform)(nil)
