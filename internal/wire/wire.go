// Package wire provides dependency injection for the embexp application.
// It creates singleton services with lazy initialization.
package wire

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"

	cliadapter "github.com/example/embexp/internal/adapters/cli"
	"github.com/example/embexp/internal/adapters/filesystem"
	"github.com/example/embexp/internal/adapters/progplatform"
	"github.com/example/embexp/internal/adapters/sqlite"
	"github.com/example/embexp/internal/app"
	"github.com/example/embexp/internal/config"
	"github.com/example/embexp/internal/core/encoder"
	"github.com/example/embexp/internal/db"
	"github.com/example/embexp/internal/logging"
	"github.com/example/embexp/internal/ports/secondary"
)

var (
	cfg       = config.Default()
	configDir = "."
	logger    = logging.Discard()

	experiments *filesystem.ExperimentRepository
	ledger      secondary.RunLedger
	storeOnce   sync.Once
	storeErr    error

	board     *progplatform.Platform
	boardOnce sync.Once
	boardErr  error
)

// Configure sets the configuration, the directory it was loaded from and the
// logger. It must be called before any other function of this package.
func Configure(dir string, c *config.Config, l *slog.Logger) {
	configDir = dir
	cfg = c
	logger = l
}

// Config returns the effective configuration.
func Config() *config.Config {
	return cfg
}

// Logger returns the configured logger.
func Logger() *slog.Logger {
	return logger
}

// initStore opens the experiment tree and the run ledger. A ledger that
// cannot be opened is logged and left nil; runs are then not recorded.
func initStore() {
	experiments, storeErr = filesystem.NewExperimentRepository(cfg.LogsRoot)
	if storeErr != nil {
		return
	}

	path := cfg.LedgerPath
	if path != "" && !filepath.IsAbs(path) {
		path = filepath.Join(configDir, path)
	}
	if path == "" {
		return
	}
	database, err := db.GetDB(path)
	if err != nil {
		logger.Warn("run ledger unavailable", "path", path, "error", err)
		return
	}
	ledger = sqlite.NewRunLedgerRepository(database)
}

// initBoard creates the driver for the configured progplatform checkout.
func initBoard() {
	dir, err := cfg.ProgPlatformDir()
	if err != nil {
		boardErr = err
		return
	}
	scratch, err := encoder.ParseScratchPolicy(cfg.Scratch)
	if err != nil {
		boardErr = err
		return
	}
	board, boardErr = progplatform.New(dir, progplatform.Options{
		Scratch:     scratch,
		Uncacheable: cfg.Uncacheable,
	}, logger)
}

func store() (*filesystem.ExperimentRepository, error) {
	storeOnce.Do(initStore)
	return experiments, storeErr
}

func storeAndBoard() (*filesystem.ExperimentRepository, *progplatform.Platform, error) {
	repo, err := store()
	if err != nil {
		return nil, nil, err
	}
	boardOnce.Do(initBoard)
	if boardErr != nil {
		return nil, nil, fmt.Errorf("failed to open progplatform: %w", boardErr)
	}
	return repo, board, nil
}

// RunAdapter returns a new RunAdapter writing results to out. Mismatch
// reports of the result store go to errOut.
func RunAdapter(out, errOut io.Writer) (*cliadapter.RunAdapter, error) {
	repo, board, err := storeAndBoard()
	if err != nil {
		return nil, err
	}
	results := filesystem.NewResultStore(repo, errOut, logger)
	runs := app.NewRunService(repo, results, board, ledger, logger)
	batches := app.NewBatchService(runs, repo, board, logger)
	return cliadapter.NewRunAdapter(runs, batches, out), nil
}

// ExperimentAdapter returns a new ExperimentAdapter writing to out.
func ExperimentAdapter(out io.Writer) (*cliadapter.ExperimentAdapter, error) {
	repo, err := store()
	if err != nil {
		return nil, err
	}
	return cliadapter.NewExperimentAdapter(app.NewExperimentService(repo, logger), out), nil
}

// StatusAdapter returns a new StatusAdapter writing to out. Without a
// progplatform checkout the status needs an explicit run key.
func StatusAdapter(out io.Writer) (*cliadapter.StatusAdapter, error) {
	repo, err := store()
	if err != nil {
		return nil, err
	}
	var driver secondary.BoardDriver
	boardOnce.Do(initBoard)
	if boardErr == nil {
		driver = board
	} else {
		logger.Debug("progplatform unavailable", "error", boardErr)
	}
	return cliadapter.NewStatusAdapter(app.NewStatusService(repo, driver, logger), out), nil
}

// HistoryAdapter returns a new HistoryAdapter writing to out.
func HistoryAdapter(out io.Writer) (*cliadapter.HistoryAdapter, error) {
	if _, err := store(); err != nil {
		return nil, err
	}
	if ledger == nil {
		return nil, errors.New("run ledger is not available")
	}
	return cliadapter.NewHistoryAdapter(app.NewHistoryService(ledger), out), nil
}

// Close releases the run ledger.
func Close() error {
	return db.Close()
}
