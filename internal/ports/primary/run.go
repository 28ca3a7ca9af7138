// Package primary defines the primary ports (driving adapters) for the application.
// These are the interfaces through which the CLI drives the application.
package primary

import (
	"context"
	"time"

	"github.com/example/embexp/internal/models"
)

// RunService defines the primary port for running single experiments.
type RunService interface {
	// RunExperiment configures, executes, decodes and stores one experiment.
	// Board cleanup runs before it returns, whatever the outcome.
	RunExperiment(ctx context.Context, req RunRequest) (*RunReport, error)
}

// RunOptions controls how one experiment is run.
type RunOptions struct {
	BoardType      string // defaults to the board of the architecture
	Branch         string // firmware branch, defaults to master
	ConnMode       string // try, run or reset
	ForceCleanup   bool   // reset the checkout before the run instead of refusing
	ForceResults   bool   // overwrite stored outputs that differ
	IgnoreMismatch bool   // report differing outputs without failing
	NoCleanup      bool   // leave the checkout configured after the run
	DryRun         bool   // decode but do not store outputs
}

// RunRequest contains parameters for running one experiment.
type RunRequest struct {
	ExperimentID string
	Options      RunOptions
}

// RunReport describes a finished run.
type RunReport struct {
	ExperimentID string
	RunKey       string // empty for dry runs
	Outcome      models.Outcome
	Result       string // result blob as stored
	NoMismatch   bool
	Written      bool
}

// BatchService defines the primary port for running many experiments in sequence.
type BatchService interface {
	// RunBatch runs the selected experiments one at a time and summarizes them.
	RunBatch(ctx context.Context, req BatchRequest) (*BatchSummary, error)
}

// Batch selection modes.
const (
	BatchModeAll = "all" // every valid experiment of the class
	BatchModeFix = "fix" // only experiments without complete results, polled
)

// BatchRequest selects the experiments of a batch. If IDs is set the class is
// only used for validation and Mode is ignored.
type BatchRequest struct {
	Class   string
	IDs     []string
	Mode    string
	Prefix  string // only run hashes with this prefix
	Rounds  int
	Delay   time.Duration
	Options RunOptions

	// OnItem, if set, is called after every experiment.
	OnItem func(ItemResult)
}

// ItemResult is the outcome of one experiment of a batch.
type ItemResult struct {
	ExperimentID string
	Outcome      string // outcome kind, empty on failure
	Result       string
	Err          error
}

// BatchSummary summarizes a batch.
type BatchSummary struct {
	Items     []ItemResult
	Succeeded int
	Failed    int
}

// AllSucceeded reports whether no experiment of the batch failed.
func (s *BatchSummary) AllSucceeded() bool {
	return s.Failed == 0
}
