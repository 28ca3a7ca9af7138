// Package secondary defines the secondary ports (driven adapters) for the application.
// These are the interfaces through which the application drives external systems.
package secondary

import (
	"context"

	"github.com/example/embexp/internal/models"
)

// ExperimentRepository defines the secondary port for the on-disk experiment tree.
type ExperimentRepository interface {
	// Exists reports whether the experiment directory exists.
	Exists(ctx context.Context, id models.ExperimentID) (bool, error)

	// IsValid reports whether all declared inputs and the referenced program are present.
	IsValid(ctx context.Context, id models.ExperimentID) (bool, error)

	// IsIncomplete reports whether any result artifact is missing for runKey.
	IsIncomplete(ctx context.Context, id models.ExperimentID, runKey models.RunKey) (bool, error)

	// ListClass returns the valid experiments of a class, sorted by hash.
	ListClass(ctx context.Context, class models.ExperimentClass) ([]models.ExperimentID, error)

	// ListIncomplete returns the valid experiments of a class without complete results for runKey.
	ListIncomplete(ctx context.Context, class models.ExperimentClass, runKey models.RunKey) ([]models.ExperimentID, error)

	// ListArch returns every valid experiment below an architecture directory.
	ListArch(ctx context.Context, arch string) ([]models.ExperimentID, error)

	// ListPrograms returns the program ids of an architecture.
	ListPrograms(ctx context.Context, arch string) ([]string, error)

	// ListEntries returns the raw directory names inside a class directory, with
	// whether each is a non-empty directory.
	ListEntries(ctx context.Context, class models.ExperimentClass) ([]ClassEntry, error)

	// ProgramID returns the content of the code.hash file.
	ProgramID(ctx context.Context, id models.ExperimentID) (string, error)

	// Code returns the assembler source of the experiment's program.
	Code(ctx context.Context, id models.ExperimentID) (string, error)

	// Input decodes input file n (1-based).
	Input(ctx context.Context, id models.ExperimentID, n int) (models.StateMap, error)

	// RawFile returns the bytes of a file inside the experiment directory.
	RawFile(ctx context.Context, id models.ExperimentID, name string) ([]byte, error)

	// GenFiles returns the names of the generation info files (gen.*).
	GenFiles(ctx context.Context, id models.ExperimentID) ([]string, error)

	// RunKeys returns the run keys that have a run directory.
	RunKeys(ctx context.Context, id models.ExperimentID) ([]models.RunKey, error)

	// Result returns the stored result blob for runKey.
	Result(ctx context.Context, id models.ExperimentID, runKey models.RunKey) ([]byte, error)

	// Create creates a new experiment directory holding files. It fails if the experiment exists.
	Create(ctx context.Context, id models.ExperimentID, files []models.Output) error

	// Remove deletes an experiment directory.
	Remove(ctx context.Context, id models.ExperimentID) error

	// WriteLists writes list i to lists/exps_<name>_<i>.txt, one id per line,
	// and returns the paths. No file is written if any of them exists.
	WriteLists(ctx context.Context, name string, lists [][]models.ExperimentID) ([]string, error)

	// Root returns the root directory of the experiment tree.
	Root() string
}

// ClassEntry is one directory entry of a class directory.
type ClassEntry struct {
	Name     string
	IsDir    bool
	HasFiles bool
}

// ResultStore defines the secondary port for write-once run artifacts.
type ResultStore interface {
	// WriteResults stores outputs under (id, runKey). If any output differs from
	// what is already stored and force is false, nothing is written. The returned
	// flag is false whenever a difference was found, even if force wrote anyway.
	WriteResults(ctx context.Context, runKey models.RunKey, id models.ExperimentID, outputs []models.Output, force bool) (bool, error)
}

// RunLedger defines the secondary port for the history of experiment runs.
type RunLedger interface {
	// Record persists one run.
	Record(ctx context.Context, run *RunRecord) error

	// List retrieves runs matching the given filters, newest first.
	List(ctx context.Context, filters RunFilters) ([]*RunRecord, error)

	// GetNextID returns the next available run ID.
	GetNextID(ctx context.Context) (string, error)
}

// RunRecord represents one experiment run as stored in the ledger.
type RunRecord struct {
	ID           string
	ExperimentID string
	RunKey       string
	Outcome      string // outcome kind, empty when the run failed
	Result       string // stored result blob
	NoMismatch   bool
	Forced       bool
	Error        string
	StartedAt    string
	DurationMS   int64
}

// RunFilters contains filter options for querying runs.
type RunFilters struct {
	ExperimentID string
	RunKey       string
	FailedOnly   bool
	Limit        int
}
