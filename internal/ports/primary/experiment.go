package primary

import "context"

// ExperimentService defines the primary port for inspecting and organizing experiments.
type ExperimentService interface {
	// ShowExperiment gathers everything known about one experiment.
	ShowExperiment(ctx context.Context, experimentID string) (*ExperimentDetails, error)

	// ExtractExperiment creates a single-run experiment from one input of a pair experiment.
	ExtractExperiment(ctx context.Context, req ExtractRequest) (*ExtractResponse, error)

	// SplitLists distributes the experiments of a class round-robin over list files.
	SplitLists(ctx context.Context, req SplitListsRequest) (*SplitListsResponse, error)

	// RemoveExperiment deletes an experiment directory with all its runs.
	RemoveExperiment(ctx context.Context, experimentID string) error

	// ValidateIDs parses and checks a list of experiment ids before a batch.
	ValidateIDs(ctx context.Context, ids []string) error
}

// ExperimentDetails describes one experiment.
type ExperimentDetails struct {
	ID        string
	GenFiles  []string
	Runs      []RunResult
	ProgramID string
	Code      string
	Inputs    []string // readable register dumps, one per input
}

// RunResult is the stored result of one run key.
type RunResult struct {
	RunKey string
	Result string // empty if the run is incomplete
}

// ExtractRequest contains parameters for extracting an experiment.
type ExtractRequest struct {
	ExperimentID string
	InputIndex   int // 1 or 2
	NewName      string
}

// ExtractResponse contains the id of the created experiment.
type ExtractResponse struct {
	NewExperimentID string
}

// SplitListsRequest contains parameters for writing list files.
type SplitListsRequest struct {
	Class    string
	Name     string
	NumLists int
}

// SplitListsResponse describes the written list files.
type SplitListsResponse struct {
	Paths    []string
	Lengths  []int
	Warnings []string // skipped entries of the class directory
}
