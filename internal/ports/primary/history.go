package primary

import "context"

// HistoryService defines the primary port for the run ledger.
type HistoryService interface {
	// ListRuns retrieves recorded runs matching the given filters, newest first.
	ListRuns(ctx context.Context, filters HistoryFilters) ([]*RunEntry, error)
}

// HistoryFilters contains filter options for listing runs.
type HistoryFilters struct {
	ExperimentID string
	RunKey       string
	FailedOnly   bool
	Limit        int
}

// RunEntry represents a recorded run at the port boundary.
type RunEntry struct {
	ID           string
	ExperimentID string
	RunKey       string
	Outcome      string
	Result       string
	NoMismatch   bool
	Forced       bool
	Error        string
	StartedAt    string
	DurationMS   int64
}
