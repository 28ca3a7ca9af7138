package app

import (
	"context"
	"fmt"

	"github.com/example/embexp/internal/ports/primary"
	"github.com/example/embexp/internal/ports/secondary"
)

// HistoryServiceImpl implements the HistoryService interface.
type HistoryServiceImpl struct {
	ledger secondary.RunLedger
}

// NewHistoryService creates a new HistoryService with injected dependencies.
func NewHistoryService(ledger secondary.RunLedger) *HistoryServiceImpl {
	return &HistoryServiceImpl{ledger: ledger}
}

// ListRuns retrieves recorded runs matching the given filters.
func (s *HistoryServiceImpl) ListRuns(ctx context.Context, filters primary.HistoryFilters) ([]*primary.RunEntry, error) {
	records, err := s.ledger.List(ctx, secondary.RunFilters{
		ExperimentID: filters.ExperimentID,
		RunKey:       filters.RunKey,
		FailedOnly:   filters.FailedOnly,
		Limit:        filters.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	entries := make([]*primary.RunEntry, len(records))
	for i, r := range records {
		entries[i] = &primary.RunEntry{
			ID:           r.ID,
			ExperimentID: r.ExperimentID,
			RunKey:       r.RunKey,
			Outcome:      r.Outcome,
			Result:       r.Result,
			NoMismatch:   r.NoMismatch,
			Forced:       r.Forced,
			Error:        r.Error,
			StartedAt:    r.StartedAt,
			DurationMS:   r.DurationMS,
		}
	}
	return entries, nil
}

// Ensure HistoryServiceImpl implements the interface
var _ primary.HistoryService = (*HistoryServiceImpl)(nil)
