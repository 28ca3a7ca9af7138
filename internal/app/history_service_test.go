package app

import (
	"context"
	"errors"
	"testing"

	"github.com/example/embexp/internal/ports/primary"
	"github.com/example/embexp/internal/ports/secondary"
)

func TestListRuns(t *testing.T) {
	ledger := &mockRunLedger{records: []*secondary.RunRecord{
		{ID: "RUN-0002", ExperimentID: pairID, RunKey: "abc.rpi3", Outcome: "equal", Result: "true", NoMismatch: true, DurationMS: 42},
		{ID: "RUN-0001", ExperimentID: pairID, Error: "uart timeout", NoMismatch: true},
	}}
	service := NewHistoryService(ledger)

	entries, err := service.ListRuns(context.Background(), primary.HistoryFilters{ExperimentID: pairID, FailedOnly: true, Limit: 5})
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if ledger.filters.ExperimentID != pairID || !ledger.filters.FailedOnly || ledger.filters.Limit != 5 {
		t.Errorf("filters not passed through: %+v", ledger.filters)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if e := entries[0]; e.ID != "RUN-0002" || e.Outcome != "equal" || e.DurationMS != 42 || e.RunKey != "abc.rpi3" {
		t.Errorf("unexpected entry %+v", e)
	}
	if entries[1].Error != "uart timeout" {
		t.Errorf("unexpected entry %+v", entries[1])
	}
}

func TestListRuns_Error(t *testing.T) {
	service := NewHistoryService(&mockRunLedger{listErr: errors.New("no such table")})

	if _, err := service.ListRuns(context.Background(), primary.HistoryFilters{}); err == nil {
		t.Error("expected error")
	}
}
