// Package sqlite contains SQLite implementations of repository interfaces.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/embexp/internal/ports/secondary"
)

// RunLedgerRepository implements secondary.RunLedger with SQLite.
type RunLedgerRepository struct {
	db *sql.DB
}

// NewRunLedgerRepository creates a new SQLite run ledger.
func NewRunLedgerRepository(db *sql.DB) *RunLedgerRepository {
	return &RunLedgerRepository{db: db}
}

// Record persists a new run.
func (r *RunLedgerRepository) Record(ctx context.Context, run *secondary.RunRecord) error {
	startedAt := time.Now().UTC()
	if run.StartedAt != "" {
		t, err := time.Parse(time.RFC3339, run.StartedAt)
		if err != nil {
			return fmt.Errorf("invalid run start time %q: %w", run.StartedAt, err)
		}
		startedAt = t.UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO runs (id, experiment_id, run_key, outcome, result, no_mismatch, forced, error, started_at, duration_ms) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.ExperimentID,
		run.RunKey,
		run.Outcome,
		run.Result,
		boolToInt(run.NoMismatch),
		boolToInt(run.Forced),
		run.Error,
		startedAt.Format(time.RFC3339),
		run.DurationMS,
	)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}

	return nil
}

// List retrieves runs matching the given filters, newest first.
func (r *RunLedgerRepository) List(ctx context.Context, filters secondary.RunFilters) ([]*secondary.RunRecord, error) {
	query := `SELECT id, experiment_id, run_key, outcome, result, no_mismatch, forced, error, started_at, duration_ms FROM runs WHERE 1=1`
	args := []any{}

	if filters.ExperimentID != "" {
		query += " AND experiment_id = ?"
		args = append(args, filters.ExperimentID)
	}

	if filters.RunKey != "" {
		query += " AND run_key = ?"
		args = append(args, filters.RunKey)
	}

	if filters.FailedOnly {
		query += " AND (error != '' OR no_mismatch = 0)"
	}

	query += " ORDER BY started_at DESC, id DESC"

	if filters.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filters.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*secondary.RunRecord
	for rows.Next() {
		var (
			noMismatch int
			forced     int
			startedAt  time.Time
		)

		record := &secondary.RunRecord{}
		err := rows.Scan(&record.ID,
			&record.ExperimentID,
			&record.RunKey,
			&record.Outcome,
			&record.Result,
			&noMismatch,
			&forced,
			&record.Error,
			&startedAt,
			&record.DurationMS)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		record.NoMismatch = noMismatch != 0
		record.Forced = forced != 0
		record.StartedAt = startedAt.UTC().Format(time.RFC3339)

		runs = append(runs, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	return runs, nil
}

// GetNextID returns the next available run ID.
func (r *RunLedgerRepository) GetNextID(ctx context.Context) (string, error) {
	var maxID int
	prefixLen := len("RUN-") + 1
	err := r.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT COALESCE(MAX(CAST(SUBSTR(id, %d) AS INTEGER)), 0) FROM runs", prefixLen),
	).Scan(&maxID)
	if err != nil {
		return "", fmt.Errorf("failed to get next run ID: %w", err)
	}

	return fmt.Sprintf("RUN-%04d", maxID+1), nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Ensure RunLedgerRepository implements the interface
var _ secondary.RunLedger = (*RunLedgerRepository)(nil)
