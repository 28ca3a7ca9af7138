package db

import (
	"database/sql"
	"fmt"
)

// Migration represents a database migration
type Migration struct {
	Version int
	Name    string
	Up      func(*sql.Tx) error
}

// migrations is the list of all migrations in order
var migrations = []Migration{
	{
		Version: 1,
		Name:    "create_runs_table",
		Up:      migrationV1,
	},
	{
		Version: 2,
		Name:    "add_forced_and_duration_to_runs",
		Up:      migrationV2,
	},
}

func createVersionTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}
	return nil
}

// RunMigrations applies every migration newer than the recorded schema version.
func RunMigrations(db *sql.DB) error {
	if err := createVersionTable(db); err != nil {
		return err
	}

	// Get current schema version
	var currentVersion int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get current schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %d: %w", migration.Version, err)
		}

		if err := migration.Up(tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s) failed: %w", migration.Version, migration.Name, err)
		}

		_, err = tx.Exec("INSERT INTO schema_version (version) VALUES (?)", migration.Version)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}

// migrationV1 creates the runs table as first released
func migrationV1(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			experiment_id TEXT NOT NULL,
			run_key TEXT NOT NULL DEFAULT '',
			outcome TEXT NOT NULL DEFAULT '',
			result TEXT NOT NULL DEFAULT '',
			no_mismatch INTEGER NOT NULL DEFAULT 1,
			error TEXT NOT NULL DEFAULT '',
			started_at DATETIME NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create runs: %w", err)
	}
	_, err = tx.Exec(`CREATE INDEX IF NOT EXISTS idx_runs_experiment ON runs(experiment_id)`)
	if err != nil {
		return fmt.Errorf("failed to create runs index: %w", err)
	}
	return nil
}

// migrationV2 records whether results were forced and how long a run took
func migrationV2(tx *sql.Tx) error {
	var hasForced int
	err := tx.QueryRow(`SELECT COUNT(*) FROM pragma_table_info('runs') WHERE name = 'forced'`).Scan(&hasForced)
	if err != nil {
		return fmt.Errorf("failed to inspect runs: %w", err)
	}
	if hasForced > 0 {
		return nil
	}
	statements := []string{
		`ALTER TABLE runs ADD COLUMN forced INTEGER NOT NULL DEFAULT 0`,
		`ALTER TABLE runs ADD COLUMN duration_ms INTEGER NOT NULL DEFAULT 0`,
		`CREATE INDEX IF NOT EXISTS idx_runs_run_key ON runs(run_key)`,
	}
	for _, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("failed to alter runs: %w", err)
		}
	}
	return nil
}
