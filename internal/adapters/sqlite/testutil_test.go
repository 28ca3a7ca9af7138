// Package sqlite_test contains integration tests for SQLite repositories.
//
// # Schema Protection
//
// This file is the SINGLE POINT where the database schema is loaded for tests.
// All test setup functions use db.GetSchemaSQL() to ensure tests run against
// the authoritative schema, preventing drift between test and production.
//
// DO NOT hardcode CREATE TABLE statements in test files. Instead, use
// setupTestDB() and the seed* helpers.
package sqlite_test

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/example/embexp/internal/db"
)

// setupTestDB creates an in-memory database with the authoritative schema.
// Uses db.GetSchemaSQL() to prevent test schemas from drifting.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	testDB, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	// every connection to :memory: is a separate database
	testDB.SetMaxOpenConns(1)

	// Use the authoritative schema from schema.go
	_, err = testDB.Exec(db.GetSchemaSQL())
	if err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	t.Cleanup(func() {
		testDB.Close()
	})

	return testDB
}

// seedRun inserts a run directly and returns its ID.
func seedRun(t *testing.T, db *sql.DB, id, experimentID, runKey, startedAt string, failed bool) string {
	t.Helper()
	errText := ""
	if failed {
		errText = "unexpected output: experiment is never completed"
	}
	_, err := db.Exec(
		"INSERT INTO runs (id, experiment_id, run_key, outcome, error, started_at) VALUES (?, ?, ?, 'equal', ?, ?)",
		id, experimentID, runKey, errText, startedAt,
	)
	if err != nil {
		t.Fatalf("failed to seed run: %v", err)
	}
	return id
}
