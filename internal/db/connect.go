package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const (
	dbName = "provwatch.db"
	testDB = "file::memory:?cache=shared"
)

var (
	isTesting bool
)

func SetTesting(state bool) {
	isTesting = state
}

// initializeDatabase opens the database connection and then initializes the
// schema.
func initializeDatabase() (db *sql.DB, err error) {
	if isTesting {
		db, err = sql.Open("sqlite", testDB)
	} else {
		db, err = sql.Open("sqlite", dbName)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// modernc sqlite serializes writes itself; a single connection avoids
	// SQLITE_BUSY under concurrent history inserts.
	db.SetMaxOpenConns(1)

	if err := initDB(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	return db, nil
}

// initDB creates the history tables if they do not exist.
func initDB(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS provider_scans (
			id TEXT PRIMARY KEY,
			trigger_source TEXT,
			status TEXT,
			start_time DATETIME,
			end_time DATETIME,
			cache_hit BOOLEAN,
			providers_updated TEXT,
			providers_missing TEXT,
			error TEXT
		);

		CREATE TABLE IF NOT EXISTS provider_tests (
			id TEXT PRIMARY KEY,
			provider_id TEXT,
			status TEXT,
			success BOOLEAN,
			cached BOOLEAN,
			response_time_ms INTEGER,
			start_time DATETIME,
			end_time DATETIME,
			error TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_provider_tests_provider
			ON provider_tests (provider_id, start_time DESC);
	`)
	if err != nil {
		return fmt.Errorf("failed to create history tables: %w", err)
	}
	return nil
}
