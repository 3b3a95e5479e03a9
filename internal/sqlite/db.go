package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection
type DB struct {
	*sql.DB
}

// New creates a new SQLite database connection
func New(dataSourceName string) (*DB, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps :memory: databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return &DB{db}, nil
}

// RunMigrations creates the schema. It is safe to run on every start.
func (db *DB) RunMigrations() error {
	migration := `
-- Service sheets, one per uploaded ficha
CREATE TABLE IF NOT EXISTS sheets (
    id TEXT PRIMARY KEY,
    client TEXT NOT NULL,
    project_id TEXT NOT NULL DEFAULT '',
    vertical TEXT NOT NULL DEFAULT '',
    service_type TEXT NOT NULL DEFAULT '',
    hourly_rate REAL NOT NULL DEFAULT 0,
    ficha_number TEXT NOT NULL DEFAULT '',
    ticket TEXT NOT NULL DEFAULT '',
    source_name TEXT NOT NULL DEFAULT '',
    strategy TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL CHECK(status IN ('IN_PROGRESS', 'COMPLETED')),
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    completed_at TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_sheets_project ON sheets(project_id);
CREATE INDEX IF NOT EXISTS idx_sheets_status ON sheets(status);

-- Activity records extracted from a sheet
CREATE TABLE IF NOT EXISTS activity_records (
    id TEXT PRIMARY KEY,
    sheet_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    source_line INTEGER NOT NULL DEFAULT 0,
    date TEXT NOT NULL,
    executor_name TEXT NOT NULL DEFAULT '',
    executor_id TEXT NOT NULL DEFAULT '',
    start_time TEXT NOT NULL,
    end_time TEXT NOT NULL,
    total_duration TEXT NOT NULL,
    billable INTEGER NOT NULL DEFAULT 0,
    description TEXT NOT NULL DEFAULT '',
    description_found INTEGER NOT NULL DEFAULT 0,
    task_id TEXT NOT NULL DEFAULT '',
    task_name TEXT NOT NULL DEFAULT '',
    FOREIGN KEY (sheet_id) REFERENCES sheets(id) ON DELETE CASCADE,
    UNIQUE (sheet_id, position)
);
CREATE INDEX IF NOT EXISTS idx_records_sheet ON activity_records(sheet_id);

-- Fingerprints of time entries accepted by Teamwork
CREATE TABLE IF NOT EXISTS posted_entries (
    fingerprint TEXT PRIMARY KEY,
    sheet_id TEXT NOT NULL,
    record_id TEXT NOT NULL,
    task_id TEXT NOT NULL DEFAULT '',
    remote_id TEXT NOT NULL DEFAULT '',
    endpoint TEXT NOT NULL DEFAULT '',
    variant TEXT NOT NULL DEFAULT '',
    posted_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_posted_sheet ON posted_entries(sheet_id);

-- API keys for authentication
CREATE TABLE IF NOT EXISTS api_keys (
    key_hash TEXT PRIMARY KEY,
    operator TEXT NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    last_used TIMESTAMP,
    description TEXT
);
`

	_, err := db.Exec(migration)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
