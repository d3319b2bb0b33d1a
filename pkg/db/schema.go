// Package db provides SQLite storage for sync run history.
//
// The ledger itself is the only source of truth for which transactions have
// been imported; the tables here are an audit trail of what each run did.
package db

// Schema defines the SQL statements to create database tables.
const Schema = `
-- One row per invocation of the sync command
CREATE TABLE IF NOT EXISTS sync_runs (
    id TEXT PRIMARY KEY,               -- UUID
    started_at TIMESTAMP NOT NULL,
    finished_at TIMESTAMP,
    dry_run INTEGER NOT NULL DEFAULT 0,
    status TEXT NOT NULL,              -- 'running', 'succeeded' or 'failed'
    accounts_touched INTEGER NOT NULL DEFAULT 0,
    imported_count INTEGER NOT NULL DEFAULT 0,
    skipped_count INTEGER NOT NULL DEFAULT 0,
    failed_count INTEGER NOT NULL DEFAULT 0,
    error TEXT
);

CREATE INDEX IF NOT EXISTS idx_sync_runs_started
    ON sync_runs(started_at);

-- Transactions written to the ledger
CREATE TABLE IF NOT EXISTS imported_transactions (
    transaction_id TEXT PRIMARY KEY,   -- Mercury transaction ID
    run_id TEXT NOT NULL REFERENCES sync_runs(id),
    account_id TEXT NOT NULL,          -- Mercury account ID
    ledger_account TEXT NOT NULL,
    posted_date TEXT NOT NULL,         -- YYYY-MM-DD
    amount TEXT NOT NULL,              -- Exact decimal
    currency TEXT NOT NULL,
    ledger_file TEXT NOT NULL,
    imported_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_imported_run
    ON imported_transactions(run_id);

-- Transactions that could not be converted
CREATE TABLE IF NOT EXISTS conversion_failures (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL REFERENCES sync_runs(id),
    account_id TEXT NOT NULL,
    transaction_id TEXT NOT NULL,
    message TEXT NOT NULL
);

-- Key-value metadata about sync operations
CREATE TABLE IF NOT EXISTS sync_metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

// InitializeSchema initializes the database schema.
// It creates all tables if they don't exist.
func InitializeSchema(conn *Connection) error {
	if _, err := conn.Exec(Schema); err != nil {
		return err
	}
	return nil
}
