package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RunStatus represents the state of a sync run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// Run represents one sync invocation.
type Run struct {
	ID              string
	StartedAt       time.Time
	FinishedAt      sql.NullTime
	DryRun          bool
	Status          RunStatus
	AccountsTouched int
	ImportedCount   int
	SkippedCount    int
	FailedCount     int
	Error           sql.NullString
}

// ImportedTransaction records a transaction written to the ledger.
type ImportedTransaction struct {
	TransactionID string
	AccountID     string
	LedgerAccount string
	PostedDate    string
	Amount        string
	Currency      string
	LedgerFile    string
}

// FailedTransaction records a transaction that could not be converted.
type FailedTransaction struct {
	AccountID     string
	TransactionID string
	Message       string
}

// SyncHistory manages sync run history.
type SyncHistory struct {
	conn *Connection
	now  func() time.Time
}

// NewSyncHistory creates a new SyncHistory instance.
func NewSyncHistory(conn *Connection) *SyncHistory {
	return &SyncHistory{conn: conn, now: time.Now}
}

// StartRun records the start of a run and returns it.
func (s *SyncHistory) StartRun(dryRun bool) (*Run, error) {
	run := &Run{
		ID:        uuid.NewString(),
		StartedAt: s.now().UTC(),
		DryRun:    dryRun,
		Status:    RunStatusRunning,
	}

	_, err := s.conn.Exec(
		`INSERT INTO sync_runs (id, started_at, dry_run, status) VALUES (?, ?, ?, ?)`,
		run.ID, run.StartedAt, run.DryRun, string(run.Status),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start run: %w", err)
	}

	return run, nil
}

// FinishRun stores the final counters of run. A non-nil runErr marks it failed.
func (s *SyncHistory) FinishRun(run *Run, runErr error) error {
	run.FinishedAt = sql.NullTime{Time: s.now().UTC(), Valid: true}
	run.Status = RunStatusSucceeded
	if runErr != nil {
		run.Status = RunStatusFailed
		run.Error = sql.NullString{String: runErr.Error(), Valid: true}
	}

	query := `
		UPDATE sync_runs SET
			finished_at = ?,
			status = ?,
			accounts_touched = ?,
			imported_count = ?,
			skipped_count = ?,
			failed_count = ?,
			error = ?
		WHERE id = ?
	`

	result, err := s.conn.Exec(query,
		run.FinishedAt,
		string(run.Status),
		run.AccountsTouched,
		run.ImportedCount,
		run.SkippedCount,
		run.FailedCount,
		run.Error,
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("run %s not found", run.ID)
	}

	return nil
}

// RecordImported records the transactions a run wrote to the ledger.
// A transaction imported again after being removed from the ledger is
// attributed to the latest run.
func (s *SyncHistory) RecordImported(runID string, txns []ImportedTransaction) error {
	query := `
		INSERT INTO imported_transactions
			(transaction_id, run_id, account_id, ledger_account, posted_date, amount, currency, ledger_file)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(transaction_id) DO UPDATE SET
			run_id = excluded.run_id,
			ledger_account = excluded.ledger_account,
			ledger_file = excluded.ledger_file,
			imported_at = CURRENT_TIMESTAMP
	`

	return s.conn.WithTx(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(query)
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer stmt.Close()

		for _, txn := range txns {
			if _, err := stmt.Exec(
				txn.TransactionID,
				runID,
				txn.AccountID,
				txn.LedgerAccount,
				txn.PostedDate,
				txn.Amount,
				txn.Currency,
				txn.LedgerFile,
			); err != nil {
				return fmt.Errorf("failed to record transaction %s: %w", txn.TransactionID, err)
			}
		}
		return nil
	})
}

// RecordFailures records the transactions a run could not convert.
func (s *SyncHistory) RecordFailures(runID string, failures []FailedTransaction) error {
	return s.conn.WithTx(func(tx *sql.Tx) error {
		for _, f := range failures {
			if _, err := tx.Exec(
				`INSERT INTO conversion_failures (run_id, account_id, transaction_id, message) VALUES (?, ?, ?, ?)`,
				runID, f.AccountID, f.TransactionID, f.Message,
			); err != nil {
				return fmt.Errorf("failed to record failure for %s: %w", f.TransactionID, err)
			}
		}
		return nil
	})
}

// GetRun retrieves a run by ID. It returns nil when the run does not exist.
func (s *SyncHistory) GetRun(id string) (*Run, error) {
	row := s.conn.QueryRow(selectRun+` WHERE id = ?`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *SyncHistory) ListRuns(limit int) ([]Run, error) {
	rows, err := s.conn.Query(selectRun+` ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}

	return runs, rows.Err()
}

// GetImported retrieves the import record of a transaction, or nil if it was
// never recorded.
func (s *SyncHistory) GetImported(transactionID string) (*ImportedTransaction, error) {
	query := `
		SELECT transaction_id, account_id, ledger_account, posted_date, amount, currency, ledger_file
		FROM imported_transactions
		WHERE transaction_id = ?
	`

	var txn ImportedTransaction
	err := s.conn.QueryRow(query, transactionID).Scan(
		&txn.TransactionID,
		&txn.AccountID,
		&txn.LedgerAccount,
		&txn.PostedDate,
		&txn.Amount,
		&txn.Currency,
		&txn.LedgerFile,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get imported transaction: %w", err)
	}

	return &txn, nil
}

// Stats represents sync statistics.
type Stats struct {
	TotalRuns         int
	FailedRuns        int
	TotalImported     int
	TotalFailures     int
	ImportedByAccount map[string]int
	LastRun           sql.NullString
}

// GetStats retrieves sync statistics.
func (s *SyncHistory) GetStats() (*Stats, error) {
	stats := Stats{ImportedByAccount: make(map[string]int)}

	err := s.conn.QueryRow(`SELECT COUNT(*) FROM sync_runs WHERE dry_run = 0`).Scan(&stats.TotalRuns)
	if err != nil {
		return nil, fmt.Errorf("failed to get run count: %w", err)
	}

	err = s.conn.QueryRow(`SELECT COUNT(*) FROM sync_runs WHERE status = ?`, string(RunStatusFailed)).Scan(&stats.FailedRuns)
	if err != nil {
		return nil, fmt.Errorf("failed to get failed run count: %w", err)
	}

	err = s.conn.QueryRow(`SELECT COUNT(*) FROM imported_transactions`).Scan(&stats.TotalImported)
	if err != nil {
		return nil, fmt.Errorf("failed to get imported count: %w", err)
	}

	err = s.conn.QueryRow(`SELECT COUNT(*) FROM conversion_failures`).Scan(&stats.TotalFailures)
	if err != nil {
		return nil, fmt.Errorf("failed to get failure count: %w", err)
	}

	err = s.conn.QueryRow(`SELECT id FROM sync_runs ORDER BY started_at DESC LIMIT 1`).Scan(&stats.LastRun)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to get last run: %w", err)
	}

	rows, err := s.conn.Query(`SELECT ledger_account, COUNT(*) FROM imported_transactions GROUP BY ledger_account`)
	if err != nil {
		return nil, fmt.Errorf("failed to get per-account counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var account string
		var count int
		if err := rows.Scan(&account, &count); err != nil {
			return nil, fmt.Errorf("failed to scan account count: %w", err)
		}
		stats.ImportedByAccount[account] = count
	}

	return &stats, rows.Err()
}

// GetMetadata retrieves a metadata value.
func (s *SyncHistory) GetMetadata(key string) (string, error) {
	var value string
	err := s.conn.QueryRow(`SELECT value FROM sync_metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get metadata: %w", err)
	}

	return value, nil
}

// SetMetadata sets a metadata value.
func (s *SyncHistory) SetMetadata(key, value string) error {
	query := `
		INSERT INTO sync_metadata (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP
	`

	if _, err := s.conn.Exec(query, key, value); err != nil {
		return fmt.Errorf("failed to set metadata: %w", err)
	}

	return nil
}

const selectRun = `
	SELECT id, started_at, finished_at, dry_run, status,
		accounts_touched, imported_count, skipped_count, failed_count, error
	FROM sync_runs`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scanner) (*Run, error) {
	var run Run
	var status string

	if err := row.Scan(
		&run.ID,
		&run.StartedAt,
		&run.FinishedAt,
		&run.DryRun,
		&status,
		&run.AccountsTouched,
		&run.ImportedCount,
		&run.SkippedCount,
		&run.FailedCount,
		&run.Error,
	); err != nil {
		return nil, err
	}

	run.Status = RunStatus(status)
	return &run, nil
}
