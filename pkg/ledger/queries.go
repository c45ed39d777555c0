package ledger

import (
	"database/sql"
	"fmt"
	"time"
)

// Run operations

// RecordRun inserts a run and its entries in one transaction and returns the run ID.
func (l *Ledger) RecordRun(run Run, entries []Entry) (int64, error) {
	tx, err := l.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.Exec(`
		INSERT INTO runs
		(started_at, run_timestamp, command, dry_run, total, applied, failures, rollback_failed, exit_code)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.Timestamp,
		run.Command,
		run.DryRun,
		run.Total,
		run.Applied,
		run.Failures,
		run.RollbackFailed,
		run.ExitCode,
	)
	if err != nil {
		return 0, wrapQueryErr("insert run", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run ID: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO run_packages
		(run_id, name, strategy, diff_result, outcome, reason, backup_path, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, wrapQueryErr("prepare entry insert", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.Exec(id, e.Name, e.Strategy, e.DiffResult, e.Outcome, e.Reason, e.BackupPath, e.Error); err != nil {
			return 0, fmt.Errorf("failed to insert entry %s: %w", e.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}
	return id, nil
}

// ListRuns returns the newest runs first. A limit of zero or less returns all runs.
func (l *Ledger) ListRuns(limit int) ([]Run, error) {
	query := `
		SELECT id, started_at, run_timestamp, command, dry_run, total, applied, failures, rollback_failed, exit_code
		FROM runs
		ORDER BY id DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := l.db.Query(query, args...)
	if err != nil {
		return nil, wrapQueryErr("list runs", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var startedAt string
		if err := rows.Scan(&r.ID, &startedAt, &r.Timestamp, &r.Command, &r.DryRun, &r.Total, &r.Applied, &r.Failures, &r.RollbackFailed, &r.ExitCode); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse started_at for run %d: %w", r.ID, err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun retrieves a run by ID.
func (l *Ledger) GetRun(id int64) (*Run, error) {
	var r Run
	var startedAt string
	err := l.db.QueryRow(`
		SELECT id, started_at, run_timestamp, command, dry_run, total, applied, failures, rollback_failed, exit_code
		FROM runs
		WHERE id = ?
	`, id).Scan(&r.ID, &startedAt, &r.Timestamp, &r.Command, &r.DryRun, &r.Total, &r.Applied, &r.Failures, &r.RollbackFailed, &r.ExitCode)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %d not found", id)
	}
	if err != nil {
		return nil, wrapQueryErr(fmt.Sprintf("get run %d", id), err)
	}
	r.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse started_at for run %d: %w", id, err)
	}
	return &r, nil
}

// Entry operations

// GetEntries returns the entries of a run sorted by package name.
func (l *Ledger) GetEntries(runID int64) ([]Entry, error) {
	rows, err := l.db.Query(`
		SELECT p.run_id, p.name, p.strategy, p.diff_result, p.outcome,
		       COALESCE(p.reason, ''), COALESCE(p.backup_path, ''), COALESCE(p.error, ''), r.run_timestamp
		FROM run_packages p
		JOIN runs r ON r.id = p.run_id
		WHERE p.run_id = ?
		ORDER BY p.name
	`, runID)
	if err != nil {
		return nil, wrapQueryErr("get entries", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// PackageHistory returns the newest entries for one package first.
func (l *Ledger) PackageHistory(name string, limit int) ([]Entry, error) {
	query := `
		SELECT p.run_id, p.name, p.strategy, p.diff_result, p.outcome,
		       COALESCE(p.reason, ''), COALESCE(p.backup_path, ''), COALESCE(p.error, ''), r.run_timestamp
		FROM run_packages p
		JOIN runs r ON r.id = p.run_id
		WHERE p.name = ?
		ORDER BY p.run_id DESC
	`
	args := []any{name}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := l.db.Query(query, args...)
	if err != nil {
		return nil, wrapQueryErr("get package history", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.RunID, &e.Name, &e.Strategy, &e.DiffResult, &e.Outcome, &e.Reason, &e.BackupPath, &e.Error, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
