package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// InsertScanRun records the start of a scan run.
func (s *Store) InsertScanRun(run *ScanRun) error {
	_, err := s.db.Exec(
		`INSERT INTO scan_runs (id, started_at) VALUES (?, ?)`,
		run.ID, run.StartedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return wrapErr("insert scan run", err)
	}
	return nil
}

// FinishScanRun stores the final counts of a run.
func (s *Store) FinishScanRun(run *ScanRun) error {
	query := `
		UPDATE scan_runs
		SET finished_at = ?, archive_count = ?, built_count = ?, skipped_count = ?, failed_count = ?
		WHERE id = ?
	`
	res, err := s.db.Exec(query,
		run.FinishedAt.UTC().Format(timeLayout),
		run.ArchiveCount,
		run.BuiltCount,
		run.SkippedCount,
		run.FailedCount,
		run.ID,
	)
	if err != nil {
		return wrapErr("finish scan run", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("scan run %s: %w", run.ID, ErrRecordNotFound)
	}
	return nil
}

// LastScanRun returns the most recently started run.
func (s *Store) LastScanRun() (*ScanRun, error) {
	runs, err := s.ListScanRuns(1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("scan run: %w", ErrRecordNotFound)
	}
	return runs[0], nil
}

// GetScanRun returns a run by ID.
func (s *Store) GetScanRun(id string) (*ScanRun, error) {
	query := `
		SELECT id, started_at, finished_at, archive_count, built_count, skipped_count, failed_count
		FROM scan_runs
		WHERE id = ?
	`
	run, err := scanRun(s.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("scan run %s: %w", id, ErrRecordNotFound)
	}
	if err != nil {
		return nil, wrapErr("get scan run "+id, err)
	}
	return run, nil
}

// ListScanRuns returns up to limit runs, newest first. A limit of zero or
// less returns all runs.
func (s *Store) ListScanRuns(limit int) ([]*ScanRun, error) {
	query := `
		SELECT id, started_at, finished_at, archive_count, built_count, skipped_count, failed_count
		FROM scan_runs
		ORDER BY started_at DESC
	`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, wrapErr("list scan runs", err)
	}
	defer rows.Close()

	var runs []*ScanRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan scan run row: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating scan runs: %w", err)
	}
	return runs, nil
}

func scanRun(row rowScanner) (*ScanRun, error) {
	var run ScanRun
	var startedAt string
	var finishedAt sql.NullString

	err := row.Scan(
		&run.ID,
		&startedAt,
		&finishedAt,
		&run.ArchiveCount,
		&run.BuiltCount,
		&run.SkippedCount,
		&run.FailedCount,
	)
	if err != nil {
		return nil, err
	}

	run.StartedAt, err = time.Parse(timeLayout, startedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse started_at for run %s: %w", run.ID, err)
	}
	if finishedAt.Valid && finishedAt.String != "" {
		run.FinishedAt, err = time.Parse(timeLayout, finishedAt.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse finished_at for run %s: %w", run.ID, err)
		}
	}
	return &run, nil
}
