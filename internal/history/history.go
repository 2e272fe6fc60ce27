// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history records completed runs and their per-file outcomes in a
// SQLite database so earlier runs can be listed and inspected.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/parse-files/pkg/types"
)

const defaultLimit = 20

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store manages the history database.
type Store struct {
	db   *sql.DB
	path string
}

// RunRecord is one row of the runs table.
type RunRecord struct {
	RunID      string    `json:"run_id"`
	APIURL     string    `json:"api_url"`
	InputDir   string    `json:"input_dir"`
	OutputDir  string    `json:"output_dir"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
}

// Total returns the number of files attempted in the run.
func (r RunRecord) Total() int {
	return r.Succeeded + r.Failed
}

// Open opens or creates the database at path and ensures the schema exists.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			api_url TEXT NOT NULL,
			input_dir TEXT NOT NULL,
			output_dir TEXT NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			succeeded INTEGER NOT NULL,
			failed INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS files (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			path TEXT NOT NULL,
			rel_path TEXT NOT NULL,
			status TEXT NOT NULL,
			http_status INTEGER,
			error TEXT,
			json_path TEXT,
			markdown_path TEXT,
			duration_ms INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_files_run_id ON files(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record stores a finished run and its file outcomes in one transaction.
func (s *Store) Record(ctx context.Context, summary types.RunSummary) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, api_url, input_dir, output_dir, started_at, finished_at, succeeded, failed)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		summary.RunID, summary.APIURL, summary.InputDir, summary.OutputDir,
		formatTime(summary.StartedAt), formatTime(summary.FinishedAt),
		summary.Succeeded, summary.Failed,
	)
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", summary.RunID, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO files (run_id, seq, path, rel_path, status, http_status, error, json_path, markdown_path, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, f := range summary.Files {
		_, err := stmt.ExecContext(ctx,
			summary.RunID, i, f.Path, f.RelPath, string(f.Status), f.HTTPStatus,
			f.Error, f.JSONPath, f.MarkdownPath, f.Duration.Milliseconds(),
		)
		if err != nil {
			return fmt.Errorf("inserting file %s: %w", f.RelPath, err)
		}
	}

	return tx.Commit()
}

// Runs returns the most recent runs, newest first. A non-positive limit
// uses the default of 20.
func (s *Store) Runs(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = defaultLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, api_url, input_dir, output_dir, started_at, finished_at, succeeded, failed
		 FROM runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var r RunRecord
		var started, finished string
		if err := rows.Scan(&r.RunID, &r.APIURL, &r.InputDir, &r.OutputDir,
			&started, &finished, &r.Succeeded, &r.Failed); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.StartedAt = parseTime(started)
		r.FinishedAt = parseTime(finished)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Files returns the recorded outcomes of one run in processing order.
func (s *Store) Files(ctx context.Context, runID string) ([]types.FileOutcome, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT path, rel_path, status, http_status, error, json_path, markdown_path, duration_ms
		 FROM files WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying files for run %s: %w", runID, err)
	}
	defer rows.Close()

	var files []types.FileOutcome
	for rows.Next() {
		var f types.FileOutcome
		var status string
		var errMsg, jsonPath, mdPath sql.NullString
		var httpStatus, durationMS sql.NullInt64
		if err := rows.Scan(&f.Path, &f.RelPath, &status, &httpStatus, &errMsg,
			&jsonPath, &mdPath, &durationMS); err != nil {
			return nil, fmt.Errorf("scanning file: %w", err)
		}
		f.Status = types.FileStatus(status)
		f.HTTPStatus = int(httpStatus.Int64)
		f.Error = errMsg.String
		f.JSONPath = jsonPath.String
		f.MarkdownPath = mdPath.String
		f.Duration = time.Duration(durationMS.Int64) * time.Millisecond
		files = append(files, f)
	}
	return files, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
