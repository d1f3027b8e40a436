// Package registry persists generation-run lifecycle records. It enforces
// the single-RUNNING-run-per-experiment guard inside one transaction so two
// concurrent start requests cannot both observe "no active run".
package registry

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

type Status string

const (
	StatusRunning   Status = "RUNNING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
	StatusAborted   Status = "ABORTED"
)

// Run is one generation run record. COMPLETED and FAILED are terminal and
// carry a completion timestamp plus either a row-count summary or an error.
type Run struct {
	ID          string         `json:"id"`
	Experiment  string         `json:"experiment"`
	Status      Status         `json:"status"`
	Seed        int64          `json:"seed"`
	StartedAt   time.Time      `json:"started_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	RowCounts   map[string]int `json:"row_counts,omitempty"`
	Error       string         `json:"error,omitempty"`
}

// ErrRunActive is returned by Start when the experiment already has a
// RUNNING run. It is distinct from generation errors so callers can choose
// to wait and retry instead of treating it as a permanent failure.
type ErrRunActive struct {
	RunID     string
	StartedAt time.Time
}

func (e *ErrRunActive) Error() string {
	return fmt.Sprintf("experiment already has an active generation run %s (started %s)",
		e.RunID, e.StartedAt.Format(time.RFC3339))
}

type Registry struct {
	db *sql.DB
}

// Open opens (creating if needed) the registry database. The immediate
// transaction lock mode makes the read-then-insert in Start atomic across
// processes.
func Open(path string) (*Registry, error) {
	dsn := fmt.Sprintf("file:%s?_txlock=immediate&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open run registry: %w", err)
	}

	const ddl = `CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		experiment TEXT NOT NULL,
		status TEXT NOT NULL,
		seed INTEGER NOT NULL,
		started_at TIMESTAMP NOT NULL,
		completed_at TIMESTAMP,
		row_counts TEXT,
		error TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_runs_experiment ON runs(experiment, status);`

	if _, err := db.Exec(ddl); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize run registry schema: %w", err)
	}

	return &Registry{db: db}, nil
}

func (r *Registry) Close() error {
	return r.db.Close()
}

// Start records a new RUNNING run for the experiment. The existing-run check
// and the insert happen in one transaction; a concurrent starter sees either
// the committed RUNNING row or the lock, never a gap.
func (r *Registry) Start(ctx context.Context, experiment string, seed int64) (*Run, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin registry transaction: %w", err)
	}
	defer tx.Rollback()

	var existingID string
	var existingStart time.Time
	err = tx.QueryRowContext(ctx,
		`SELECT id, started_at FROM runs WHERE experiment = ? AND status = ? LIMIT 1`,
		experiment, StatusRunning).Scan(&existingID, &existingStart)
	switch {
	case err == nil:
		return nil, &ErrRunActive{RunID: existingID, StartedAt: existingStart}
	case !errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("failed to check for active runs: %w", err)
	}

	run := &Run{
		ID:         uuid.NewString(),
		Experiment: experiment,
		Status:     StatusRunning,
		Seed:       seed,
		StartedAt:  time.Now().UTC(),
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, experiment, status, seed, started_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.Experiment, run.Status, run.Seed, run.StartedAt); err != nil {
		return nil, fmt.Errorf("failed to record run start: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit run start: %w", err)
	}
	return run, nil
}

// Complete marks a RUNNING run COMPLETED with its per-table row counts.
func (r *Registry) Complete(ctx context.Context, id string, rowCounts map[string]int) error {
	counts, err := json.Marshal(rowCounts)
	if err != nil {
		return fmt.Errorf("failed to encode row counts: %w", err)
	}
	return r.finish(ctx, id, StatusCompleted, string(counts), "")
}

// Fail marks a RUNNING run FAILED with full diagnostic detail.
func (r *Registry) Fail(ctx context.Context, id, detail string) error {
	return r.finish(ctx, id, StatusFailed, "", detail)
}

// Abort marks a RUNNING run ABORTED. Used both by cooperative cancellation
// and by out-of-band reconciliation of runs whose process died.
func (r *Registry) Abort(ctx context.Context, id string) error {
	return r.finish(ctx, id, StatusAborted, "", "")
}

func (r *Registry) finish(ctx context.Context, id string, status Status, rowCounts, errText string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, completed_at = ?, row_counts = NULLIF(?, ''), error = NULLIF(?, '')
		 WHERE id = ? AND status = ?`,
		status, time.Now().UTC(), rowCounts, errText, id, StatusRunning)
	if err != nil {
		return fmt.Errorf("failed to mark run %s %s: %w", id, status, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to verify run transition: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("run %s is not RUNNING; lifecycle transitions are one-way", id)
	}
	return nil
}

func (r *Registry) Get(ctx context.Context, id string) (*Run, error) {
	run, err := scanRun(r.db.QueryRowContext(ctx,
		`SELECT id, experiment, status, seed, started_at, completed_at, row_counts, error
		 FROM runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s not found", id)
	}
	return run, err
}

// List returns runs newest first, optionally filtered by experiment.
func (r *Registry) List(ctx context.Context, experiment string) ([]*Run, error) {
	query := `SELECT id, experiment, status, seed, started_at, completed_at, row_counts, error
		 FROM runs`
	var args []any
	if experiment != "" {
		query += ` WHERE experiment = ?`
		args = append(args, experiment)
	}
	query += ` ORDER BY started_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*Run, error) {
	var run Run
	var completedAt sql.NullTime
	var rowCounts, errText sql.NullString

	if err := row.Scan(&run.ID, &run.Experiment, &run.Status, &run.Seed,
		&run.StartedAt, &completedAt, &rowCounts, &errText); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan run record: %w", err)
	}

	if completedAt.Valid {
		t := completedAt.Time
		run.CompletedAt = &t
	}
	if rowCounts.Valid && rowCounts.String != "" {
		if err := json.Unmarshal([]byte(rowCounts.String), &run.RowCounts); err != nil {
			return nil, fmt.Errorf("failed to decode row counts for run %s: %w", run.ID, err)
		}
	}
	if errText.Valid {
		run.Error = errText.String
	}
	return &run, nil
}
