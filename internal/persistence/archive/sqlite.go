// Package archive indexes batch runs in a sqlite database so results from
// different battles and settings can be compared later.
package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// timeLayout sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

type Archive struct {
	db *sql.DB
}

// Batch describes one invocation of a batch of runs.
type Batch struct {
	ID        string
	Battle    string
	Seed      int64
	Runs      int
	Settings  string
	StartedAt time.Time
}

// Run is the outcome of one run of a batch.
type Run struct {
	Index  int
	Seed   int64
	Status string
	Rounds int
	Eval   float64
	Err    string
}

// Summary aggregates the runs of a batch.
type Summary struct {
	Runs       int
	Friendly   int
	Enemy      int
	Unfinished int
	Failed     int
	AvgRounds  float64
}

// WinRate is the share of runs the friendly side won.
func (s Summary) WinRate() float64 {
	if s.Runs == 0 {
		return 0
	}
	return float64(s.Friendly) / float64(s.Runs)
}

func Open(path string) (*Archive, error) {
	if path == "" {
		return nil, errors.New("empty archive path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Archive{db: db}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS batches (
			id TEXT PRIMARY KEY,
			battle TEXT NOT NULL,
			seed INTEGER NOT NULL,
			runs INTEGER NOT NULL,
			settings TEXT NOT NULL,
			started_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS runs (
			batch_id TEXT NOT NULL REFERENCES batches(id),
			run INTEGER NOT NULL,
			seed INTEGER NOT NULL,
			status TEXT NOT NULL,
			rounds INTEGER NOT NULL,
			eval REAL NOT NULL,
			error TEXT,
			PRIMARY KEY (batch_id, run)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(batch_id, status);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return fmt.Errorf("archive schema: %w", err)
		}
	}
	return nil
}

func (a *Archive) Close() error { return a.db.Close() }

// NewBatch records a batch and returns it with a fresh id.
func (a *Archive) NewBatch(ctx context.Context, battle string, seed int64, runs int, settings string) (Batch, error) {
	b := Batch{
		ID:        uuid.NewString(),
		Battle:    battle,
		Seed:      seed,
		Runs:      runs,
		Settings:  settings,
		StartedAt: time.Now().UTC(),
	}
	_, err := a.db.ExecContext(ctx,
		`INSERT INTO batches(id, battle, seed, runs, settings, started_at) VALUES(?, ?, ?, ?, ?, ?)`,
		b.ID, b.Battle, b.Seed, b.Runs, b.Settings, b.StartedAt.Format(timeLayout))
	if err != nil {
		return b, fmt.Errorf("archive batch: %w", err)
	}
	return b, nil
}

func (a *Archive) RecordRun(ctx context.Context, batchID string, r Run) error {
	var errText sql.NullString
	if r.Err != "" {
		errText = sql.NullString{String: r.Err, Valid: true}
	}
	_, err := a.db.ExecContext(ctx,
		`INSERT INTO runs(batch_id, run, seed, status, rounds, eval, error) VALUES(?, ?, ?, ?, ?, ?, ?)`,
		batchID, r.Index, r.Seed, r.Status, r.Rounds, r.Eval, errText)
	if err != nil {
		return fmt.Errorf("archive run %d: %w", r.Index, err)
	}
	return nil
}

func (a *Archive) Runs(ctx context.Context, batchID string) ([]Run, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT run, seed, status, rounds, eval, error FROM runs WHERE batch_id = ? ORDER BY run`, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var errText sql.NullString
		if err := rows.Scan(&r.Index, &r.Seed, &r.Status, &r.Rounds, &r.Eval, &errText); err != nil {
			return nil, err
		}
		r.Err = errText.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// Summarize aggregates a batch by final status.
func (a *Archive) Summarize(ctx context.Context, batchID string) (Summary, error) {
	var s Summary
	var avg sql.NullFloat64
	row := a.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(status = 'friendly_victory'), 0),
			COALESCE(SUM(status = 'enemy_victory'), 0),
			COALESCE(SUM(status = 'round_end' OR status = 'continue'), 0),
			COALESCE(SUM(status = 'error' OR status = 'unsupported'), 0),
			AVG(rounds)
		FROM runs WHERE batch_id = ?`, batchID)
	if err := row.Scan(&s.Runs, &s.Friendly, &s.Enemy, &s.Unfinished, &s.Failed, &avg); err != nil {
		return s, err
	}
	s.AvgRounds = avg.Float64
	return s, nil
}

// Batches lists recorded batches, newest first.
func (a *Archive) Batches(ctx context.Context) ([]Batch, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT id, battle, seed, runs, settings, started_at FROM batches ORDER BY started_at DESC, rowid DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Batch
	for rows.Next() {
		var b Batch
		var started string
		if err := rows.Scan(&b.ID, &b.Battle, &b.Seed, &b.Runs, &b.Settings, &started); err != nil {
			return nil, err
		}
		b.StartedAt, _ = time.Parse(timeLayout, started)
		out = append(out, b)
	}
	return out, rows.Err()
}
