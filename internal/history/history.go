// Package history records analysis runs in a local sqlite database.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ges-coastal/coastal-monitor/internal/pipeline"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

var ErrRunNotFound = errors.New("history: run not found")

type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

type Run struct {
	ID         uuid.UUID
	Country    string
	Start      string
	End        string
	Params     pipeline.Params
	Status     Status
	ErrorKind  string
	Error      string
	Outputs    []string
	CreatedAt  time.Time
	FinishedAt *time.Time
}

type DB struct {
	sql *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return nil, fmt.Errorf("failed to create history folder: %w", err)
	}
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS runs (
  id          TEXT PRIMARY KEY,
  country     TEXT NOT NULL,
  start_date  TEXT NOT NULL,
  end_date    TEXT NOT NULL,
  params      TEXT NOT NULL,
  status      TEXT NOT NULL CHECK (status IN ('running','succeeded','failed')),
  error_kind  TEXT,
  error       TEXT,
  outputs     TEXT,
  created_at  DATETIME NOT NULL,
  finished_at DATETIME
);
CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
CREATE INDEX IF NOT EXISTS idx_runs_country ON runs(country, created_at);
	`); err != nil {
		db.Close()
		return nil, err
	}
	return &DB{sql: db}, nil
}

func (d *DB) Close() error {
	if d == nil || d.sql == nil {
		return nil
	}
	return d.sql.Close()
}

// Begin stores a new running run and returns its id.
func (d *DB) Begin(ctx context.Context, p pipeline.Params) (uuid.UUID, error) {
	params, err := json.Marshal(p)
	if err != nil {
		return uuid.Nil, err
	}
	id := uuid.New()
	_, err = d.sql.ExecContext(ctx, `INSERT INTO runs(id, country, start_date, end_date, params, status, created_at) VALUES(?,?,?,?,?,?,?)`,
		id.String(), p.Country, p.Start.Format(time.DateOnly), p.End.Format(time.DateOnly), string(params), StatusRunning, time.Now().UTC())
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to record run: %w", err)
	}
	return id, nil
}

func (d *DB) Succeed(ctx context.Context, id uuid.UUID, outputs []string) error {
	data, err := json.Marshal(outputs)
	if err != nil {
		return err
	}
	return d.finish(ctx, id, StatusSucceeded, sql.NullString{}, sql.NullString{}, sql.NullString{String: string(data), Valid: true})
}

// Fail marks the run failed with the pipeline kind of cause.
func (d *DB) Fail(ctx context.Context, id uuid.UUID, cause error) error {
	return d.finish(ctx, id, StatusFailed,
		sql.NullString{String: pipeline.KindOf(cause).String(), Valid: true},
		sql.NullString{String: cause.Error(), Valid: true},
		sql.NullString{})
}

func (d *DB) finish(ctx context.Context, id uuid.UUID, status Status, kind, msg, outputs sql.NullString) error {
	res, err := d.sql.ExecContext(ctx, `UPDATE runs SET status = ?, error_kind = ?, error = ?, outputs = ?, finished_at = ? WHERE id = ?`,
		status, kind, msg, outputs, time.Now().UTC(), id.String())
	if err != nil {
		return fmt.Errorf("failed to update run %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

const selectRuns = `SELECT id, country, start_date, end_date, params, status, error_kind, error, outputs, created_at, finished_at FROM runs`

func (d *DB) Get(ctx context.Context, id uuid.UUID) (Run, error) {
	rows, err := d.sql.QueryContext(ctx, selectRuns+` WHERE id = ?`, id.String())
	if err != nil {
		return Run{}, err
	}
	runs, err := scanRuns(rows)
	if err != nil {
		return Run{}, err
	}
	if len(runs) == 0 {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return runs[0], nil
}

// Recent returns the latest runs, newest first.
func (d *DB) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := d.sql.QueryContext(ctx, selectRuns+` ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	return scanRuns(rows)
}

func scanRuns(rows *sql.Rows) ([]Run, error) {
	defer rows.Close()
	var runs []Run
	for rows.Next() {
		var (
			r                  Run
			id, params, status string
			kind, msg, outputs sql.NullString
			finished           sql.NullTime
		)
		if err := rows.Scan(&id, &r.Country, &r.Start, &r.End, &params, &status, &kind, &msg, &outputs, &r.CreatedAt, &finished); err != nil {
			return nil, err
		}
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, err
		}
		r.ID = parsed
		r.Status = Status(status)
		r.ErrorKind = kind.String
		r.Error = msg.String
		if err := json.Unmarshal([]byte(params), &r.Params); err != nil {
			return nil, fmt.Errorf("bad params of run %s: %w", id, err)
		}
		if outputs.Valid {
			if err := json.Unmarshal([]byte(outputs.String), &r.Outputs); err != nil {
				return nil, fmt.Errorf("bad outputs of run %s: %w", id, err)
			}
		}
		if finished.Valid {
			t := finished.Time
			r.FinishedAt = &t
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
