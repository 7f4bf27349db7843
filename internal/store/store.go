// Package store persists entrain run traces to SQLite: one row per
// step round plus one row per executed broker action. The write side
// implements engine.Recorder; the read side reconstructs a run's trace
// for inspection and replay-style comparison.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/entrainlab/entrain/internal/engine"
)

//go:embed schema.sql
var schemaSQL string

// Store provides durable storage for run traces.
// Uses SQLite with WAL mode for concurrent read access.
type Store struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and the schema automatically.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
//
// This function is idempotent - safe to call multiple times.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Run is the write handle for one simulation run. It implements
// engine.Recorder: attach it to a scheduler with engine.WithRecorder.
type Run struct {
	store *Store
	id    int64
	seq   int64
}

// BeginRun registers a named run and returns its write handle.
func (s *Store) BeginRun(ctx context.Context, name string) (*Run, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO runs (name) VALUES (?)`, name)
	if err != nil {
		return nil, fmt.Errorf("failed to insert run %q: %w", name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read run id: %w", err)
	}
	return &Run{store: s, id: id}, nil
}

// ID returns the run's database id.
func (r *Run) ID() int64 { return r.id }

// RecordStep appends one step round and its executed actions.
func (r *Run) RecordStep(ctx context.Context, rec engine.StepRecord) error {
	advanced, err := json.Marshal(rec.Advanced)
	if err != nil {
		return fmt.Errorf("failed to encode advanced set: %w", err)
	}

	tx, err := r.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin step transaction: %w", err)
	}
	defer tx.Rollback()

	r.seq++
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO steps (run_id, seq, frontier, advanced) VALUES (?, ?, ?, ?)`,
		r.id, r.seq, rec.Frontier, string(advanced),
	); err != nil {
		return fmt.Errorf("failed to insert step %d: %w", r.seq, err)
	}

	ord := 0
	insert := func(queue string, entries []engine.LogEntry) error {
		for _, e := range entries {
			var result sql.NullString
			if e.Result != nil {
				result = sql.NullString{String: fmt.Sprintf("%v", e.Result), Valid: true}
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO actions (run_id, step_seq, ord, queue, action_id, at, result)
				 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				r.id, r.seq, ord, queue, e.ID, e.Time, result,
			); err != nil {
				return fmt.Errorf("failed to insert %s action %s: %w", queue, e.ID, err)
			}
			ord++
		}
		return nil
	}
	if err := insert("immediate", rec.Immediates); err != nil {
		return err
	}
	if err := insert("future", rec.Futures); err != nil {
		return err
	}
	if err := insert("control", rec.Controls); err != nil {
		return err
	}
	return tx.Commit()
}

// StepRow is one persisted step round.
type StepRow struct {
	Seq      int64
	Frontier float64
	Advanced []string
}

// ActionRow is one persisted action execution.
type ActionRow struct {
	StepSeq  int64
	Queue    string
	ActionID string
	At       float64
	Result   string
}

// Steps returns a run's step rounds in order.
func (s *Store) Steps(ctx context.Context, runID int64) ([]StepRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, frontier, advanced FROM steps WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query steps: %w", err)
	}
	defer rows.Close()

	var out []StepRow
	for rows.Next() {
		var row StepRow
		var advanced string
		if err := rows.Scan(&row.Seq, &row.Frontier, &advanced); err != nil {
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}
		if err := json.Unmarshal([]byte(advanced), &row.Advanced); err != nil {
			return nil, fmt.Errorf("failed to decode advanced set: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Actions returns a run's executed actions in execution order.
func (s *Store) Actions(ctx context.Context, runID int64) ([]ActionRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT step_seq, queue, action_id, at, COALESCE(result, '')
		 FROM actions WHERE run_id = ? ORDER BY step_seq, ord`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query actions: %w", err)
	}
	defer rows.Close()

	var out []ActionRow
	for rows.Next() {
		var row ActionRow
		if err := rows.Scan(&row.StepSeq, &row.Queue, &row.ActionID, &row.At, &row.Result); err != nil {
			return nil, fmt.Errorf("failed to scan action: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
