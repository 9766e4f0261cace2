// Package journal keeps a local SQLite history of every tested board,
// independent of whether its report reached the collector.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/buckleypaul/jig/internal/pipeline"
)

// Entry is one recorded outcome.
type Entry struct {
	ID         int64
	BoardID    string
	Variant    string
	Verdict    string
	FailedStep string
	Steps      []pipeline.StepRecord
	StartedAt  time.Time
	EndedAt    time.Time
}

// Journal is an open history database.
type Journal struct {
	db   *sql.DB
	stmt *sql.Stmt
	path string
}

const schema = `CREATE TABLE IF NOT EXISTS outcomes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	board_id TEXT NOT NULL DEFAULT '',
	variant TEXT NOT NULL,
	verdict TEXT NOT NULL,
	failed_step TEXT NOT NULL DEFAULT '',
	steps TEXT NOT NULL,
	started_at TEXT NOT NULL,
	ended_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS outcomes_board_id ON outcomes(board_id);`

const insertOutcome = `INSERT INTO outcomes
	(board_id, variant, verdict, failed_step, steps, started_at, ended_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`

// Open opens or creates the database at path.
func Open(path string) (*Journal, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrapf(err, "journal: create dir %s failed", dir)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "journal: open sqlite database failed")
	}
	if err := configure(db); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "journal: init schema failed")
	}
	stmt, err := db.Prepare(insertOutcome)
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "journal: prepare insert failed")
	}
	return &Journal{db: db, stmt: stmt, path: path}, nil
}

func configure(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return errors.Wrapf(err, "journal: execute %s failed", pragma)
		}
	}
	db.SetMaxOpenConns(1)
	return nil
}

// Path returns the database file.
func (j *Journal) Path() string { return j.path }

// Record stores one outcome.
func (j *Journal) Record(ctx context.Context, variant string, o pipeline.Outcome) error {
	if j == nil || j.stmt == nil {
		return errors.New("journal: not open")
	}
	if o.Board == nil {
		return errors.New("journal: outcome has no board")
	}
	steps, err := json.Marshal(o.Board.Steps)
	if err != nil {
		return errors.Wrap(err, "journal: encode steps failed")
	}
	_, err = j.stmt.ExecContext(ctx,
		o.Board.Identity(),
		variant,
		o.Verdict.String(),
		firstFailed(o.Board),
		string(steps),
		o.Board.StartedAt.UTC().Format(time.RFC3339Nano),
		o.Board.EndedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return errors.Wrap(err, "journal: insert failed")
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := j.db.QueryContext(ctx, `SELECT id, board_id, variant, verdict, failed_step, steps, started_at, ended_at
		FROM outcomes ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "journal: query failed")
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e                 Entry
			steps             string
			started, finished string
		)
		if err := rows.Scan(&e.ID, &e.BoardID, &e.Variant, &e.Verdict, &e.FailedStep, &steps, &started, &finished); err != nil {
			return nil, errors.Wrap(err, "journal: scan failed")
		}
		if err := json.Unmarshal([]byte(steps), &e.Steps); err != nil {
			return nil, errors.Wrapf(err, "journal: decode steps of entry %d failed", e.ID)
		}
		e.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		e.EndedAt, _ = time.Parse(time.RFC3339Nano, finished)
		entries = append(entries, e)
	}
	return entries, errors.Wrap(rows.Err(), "journal: iterate rows failed")
}

// Close closes the database.
func (j *Journal) Close() error {
	if j == nil {
		return nil
	}
	if j.stmt != nil {
		j.stmt.Close()
	}
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}

func firstFailed(b *pipeline.Board) string {
	for _, s := range b.Steps {
		if s.Failed {
			return s.Step
		}
	}
	return ""
}
