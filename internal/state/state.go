// Package state persists the set of pipeline stages that have been consumed
// within a job. The boundary-finding step must run at most once per job; the
// guard is an explicit completed-stages set kept in a SQLite file under the
// data directory where the rest of the pipeline's filesystem handoff lives.
package state

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// StageBoundaryFinding is the upstream step that determines which commits mark
// the start of a CI failure streak. Its output is consumed exactly once.
const StageBoundaryFinding = "boundary-finding"

// ErrAlreadyConsumed is returned when a one-shot stage is marked a second time.
var ErrAlreadyConsumed = errors.New("stage already consumed")

// Record is one consumed stage.
type Record struct {
	Stage      string
	ConsumedAt time.Time
}

// Store is a completed-stages set backed by a SQLite file.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the state database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening state db %s: %w", path, err)
	}

	const schema = `CREATE TABLE IF NOT EXISTS consumed_stages (
		stage TEXT PRIMARY KEY,
		consumed_at TEXT NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing state db: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// MarkConsumed records that a one-shot stage has run. Marking an
// already-consumed stage returns ErrAlreadyConsumed.
func (s *Store) MarkConsumed(stage string) error {
	res, err := s.db.Exec(
		`INSERT OR IGNORE INTO consumed_stages (stage, consumed_at) VALUES (?, ?)`,
		stage, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("marking stage %q consumed: %w", stage, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("marking stage %q consumed: %w", stage, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrAlreadyConsumed, stage)
	}
	return nil
}

// Consumed reports whether a stage has been marked consumed.
func (s *Store) Consumed(stage string) (bool, error) {
	var one int
	err := s.db.QueryRow(
		`SELECT 1 FROM consumed_stages WHERE stage = ?`, stage,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("querying stage %q: %w", stage, err)
	}
	return true, nil
}

// List returns all consumed stages in insertion order.
func (s *Store) List() ([]Record, error) {
	rows, err := s.db.Query(
		`SELECT stage, consumed_at FROM consumed_stages ORDER BY rowid`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing consumed stages: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var ts string
		if err := rows.Scan(&rec.Stage, &ts); err != nil {
			return nil, fmt.Errorf("scanning consumed stage: %w", err)
		}
		rec.ConsumedAt, _ = time.Parse(time.RFC3339, ts)
		records = append(records, rec)
	}
	return records, rows.Err()
}
