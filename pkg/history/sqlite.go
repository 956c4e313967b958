// Package history persists optimization run records to SQLite. It implements
// optimizer.RunStore; persistence failures are reported to the caller but the
// optimizer treats them as non-fatal.
package history

import (
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/evolvekit/revolve/pkg/errors"
	"github.com/evolvekit/revolve/pkg/optimizer"
)

const schema = `
CREATE TABLE IF NOT EXISTS generations (
	run_id     TEXT NOT NULL,
	generation INTEGER NOT NULL,
	record     TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	PRIMARY KEY (run_id, generation)
);
CREATE TABLE IF NOT EXISTS results (
	run_id     TEXT PRIMARY KEY,
	status     TEXT NOT NULL,
	best_score REAL NOT NULL,
	result     TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_results_status ON results(status);
`

// SQLiteStore is a RunStore backed by a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// Open creates or opens the run-history database at path.
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, errors.Unknown, "failed to open run-history database")
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.Unknown, "failed to enable WAL mode")
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.Unknown, "failed to initialize run-history schema")
	}

	return &SQLiteStore{db: db}, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveGeneration upserts one generation record for a run.
func (s *SQLiteStore) SaveGeneration(runID string, record optimizer.GenerationRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return errors.Wrap(err, errors.InvalidInput, "failed to encode generation record")
	}

	_, err = s.db.Exec(
		`INSERT INTO generations (run_id, generation, record, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(run_id, generation) DO UPDATE SET record = excluded.record`,
		runID, record.Generation, string(payload), time.Now().UTC())
	if err != nil {
		return errors.Wrap(err, errors.Unknown, "failed to persist generation record")
	}
	return nil
}

// SaveResult upserts the final result of a run.
func (s *SQLiteStore) SaveResult(runID string, result *optimizer.OptimizationResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return errors.Wrap(err, errors.InvalidInput, "failed to encode optimization result")
	}

	_, err = s.db.Exec(
		`INSERT INTO results (run_id, status, best_score, result, created_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(run_id) DO UPDATE SET
			status = excluded.status,
			best_score = excluded.best_score,
			result = excluded.result`,
		runID, result.Metadata.ImplementationStatus, result.BestScoreValue, string(payload), time.Now().UTC())
	if err != nil {
		return errors.Wrap(err, errors.Unknown, "failed to persist optimization result")
	}
	return nil
}

// LoadResult returns a previously stored result, or a NotFound-style error
// when the run is unknown.
func (s *SQLiteStore) LoadResult(runID string) (*optimizer.OptimizationResult, error) {
	var payload string
	err := s.db.QueryRow(`SELECT result FROM results WHERE run_id = ?`, runID).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, errors.WithFields(
			errors.New(errors.InvalidInput, "unknown run"),
			errors.Fields{"run_id": runID})
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.Unknown, "failed to load optimization result")
	}

	var result optimizer.OptimizationResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, errors.Wrap(err, errors.Unknown, "failed to decode stored result")
	}
	return &result, nil
}

// LoadGenerations returns a run's generation records in order.
func (s *SQLiteStore) LoadGenerations(runID string) ([]optimizer.GenerationRecord, error) {
	rows, err := s.db.Query(
		`SELECT record FROM generations WHERE run_id = ? ORDER BY generation`, runID)
	if err != nil {
		return nil, errors.Wrap(err, errors.Unknown, "failed to load generation records")
	}
	defer rows.Close()

	var records []optimizer.GenerationRecord
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, errors.Wrap(err, errors.Unknown, "failed to scan generation record")
		}
		var record optimizer.GenerationRecord
		if err := json.Unmarshal([]byte(payload), &record); err != nil {
			return nil, errors.Wrap(err, errors.Unknown, "failed to decode generation record")
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// ListRuns returns run ids with their status, most recent first.
func (s *SQLiteStore) ListRuns() ([]RunSummary, error) {
	rows, err := s.db.Query(
		`SELECT run_id, status, best_score, created_at FROM results ORDER BY created_at DESC`)
	if err != nil {
		return nil, errors.Wrap(err, errors.Unknown, "failed to list runs")
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var run RunSummary
		if err := rows.Scan(&run.RunID, &run.Status, &run.BestScore, &run.CreatedAt); err != nil {
			return nil, errors.Wrap(err, errors.Unknown, "failed to scan run summary")
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// RunSummary is one row of the run listing.
type RunSummary struct {
	RunID     string    `json:"run_id"`
	Status    string    `json:"status"`
	BestScore float64   `json:"best_score"`
	CreatedAt time.Time `json:"created_at"`
}
