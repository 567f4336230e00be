// Package store persists pipeline run records and stabilization
// trajectories in a SQLite database.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/recastvideo/recast/internal/pipeline"
	"github.com/recastvideo/recast/internal/timeutil"
	"github.com/recastvideo/recast/internal/video"
)

// clock is swapped for a mock in tests so retry backoff does not sleep.
var clock timeutil.Clock = timeutil.RealClock{}

// Store wraps a SQLite database holding run and trajectory records.
// It satisfies pipeline.RunStore.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies any pending
// migrations. Use ":memory:" for an in-memory database in tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}

	// Single writer with WAL keeps concurrent readers from blocking;
	// the busy timeout covers the brief lock window on commit.
	if _, err := db.Exec(`PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000; PRAGMA foreign_keys=ON;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting pragmas: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for ad-hoc queries.
func (s *Store) DB() *sql.DB { return s.db }

// InsertRun creates a row for a run that has just started.
func (s *Store) InsertRun(rec *pipeline.RunRecord) error {
	timings, err := json.Marshal(rec.Timings)
	if err != nil {
		return fmt.Errorf("marshalling timings: %w", err)
	}
	err = retryOnBusy(func() error {
		_, err := s.db.Exec(`
			INSERT INTO runs (
				run_id, source, status, total_frames, degraded_frames,
				timings_json, error, started_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.RunID,
			nullStr(rec.Source),
			string(rec.Status),
			rec.TotalFrames,
			rec.DegradedFrames,
			string(timings),
			nullStr(rec.Error),
			rec.StartedAt.UTC().Format(time.RFC3339),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", rec.RunID, err)
	}
	return nil
}

// UpdateRun rewrites the mutable fields of an existing run row.
func (s *Store) UpdateRun(rec *pipeline.RunRecord) error {
	timings, err := json.Marshal(rec.Timings)
	if err != nil {
		return fmt.Errorf("marshalling timings: %w", err)
	}
	var completedAt *string
	if rec.CompletedAt != nil {
		v := rec.CompletedAt.UTC().Format(time.RFC3339)
		completedAt = &v
	}
	err = retryOnBusy(func() error {
		res, err := s.db.Exec(`
			UPDATE runs
			SET status = ?, degraded_frames = ?, timings_json = ?,
			    error = ?, completed_at = ?
			WHERE run_id = ?`,
			string(rec.Status),
			rec.DegradedFrames,
			string(timings),
			nullStr(rec.Error),
			completedAt,
			rec.RunID,
		)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return fmt.Errorf("run %s not found", rec.RunID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("updating run %s: %w", rec.RunID, err)
	}
	return nil
}

// GetRun loads a single run record by ID.
func (s *Store) GetRun(runID string) (*pipeline.RunRecord, error) {
	row := s.db.QueryRow(`
		SELECT run_id, source, status, total_frames, degraded_frames,
		       timings_json, error, started_at, completed_at
		FROM runs WHERE run_id = ?`, runID)
	rec, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %s not found", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("loading run %s: %w", runID, err)
	}
	return rec, nil
}

// ListRuns returns up to limit runs ordered newest first. A limit of 0
// means no limit.
func (s *Store) ListRuns(limit int) ([]*pipeline.RunRecord, error) {
	query := `
		SELECT run_id, source, status, total_frames, degraded_frames,
		       timings_json, error, started_at, completed_at
		FROM runs ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var out []*pipeline.RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning run row: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// SaveTrajectory stores one transform row per frame for the given run,
// replacing any previous trajectory for that run.
func (s *Store) SaveTrajectory(runID string, tr video.Trajectory) error {
	return retryOnBusy(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		if _, err := tx.Exec(`DELETE FROM trajectories WHERE run_id = ?`, runID); err != nil {
			return fmt.Errorf("clearing trajectory for %s: %w", runID, err)
		}
		stmt, err := tx.Prepare(`INSERT INTO trajectories (run_id, frame_idx, transform) VALUES (?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, t := range tr {
			buf, err := json.Marshal(t)
			if err != nil {
				return fmt.Errorf("marshalling transform %d: %w", i, err)
			}
			if _, err := stmt.Exec(runID, i, string(buf)); err != nil {
				return fmt.Errorf("inserting transform %d: %w", i, err)
			}
		}
		return tx.Commit()
	})
}

// LoadTrajectory reads back the trajectory saved for a run, ordered by
// frame index.
func (s *Store) LoadTrajectory(runID string) (video.Trajectory, error) {
	rows, err := s.db.Query(`
		SELECT transform FROM trajectories
		WHERE run_id = ? ORDER BY frame_idx ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("loading trajectory for %s: %w", runID, err)
	}
	defer rows.Close()

	var tr video.Trajectory
	for rows.Next() {
		var buf string
		if err := rows.Scan(&buf); err != nil {
			return nil, fmt.Errorf("scanning transform row: %w", err)
		}
		var t video.Transform
		if err := json.Unmarshal([]byte(buf), &t); err != nil {
			return nil, fmt.Errorf("unmarshalling transform: %w", err)
		}
		tr = append(tr, t)
	}
	return tr, rows.Err()
}

// scanner covers both sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*pipeline.RunRecord, error) {
	var rec pipeline.RunRecord
	var source, timings, errMsg, completedAt sql.NullString
	var status, startedAt string
	err := row.Scan(
		&rec.RunID, &source, &status, &rec.TotalFrames, &rec.DegradedFrames,
		&timings, &errMsg, &startedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.Source = source.String
	rec.Status = pipeline.RunStatus(status)
	rec.Error = errMsg.String
	if timings.Valid && timings.String != "" {
		if err := json.Unmarshal([]byte(timings.String), &rec.Timings); err != nil {
			return nil, fmt.Errorf("unmarshalling timings: %w", err)
		}
	}
	rec.StartedAt, err = time.Parse(time.RFC3339, startedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing started_at: %w", err)
	}
	if completedAt.Valid {
		ts, err := time.Parse(time.RFC3339, completedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parsing completed_at: %w", err)
		}
		rec.CompletedAt = &ts
	}
	return &rec, nil
}

const maxBusyRetries = 5

// retryOnBusy retries fn with exponential backoff while it returns a
// SQLITE_BUSY error. Other errors fail immediately.
func retryOnBusy(fn func() error) error {
	var err error
	delay := 10 * time.Millisecond
	for attempt := 0; attempt < maxBusyRetries; attempt++ {
		if attempt > 0 {
			clock.Sleep(delay)
			delay *= 2
		}
		err = fn()
		if err == nil || !isSQLiteBusy(err) {
			return err
		}
	}
	return fmt.Errorf("database busy after %d attempts: %w", maxBusyRetries, err)
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func nullStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
