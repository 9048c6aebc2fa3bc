/*
Package sqlite provides a SQLite-backed implementation of progress.Store.

PURPOSE:
  Persists projects, daily reports, attendance records, the latest computed
  summary per project and the recompute run log.

APPEND-ONLY ENFORCEMENT:
  Reports and attendance are field records:
  - No UPDATE statements on reports or attendance
  - No DELETE statements on reports or attendance (except Reset)
  - Corrections are new reports, never edits

KEY TABLES:
  projects:        Planned side of each project (tasks, estimations, roster)
  reports:         Daily crew reports, one row per report
  attendance:      Daily attendance records
  summaries:       Latest ProjectSummary per project
  recompute_runs:  Audit log of recompute attempts

STORAGE FORMAT:
  Each record is stored whole as JSON in a body column, next to the few
  columns the queries filter and order on (project, date). The engine always
  reads complete snapshots, so nothing is queried inside the bodies.

INDEXES:
  - idx_reports_project_date:    Date-ordered snapshot load (hot path)
  - idx_attendance_project_date: Same for attendance
  - idx_runs_started:            Newest-first run log

CONCURRENCY:
  Uses sync.RWMutex for thread-safety, plus a single connection so that
  ":memory:" databases are shared by every query.

USAGE:
  store, err := sqlite.New("./data/sitetrack.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  engine := progress.NewEngine(progress.DefaultHealthConfig(), 4)
  result, err := engine.RecomputeFrom(ctx, store, "prj-1")

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - progress/store.go: Interface definitions
  - progress/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/sitetrack/progress"
)

// Store implements progress.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ progress.Store = (*Store)(nil)

// timeLayout is fixed width so stored times sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Projects (planned side, replaced as a whole)
	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		body_json TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Reports (append-only)
	CREATE TABLE IF NOT EXISTS reports (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL REFERENCES projects(id),
		report_date TEXT NOT NULL,
		body_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_reports_project_date
		ON reports(project_id, report_date);

	-- Attendance (append-only)
	CREATE TABLE IF NOT EXISTS attendance (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL REFERENCES projects(id),
		attendance_date TEXT NOT NULL,
		body_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_attendance_project_date
		ON attendance(project_id, attendance_date);

	-- Latest summary per project
	CREATE TABLE IF NOT EXISTS summaries (
		project_id TEXT PRIMARY KEY REFERENCES projects(id),
		health TEXT NOT NULL,
		body_json TEXT NOT NULL,
		computed_at TEXT NOT NULL
	);

	-- Recompute run log
	CREATE TABLE IF NOT EXISTS recompute_runs (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		status TEXT NOT NULL,
		rejected INTEGER NOT NULL DEFAULT 0,
		health TEXT,
		error TEXT,
		started_at TEXT NOT NULL,
		completed_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started
		ON recompute_runs(started_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// PROJECTS
// =============================================================================

// SaveProject inserts or replaces a project.
func (s *Store) SaveProject(ctx context.Context, p progress.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode project %s: %w", p.ID, err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	query := `
		INSERT INTO projects (id, name, body_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			body_json = excluded.body_json,
			updated_at = excluded.updated_at
	`
	_, err = s.db.ExecContext(ctx, query, p.ID, p.Name, string(body), now, now)
	return err
}

// Project returns the project, or progress.ErrProjectNotFound.
func (s *Store) Project(ctx context.Context, id progress.ProjectID) (progress.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.project(ctx, id)
}

func (s *Store) project(ctx context.Context, id progress.ProjectID) (progress.Project, error) {
	var body string
	err := s.db.QueryRowContext(ctx, "SELECT body_json FROM projects WHERE id = ?", id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return progress.Project{}, progress.ErrProjectNotFound
	}
	if err != nil {
		return progress.Project{}, err
	}

	var p progress.Project
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		return progress.Project{}, fmt.Errorf("failed to decode project %s: %w", id, err)
	}
	return p, nil
}

// ListProjects returns projects in the order they were first saved.
func (s *Store) ListProjects(ctx context.Context) ([]progress.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return queryBodies[progress.Project](ctx, s.db, "SELECT body_json FROM projects ORDER BY rowid")
}

// =============================================================================
// FIELD RECORDS (append-only)
// =============================================================================

// AppendReport stores a report. Reusing a report id is rejected.
func (s *Store) AppendReport(ctx context.Context, r progress.ProjectReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode report %s: %w", r.ID, err)
	}

	query := `
		INSERT INTO reports (id, project_id, report_date, body_json, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		r.ID, r.ProjectID, r.Date.String(), string(body),
		time.Now().UTC().Format(time.RFC3339),
	)
	return mapInsertError(err, "report")
}

// AppendAttendance stores an attendance record. Reusing an id is rejected.
func (s *Store) AppendAttendance(ctx context.Context, a progress.ProjectAttendance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	body, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to encode attendance %s: %w", a.ID, err)
	}

	query := `
		INSERT INTO attendance (id, project_id, attendance_date, body_json, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		a.ID, a.ProjectID, a.Date.String(), string(body),
		time.Now().UTC().Format(time.RFC3339),
	)
	return mapInsertError(err, "attendance")
}

// Reports returns the project's reports ordered by date, then insertion.
func (s *Store) Reports(ctx context.Context, id progress.ProjectID) ([]progress.ProjectReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := s.project(ctx, id); err != nil {
		return nil, err
	}
	return queryBodies[progress.ProjectReport](ctx, s.db, `
		SELECT body_json FROM reports
		WHERE project_id = ?
		ORDER BY report_date ASC, rowid ASC
	`, id)
}

// Attendance returns the project's attendance ordered by date, then insertion.
func (s *Store) Attendance(ctx context.Context, id progress.ProjectID) ([]progress.ProjectAttendance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := s.project(ctx, id); err != nil {
		return nil, err
	}
	return queryBodies[progress.ProjectAttendance](ctx, s.db, `
		SELECT body_json FROM attendance
		WHERE project_id = ?
		ORDER BY attendance_date ASC, rowid ASC
	`, id)
}

// =============================================================================
// SUMMARIES
// =============================================================================

// SaveSummary replaces the stored summary of the project.
func (s *Store) SaveSummary(ctx context.Context, stored progress.StoredSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	body, err := json.Marshal(stored.Summary)
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}

	query := `
		INSERT INTO summaries (project_id, health, body_json, computed_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(project_id) DO UPDATE SET
			health = excluded.health,
			body_json = excluded.body_json,
			computed_at = excluded.computed_at
	`
	_, err = s.db.ExecContext(ctx, query,
		stored.Summary.ProjectID, string(stored.Summary.Health), string(body),
		stored.ComputedAt.UTC().Format(timeLayout),
	)
	if isForeignKeyError(err) {
		return progress.ErrProjectNotFound
	}
	return err
}

// LatestSummary returns the stored summary, or progress.ErrSummaryNotFound.
func (s *Store) LatestSummary(ctx context.Context, id progress.ProjectID) (progress.StoredSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var body, computedAt string
	err := s.db.QueryRowContext(ctx,
		"SELECT body_json, computed_at FROM summaries WHERE project_id = ?", id,
	).Scan(&body, &computedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return progress.StoredSummary{}, progress.ErrSummaryNotFound
	}
	if err != nil {
		return progress.StoredSummary{}, err
	}

	var stored progress.StoredSummary
	if err := json.Unmarshal([]byte(body), &stored.Summary); err != nil {
		return progress.StoredSummary{}, fmt.Errorf("failed to decode summary of %s: %w", id, err)
	}
	stored.ComputedAt, _ = time.Parse(timeLayout, computedAt)
	return stored, nil
}

// =============================================================================
// RECOMPUTE RUNS
// =============================================================================

// SaveRun appends a run to the log.
func (s *Store) SaveRun(ctx context.Context, run progress.RecomputeRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO recompute_runs
		(id, project_id, status, rejected, health, error, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		run.ID, run.ProjectID, run.Status, run.Rejected,
		nullString(string(run.Health)), nullString(run.Error),
		run.StartedAt.UTC().Format(timeLayout),
		run.CompletedAt.UTC().Format(timeLayout),
	)
	return mapInsertError(err, "run")
}

// ListRuns returns the newest runs first. limit <= 0 returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]progress.RecomputeRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, project_id, status, rejected, health, error, started_at, completed_at
		FROM recompute_runs
		ORDER BY started_at DESC, rowid DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []progress.RecomputeRun
	for rows.Next() {
		var run progress.RecomputeRun
		var health, errText sql.NullString
		var startedAt, completedAt string
		if err := rows.Scan(&run.ID, &run.ProjectID, &run.Status, &run.Rejected,
			&health, &errText, &startedAt, &completedAt); err != nil {
			return nil, err
		}
		run.Health = progress.Health(health.String)
		run.Error = errText.String
		run.StartedAt, _ = time.Parse(timeLayout, startedAt)
		run.CompletedAt, _ = time.Parse(timeLayout, completedAt)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Children first: reports, attendance and summaries reference projects.
	tables := []string{"summaries", "reports", "attendance", "recompute_runs", "projects"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// queryBodies decodes the single body_json column of every row.
func queryBodies[T any](ctx context.Context, db *sql.DB, query string, args ...any) ([]T, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	result := []T{}
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		var v T
		if err := json.Unmarshal([]byte(body), &v); err != nil {
			return nil, fmt.Errorf("failed to decode row: %w", err)
		}
		result = append(result, v)
	}
	return result, rows.Err()
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func mapInsertError(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case isUniqueConstraintError(err):
		return fmt.Errorf("%s: %w", what, progress.ErrDuplicateRecord)
	case isForeignKeyError(err):
		return fmt.Errorf("%s: %w", what, progress.ErrProjectNotFound)
	default:
		return fmt.Errorf("failed to insert %s: %w", what, err)
	}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "PRIMARY KEY constraint failed"))
}

func isForeignKeyError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
