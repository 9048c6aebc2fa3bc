/*
store.go - Persistence interface for projects, reports and attendance

PURPOSE:
  Defines the boundary between the engine and the database. The engine only
  reads (Source); ingestion and the API write through Store.

APPEND-ONLY RECORDS:
  Reports and attendance are field records. A correction is a new report on
  a later day, never an edit, so the Store has no update or delete for them.
  Reusing a record id is rejected with ErrDuplicateRecord.

ORDERING:
  Reports and Attendance return records ordered by date (insertion order
  among equal dates), which is the order Recompute expects.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite
  - progress/store/memory.go: In-memory for tests and the demo server

SEE ALSO:
  - engine.go: RecomputeFrom reads a Source
*/
package progress

import (
	"context"
	"time"
)

// Source is the read side used by the engine.
type Source interface {
	// Project returns the project snapshot, or ErrProjectNotFound.
	Project(ctx context.Context, id ProjectID) (Project, error)

	// Reports returns the project's reports ordered by date.
	Reports(ctx context.Context, id ProjectID) ([]ProjectReport, error)

	// Attendance returns the project's attendance records ordered by date.
	Attendance(ctx context.Context, id ProjectID) ([]ProjectAttendance, error)
}

// Store persists projects, field records and computed summaries.
type Store interface {
	Source

	// SaveProject inserts or replaces the planned side of a project.
	SaveProject(ctx context.Context, p Project) error
	ListProjects(ctx context.Context) ([]Project, error)

	AppendReport(ctx context.Context, r ProjectReport) error
	AppendAttendance(ctx context.Context, a ProjectAttendance) error

	// SaveSummary keeps the latest summary per project.
	SaveSummary(ctx context.Context, s StoredSummary) error
	LatestSummary(ctx context.Context, id ProjectID) (StoredSummary, error)

	// SaveRun records one recompute attempt; ListRuns returns the newest first.
	SaveRun(ctx context.Context, run RecomputeRun) error
	ListRuns(ctx context.Context, limit int) ([]RecomputeRun, error)

	// Reset removes everything. Used by demo scenarios.
	Reset(ctx context.Context) error
}

type RunStatus string

const (
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// RecomputeRun is the audit record of one scheduled or requested recompute.
type RecomputeRun struct {
	ID          string    `json:"id"`
	ProjectID   ProjectID `json:"project_id"`
	Status      RunStatus `json:"status"`
	Rejected    int       `json:"rejected"`
	Health      Health    `json:"health,omitempty"`
	Error       string    `json:"error,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}

// StoredSummary is a summary with the time it was computed.
type StoredSummary struct {
	Summary    ProjectSummary `json:"summary"`
	ComputedAt time.Time      `json:"computed_at"`
}
