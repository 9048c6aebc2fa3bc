/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Request bodies reuse the
  factory documents (the same shape as project files), so a field app and a
  site office file speak one format. Responses wrap engine outputs.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Projects:
    ProjectListItemDTO, CreateProjectResponse

  Records:
    factory.ReportDocument, factory.AttendanceDocument (requests)

  Summaries:
    SummaryResponse, StoredSummaryResponse, RejectionDTO

  Scenarios:
    ScenarioDTO, LoadScenarioRequest

VALIDATION:
  Validation is done by the engine, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/document.go: Request document types
*/
package api

import (
	"time"

	"github.com/warp/sitetrack/progress"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// ProjectListItemDTO is a project row in listings.
type ProjectListItemDTO struct {
	ID     progress.ProjectID `json:"id"`
	Name   string             `json:"name"`
	Tasks  int                `json:"tasks"`
	Groups int                `json:"groups"`
	Users  int                `json:"users"`
}

// CreateProjectResponse reports what a project document created.
type CreateProjectResponse struct {
	Project    progress.Project `json:"project"`
	Reports    int              `json:"reports"`
	Attendance int              `json:"attendance"`
	Rejected   []RejectionDTO   `json:"rejected"`
}

// RejectionDTO is a rejected record with the reason.
type RejectionDTO struct {
	Kind         progress.ErrorKind    `json:"kind"`
	Message      string                `json:"message"`
	ReportID     progress.ReportID     `json:"report_id,omitempty"`
	TaskID       progress.TaskID       `json:"task_id,omitempty"`
	AttendanceID progress.AttendanceID `json:"attendance_id,omitempty"`
	Date         string                `json:"date,omitempty"`
	Detail       string                `json:"detail,omitempty"`
}

// SummaryResponse is a fresh recompute.
type SummaryResponse struct {
	Summary    progress.ProjectSummary `json:"summary"`
	Rejected   []RejectionDTO          `json:"rejected"`
	ComputedAt string                  `json:"computed_at"`
}

// StoredSummaryResponse is the last persisted recompute.
type StoredSummaryResponse struct {
	Summary    progress.ProjectSummary `json:"summary"`
	ComputedAt string                  `json:"computed_at"`
}

// ScheduleDTO describes the periodic recompute. Times are empty when unknown.
type ScheduleDTO struct {
	Enabled  bool   `json:"enabled"`
	Running  bool   `json:"running"`
	Interval string `json:"interval,omitempty"`
	LastRun  string `json:"last_run,omitempty"`
	NextRun  string `json:"next_run,omitempty"`
}

// DigestsResponse lists the per-report digests of accepted reports.
type DigestsResponse struct {
	ProjectID progress.ProjectID      `json:"project_id"`
	Digests   []progress.ReportDigest `json:"digests"`
}

// CurveResponse is the planned versus actual completion curve.
type CurveResponse struct {
	ProjectID progress.ProjectID    `json:"project_id"`
	Points    []progress.CurvePoint `json:"points"`
}

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// LoadScenarioRequest selects a demo scenario.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the body of every error status.
type ErrorResponse struct {
	Error     string        `json:"error"`
	Details   string        `json:"details,omitempty"`
	Rejection *RejectionDTO `json:"rejection,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toRejectionDTO(e *progress.ValidationError) RejectionDTO {
	dto := RejectionDTO{
		Kind:         e.Kind,
		Message:      e.Error(),
		ReportID:     e.ReportID,
		TaskID:       e.TaskID,
		AttendanceID: e.AttendanceID,
		Detail:       e.Detail,
	}
	if d, ok := e.Date.Get(); ok {
		dto.Date = d.String()
	}
	return dto
}

func toRejectionDTOs(errs []*progress.ValidationError) []RejectionDTO {
	dtos := make([]RejectionDTO, len(errs))
	for i, e := range errs {
		dtos[i] = toRejectionDTO(e)
	}
	return dtos
}

func toProjectListItem(p progress.Project) ProjectListItemDTO {
	return ProjectListItemDTO{
		ID:     p.ID,
		Name:   p.Name,
		Tasks:  len(p.Tasks),
		Groups: len(p.Groups),
		Users:  len(p.Users),
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
