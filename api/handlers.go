/*
handlers.go - HTTP API handlers for the progress engine

PURPOSE:
  Exposes the progress engine via REST API. Handles HTTP request/response,
  document decoding, and delegates to the engine and the store.

ENDPOINTS:
  Projects:
    GET    /api/projects                          List projects
    POST   /api/projects                          Create or replace a project document
    GET    /api/projects/{id}                     Get the planned side of a project

  Field records:
    POST   /api/projects/{id}/reports             Submit a daily report
    GET    /api/projects/{id}/reports             List reports in date order
    POST   /api/projects/{id}/attendance          Submit an attendance sheet
    GET    /api/projects/{id}/attendance          List attendance in date order

  Derived views:
    GET    /api/projects/{id}/summary             Recompute and persist
    GET    /api/projects/{id}/summary/latest      Last persisted summary
    GET    /api/projects/{id}/tasks/{taskID}/timeline
    GET    /api/projects/{id}/tasks/{taskID}/variance
    GET    /api/projects/{id}/curve               Planned vs actual completion
    GET    /api/projects/{id}/digests             Per-report weather and plan adherence

  Recompute:
    GET    /api/recompute/runs                    Recent recompute runs
    POST   /api/recompute/process                 Recompute every project now

INTAKE:
  A submitted report is validated against the stored snapshot before it is
  appended: the stored reports are replayed through a fresh Validator so a
  second report for the same task and day is rejected with 409. Intake is
  serialized so two concurrent posts cannot both pass that check.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Undecodable document
  - 404: Project, task or summary not found
  - 409: Duplicate record id, or a second report for a task and day
  - 422: Any other validation rejection (body carries the rejection)
  - 500: Internal errors

SECURITY NOTE:
  No authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - scheduler.go: Periodic recompute
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/warp/sitetrack/factory"
	"github.com/warp/sitetrack/progress"
)

const maxDocumentBytes = 4 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store  progress.Store
	Engine *progress.Engine

	// Now stamps summaries and runs. Tests replace it.
	Now func() time.Time

	// Scheduler is reported by GET /api/recompute/schedule when set.
	Scheduler *RecomputeScheduler

	intake sync.Mutex

	mu              sync.RWMutex
	currentScenario string
}

// NewHandler creates a new handler with the given store and engine.
func NewHandler(store progress.Store, engine *progress.Engine) *Handler {
	return &Handler{
		Store:  store,
		Engine: engine,
		Now:    time.Now,
	}
}

// =============================================================================
// PROJECT HANDLERS
// =============================================================================

// ListProjects returns all projects.
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.Store.ListProjects(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list projects", err)
		return
	}

	dtos := make([]ProjectListItemDTO, len(projects))
	for i, p := range projects {
		dtos[i] = toProjectListItem(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetProject returns a single project.
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	project, err := h.Store.Project(r.Context(), projectIDParam(r))
	if err != nil {
		writeDomainError(w, "Failed to get project", err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

// CreateProject saves a project document and any records it carries.
// Records that fail validation are listed in the response, not stored.
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	doc, err := factory.ParseProjectDocument(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid project document", err)
		return
	}
	assignDocumentIDs(&doc)

	bundle, err := doc.ToBundle()
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid project document", err)
		return
	}

	rejected, err := h.importBundle(r.Context(), bundle)
	if err != nil {
		writeDomainError(w, "Failed to create project", err)
		return
	}

	writeJSON(w, http.StatusCreated, CreateProjectResponse{
		Project:    bundle.Project,
		Reports:    len(bundle.Reports) - countRejected(rejected, isReportRejection),
		Attendance: len(bundle.Attendance) - countRejected(rejected, isAttendanceRejection),
		Rejected:   toRejectionDTOs(rejected),
	})
}

// importBundle validates and saves the project, then its attendance and
// reports in date order. A project that fails validation is not saved.
// Records whose id is already stored are rejected, so posting the same
// document again updates the plan and leaves the stored records as they are.
func (h *Handler) importBundle(ctx context.Context, b factory.Bundle) ([]*progress.ValidationError, error) {
	if err := progress.ValidateProject(b.Project); err != nil {
		return nil, err
	}
	if err := h.Store.SaveProject(ctx, b.Project); err != nil {
		return nil, err
	}

	var rejected []*progress.ValidationError
	collect := func(err error) error {
		var verr *progress.ValidationError
		if errors.As(err, &verr) {
			rejected = append(rejected, verr)
			return nil
		}
		return err
	}

	for _, att := range b.Attendance {
		if err := collect(h.acceptAttendance(ctx, att)); err != nil {
			return nil, err
		}
	}
	for _, report := range b.Reports {
		if err := collect(h.acceptReport(ctx, report)); err != nil {
			return nil, err
		}
	}
	return rejected, nil
}

// =============================================================================
// FIELD RECORD HANDLERS
// =============================================================================

// ListReports returns the project's reports in date order.
func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	reports, err := h.Store.Reports(r.Context(), projectIDParam(r))
	if err != nil {
		writeDomainError(w, "Failed to list reports", err)
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

// SubmitReport validates a daily report against the stored snapshot and appends it.
func (h *Handler) SubmitReport(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	doc, err := factory.ParseReport(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid report document", err)
		return
	}
	if doc.ID == "" {
		doc.ID = newRecordID("rep")
	}

	report, err := doc.ToReport(projectIDParam(r))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid report document", err)
		return
	}

	if err := h.acceptReport(r.Context(), report); err != nil {
		writeDomainError(w, "Report rejected", err)
		return
	}
	writeJSON(w, http.StatusCreated, report)
}

// ListAttendance returns the project's attendance sheets in date order.
func (h *Handler) ListAttendance(w http.ResponseWriter, r *http.Request) {
	records, err := h.Store.Attendance(r.Context(), projectIDParam(r))
	if err != nil {
		writeDomainError(w, "Failed to list attendance", err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// SubmitAttendance validates an attendance sheet and appends it.
func (h *Handler) SubmitAttendance(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	doc, err := factory.ParseAttendance(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid attendance document", err)
		return
	}
	if doc.ID == "" {
		doc.ID = newRecordID("att")
	}

	att, err := doc.ToAttendance(projectIDParam(r))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid attendance document", err)
		return
	}

	if err := h.acceptAttendance(r.Context(), att); err != nil {
		writeDomainError(w, "Attendance rejected", err)
		return
	}
	writeJSON(w, http.StatusCreated, att)
}

func (h *Handler) acceptReport(ctx context.Context, report progress.ProjectReport) error {
	h.intake.Lock()
	defer h.intake.Unlock()

	project, err := h.Store.Project(ctx, report.ProjectID)
	if err != nil {
		return err
	}
	reports, err := h.Store.Reports(ctx, report.ProjectID)
	if err != nil {
		return err
	}
	attendance, err := h.Store.Attendance(ctx, report.ProjectID)
	if err != nil {
		return err
	}

	v := progress.NewValidator(project, progress.NewAttendanceIndex(attendance))
	for _, prior := range reports {
		// Stored reports passed intake already; replaying seeds the duplicate checks.
		_, _ = v.Validate(prior)
	}
	if _, err := v.Validate(report); err != nil {
		return err
	}
	if err := h.Store.AppendReport(ctx, report); err != nil {
		if errors.Is(err, progress.ErrDuplicateRecord) {
			// The id is taken by a report of another project.
			return &progress.ValidationError{
				Kind:      progress.KindDuplicateReportID,
				ProjectID: report.ProjectID,
				ReportID:  report.ID,
				Date:      progress.Some(report.Date),
				Detail:    "report id already stored",
			}
		}
		return err
	}
	return nil
}

func (h *Handler) acceptAttendance(ctx context.Context, att progress.ProjectAttendance) error {
	h.intake.Lock()
	defer h.intake.Unlock()

	project, err := h.Store.Project(ctx, att.ProjectID)
	if err != nil {
		return err
	}
	if err := progress.ValidateAttendance(att, project); err != nil {
		return err
	}
	if err := h.Store.AppendAttendance(ctx, att); err != nil {
		if errors.Is(err, progress.ErrDuplicateRecord) {
			return &progress.ValidationError{
				Kind:         progress.KindDuplicateAttendanceID,
				ProjectID:    att.ProjectID,
				AttendanceID: att.ID,
				Date:         progress.Some(att.Date),
				Detail:       "attendance id already stored",
			}
		}
		return err
	}
	return nil
}

// =============================================================================
// DERIVED VIEW HANDLERS
// =============================================================================

// GetSummary recomputes the project, persists the summary and returns it.
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	result, computedAt, err := h.Recompute(r.Context(), projectIDParam(r))
	if err != nil {
		writeDomainError(w, "Failed to compute summary", err)
		return
	}

	writeJSON(w, http.StatusOK, SummaryResponse{
		Summary:    result.Summary,
		Rejected:   toRejectionDTOs(result.Rejected),
		ComputedAt: formatTime(computedAt),
	})
}

// GetLatestSummary returns the last persisted summary without recomputing.
func (h *Handler) GetLatestSummary(w http.ResponseWriter, r *http.Request) {
	stored, err := h.Store.LatestSummary(r.Context(), projectIDParam(r))
	if err != nil {
		writeDomainError(w, "Failed to get summary", err)
		return
	}

	writeJSON(w, http.StatusOK, StoredSummaryResponse{
		Summary:    stored.Summary,
		ComputedAt: formatTime(stored.ComputedAt),
	})
}

// GetTimeline returns one task's cumulative progress timeline.
func (h *Handler) GetTimeline(w http.ResponseWriter, r *http.Request) {
	result, err := h.Engine.RecomputeFrom(r.Context(), h.Store, projectIDParam(r))
	if err != nil {
		writeDomainError(w, "Failed to compute timeline", err)
		return
	}

	timeline, ok := result.Timeline(progress.TaskID(chi.URLParam(r, "taskID")))
	if !ok {
		writeError(w, http.StatusNotFound, "Task not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, timeline)
}

// GetVariance returns one task's planned versus actual series.
func (h *Handler) GetVariance(w http.ResponseWriter, r *http.Request) {
	result, err := h.Engine.RecomputeFrom(r.Context(), h.Store, projectIDParam(r))
	if err != nil {
		writeDomainError(w, "Failed to compute variance", err)
		return
	}

	series, ok := result.Variance(progress.TaskID(chi.URLParam(r, "taskID")))
	if !ok {
		writeError(w, http.StatusNotFound, "Task not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, series)
}

// GetCurve returns the project's planned and actual completion per day.
func (h *Handler) GetCurve(w http.ResponseWriter, r *http.Request) {
	id := projectIDParam(r)
	result, err := h.Engine.RecomputeFrom(r.Context(), h.Store, id)
	if err != nil {
		writeDomainError(w, "Failed to compute curve", err)
		return
	}
	writeJSON(w, http.StatusOK, CurveResponse{ProjectID: id, Points: result.Curve})
}

// GetDigests returns weather and plan adherence per accepted report.
func (h *Handler) GetDigests(w http.ResponseWriter, r *http.Request) {
	id := projectIDParam(r)
	result, err := h.Engine.RecomputeFrom(r.Context(), h.Store, id)
	if err != nil {
		writeDomainError(w, "Failed to compute digests", err)
		return
	}
	writeJSON(w, http.StatusOK, DigestsResponse{ProjectID: id, Digests: result.Digests})
}

// =============================================================================
// RECOMPUTE
// =============================================================================

// Recompute runs the engine over the stored snapshot, persists the summary
// and records the run. A missing project is not recorded as a run.
func (h *Handler) Recompute(ctx context.Context, id progress.ProjectID) (*progress.Result, time.Time, error) {
	started := h.Now()
	run := progress.RecomputeRun{
		ID:        newRecordID("run"),
		ProjectID: id,
		StartedAt: started,
	}

	result, err := h.Engine.RecomputeFrom(ctx, h.Store, id)
	if err != nil {
		if progress.IsNotFound(err) {
			return nil, time.Time{}, err
		}
		run.Status = progress.RunFailed
		run.Error = err.Error()
		run.Rejected = len(progress.Rejections(err))
		run.CompletedAt = h.Now()
		if saveErr := h.Store.SaveRun(ctx, run); saveErr != nil {
			log.Printf("[API] Failed to record run %s: %v", run.ID, saveErr)
		}
		return nil, time.Time{}, err
	}

	computedAt := h.Now()
	if err := h.Store.SaveSummary(ctx, progress.StoredSummary{Summary: result.Summary, ComputedAt: computedAt}); err != nil {
		return nil, time.Time{}, fmt.Errorf("save summary: %w", err)
	}

	run.Status = progress.RunCompleted
	run.Rejected = len(result.Rejected)
	run.Health = result.Summary.Health
	run.CompletedAt = computedAt
	if err := h.Store.SaveRun(ctx, run); err != nil {
		return nil, time.Time{}, fmt.Errorf("save run: %w", err)
	}
	return result, computedAt, nil
}

// RecomputeAll recomputes every stored project, continuing past failures.
func (h *Handler) RecomputeAll(ctx context.Context) (processed, failed int, err error) {
	projects, err := h.Store.ListProjects(ctx)
	if err != nil {
		return 0, 0, err
	}

	for _, p := range projects {
		if ctx.Err() != nil {
			return processed, failed, ctx.Err()
		}
		if _, _, err := h.Recompute(ctx, p.ID); err != nil {
			log.Printf("[API] Recompute of %s failed: %v", p.ID, err)
			failed++
			continue
		}
		processed++
	}
	return processed, failed, nil
}

// ListRuns returns recent recompute runs, newest first.
// GET /api/recompute/runs?limit=20
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = n
	}

	runs, err := h.Store.ListRuns(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list runs", err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

// GetSchedule reports the periodic recompute settings and timing.
// GET /api/recompute/schedule
func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	rs := h.Scheduler
	if rs == nil {
		writeJSON(w, http.StatusOK, ScheduleDTO{})
		return
	}

	dto := ScheduleDTO{
		Enabled:  rs.Enabled,
		Running:  rs.Running(),
		Interval: rs.Interval.String(),
	}
	if last := rs.LastRunTime(); !last.IsZero() {
		dto.LastRun = formatTime(last)
	}
	if dto.Running {
		dto.NextRun = formatTime(rs.NextRunTime())
	}
	writeJSON(w, http.StatusOK, dto)
}

// TriggerRecompute recomputes every project immediately.
// POST /api/recompute/process
func (h *Handler) TriggerRecompute(w http.ResponseWriter, r *http.Request) {
	processed, failed, err := h.RecomputeAll(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to recompute projects", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"processed": processed, "failed": failed})
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}

	h.setCurrentScenario("")
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[API] Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError picks the status from the error and attaches the rejected
// record when there is one.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	resp := ErrorResponse{Error: message, Details: err.Error()}
	var verr *progress.ValidationError
	if errors.As(err, &verr) {
		dto := toRejectionDTO(verr)
		resp.Rejection = &dto
	}
	writeJSON(w, statusFor(err), resp)
}

func statusFor(err error) int {
	switch {
	case progress.IsNotFound(err):
		return http.StatusNotFound
	case progress.IsConflict(err):
		return http.StatusConflict
	case progress.IsClientError(err):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func readBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxDocumentBytes+1))
	if err != nil {
		return nil, err
	}
	if len(body) > maxDocumentBytes {
		return nil, fmt.Errorf("document larger than %d bytes", maxDocumentBytes)
	}
	return body, nil
}

func projectIDParam(r *http.Request) progress.ProjectID {
	return progress.ProjectID(chi.URLParam(r, "id"))
}

func newRecordID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}

// assignDocumentIDs fills ids a hand-written document left out. Report
// attendance references cannot be guessed, so sheets without an id can only
// be referenced after the response names them.
func assignDocumentIDs(doc *factory.ProjectDocument) {
	if doc.ID == "" {
		doc.ID = newRecordID("prj")
	}
	for i := range doc.Attendance {
		if doc.Attendance[i].ID == "" {
			doc.Attendance[i].ID = newRecordID("att")
		}
	}
	for i := range doc.Reports {
		if doc.Reports[i].ID == "" {
			doc.Reports[i].ID = newRecordID("rep")
		}
	}
}

func isReportRejection(e *progress.ValidationError) bool { return e.ReportID != "" }

func isAttendanceRejection(e *progress.ValidationError) bool {
	return e.ReportID == "" && e.AttendanceID != ""
}

func countRejected(errs []*progress.ValidationError, match func(*progress.ValidationError) bool) int {
	n := 0
	for _, e := range errs {
		if match(e) {
			n++
		}
	}
	return n
}

func (h *Handler) setCurrentScenario(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.currentScenario = id
}

func (h *Handler) scenario() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.currentScenario
}
