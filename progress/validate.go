/*
validate.go - Acceptance checks for reports, attendance and project plans

PURPOSE:
  Nothing reaches the aggregation pipeline without passing through here.
  Validation never aggregates and never modifies its inputs: it either
  wraps the record as accepted or returns a *ValidationError naming it.

REPORT CHECKS (in order, first failure wins):
  0. Report belongs to the project being validated and its id is new
  1. Every task in the task and plan sections exists in the project
  2. No task appears twice in the task section (one value per task per day)
     and no value is negative
  3. Weather intervals lie within one day (0..1439, start <= end) and do
     not overlap
  4. The attendance reference resolves to a record of the same project and date
  5. No previously accepted report gave one of its tasks a value on the same date

The Validator remembers the (task, date) pairs of accepted reports, so feed
it every report of one recompute in order. A rejected report leaves no trace.

SEE ALSO:
  - errors.go: Error kinds
  - aggregate.go: Consumes ValidatedReport
*/
package progress

import (
	"fmt"
	"sort"
)

// ValidatedReport is a report that passed Validator.Validate.
// Only the validator constructs it.
type ValidatedReport struct {
	report ProjectReport
}

func (v ValidatedReport) Report() ProjectReport { return v.report }
func (v ValidatedReport) ID() ReportID          { return v.report.ID }
func (v ValidatedReport) Date() Date            { return v.report.Date }

type taskDay struct {
	task TaskID
	day  string
}

// Validator checks incoming reports against one project snapshot.
type Validator struct {
	project    Project
	tasks      map[TaskID]struct{}
	attendance AttendanceLookup
	accepted   map[taskDay]ReportID
	ids        map[ReportID]struct{}
}

// NewValidator creates a validator for the project. attendance may be nil,
// in which case every attendance reference fails to resolve.
func NewValidator(project Project, attendance AttendanceLookup) *Validator {
	tasks := make(map[TaskID]struct{}, len(project.Tasks))
	for _, t := range project.Tasks {
		tasks[t.ID] = struct{}{}
	}
	return &Validator{
		project:    project,
		tasks:      tasks,
		attendance: attendance,
		accepted:   make(map[taskDay]ReportID),
		ids:        make(map[ReportID]struct{}),
	}
}

// Validate checks one report and, on success, records its task/day pairs.
func (v *Validator) Validate(report ProjectReport) (ValidatedReport, error) {
	fail := func(kind ErrorKind, task TaskID, detail string) (ValidatedReport, error) {
		return ValidatedReport{}, &ValidationError{
			Kind:         kind,
			ProjectID:    report.ProjectID,
			ReportID:     report.ID,
			TaskID:       task,
			AttendanceID: report.AttendanceID,
			Date:         Some(report.Date),
			Detail:       detail,
		}
	}

	if report.ProjectID != v.project.ID {
		return fail(KindProjectMismatch, "", fmt.Sprintf("report is for project %s, not %s", report.ProjectID, v.project.ID))
	}
	if _, dup := v.ids[report.ID]; dup {
		return fail(KindDuplicateReportID, "", "report id already accepted")
	}

	// 1. References
	for _, e := range report.Tasks {
		if _, ok := v.tasks[e.TaskID]; !ok {
			return fail(KindUnknownTaskReference, e.TaskID, "task section")
		}
	}
	for _, p := range report.Plan {
		if _, ok := v.tasks[p.TaskID]; !ok {
			return fail(KindUnknownTaskReference, p.TaskID, "plan section")
		}
	}

	// 2. One incremental value per task
	seen := make(map[TaskID]struct{}, len(report.Tasks))
	for _, e := range report.Tasks {
		if _, dup := seen[e.TaskID]; dup {
			return fail(KindDuplicateTaskInReport, e.TaskID, "")
		}
		seen[e.TaskID] = struct{}{}
		if e.Value.IsNegative() {
			return fail(KindInvalidReportValue, e.TaskID, "value "+e.Value.String()+" is negative")
		}
	}

	// 3. Weather
	if weather, ok := report.Weather.Get(); ok {
		if kind, detail := checkWeather(weather); kind != "" {
			return fail(kind, "", detail)
		}
	}

	// 4. Attendance
	if kind, detail := v.checkAttendanceRef(report); kind != "" {
		return fail(kind, "", detail)
	}

	// 5. Cross-report same-day collisions
	for _, e := range report.Tasks {
		if prev, dup := v.accepted[taskDay{task: e.TaskID, day: report.Date.String()}]; dup {
			return fail(KindDuplicateReportDate, e.TaskID, "already reported by "+string(prev))
		}
	}

	for _, e := range report.Tasks {
		v.accepted[taskDay{task: e.TaskID, day: report.Date.String()}] = report.ID
	}
	v.ids[report.ID] = struct{}{}
	return ValidatedReport{report: report}, nil
}

func checkWeather(entries []WeatherEntry) (ErrorKind, string) {
	for _, w := range entries {
		if !w.Start.Valid() || !w.End.Valid() || w.Start > w.End {
			return KindInvalidWeatherInterval, fmt.Sprintf("%d-%d", w.Start, w.End)
		}
	}

	sorted := make([]WeatherEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	// Intervals are closed, so [480,600] and [600,720] share minute 600.
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Start <= sorted[i-1].End {
			return KindOverlappingWeather, fmt.Sprintf("%s-%s overlaps %s-%s",
				sorted[i-1].Start, sorted[i-1].End, sorted[i].Start, sorted[i].End)
		}
	}
	return "", ""
}

func (v *Validator) checkAttendanceRef(report ProjectReport) (ErrorKind, string) {
	if v.attendance == nil {
		return KindAttendanceMismatch, "no attendance records available"
	}
	att, ok := v.attendance.Attendance(report.AttendanceID)
	if !ok {
		return KindAttendanceMismatch, "attendance " + string(report.AttendanceID) + " not found"
	}
	if att.ProjectID != report.ProjectID {
		return KindAttendanceMismatch, "attendance belongs to project " + string(att.ProjectID)
	}
	if !att.Date.Equal(report.Date) {
		return KindAttendanceMismatch, "attendance dated " + att.Date.String()
	}
	return "", ""
}

// =============================================================================
// ATTENDANCE VALIDATION
// =============================================================================

// ValidateAttendance checks an attendance record before reconciliation.
func ValidateAttendance(att ProjectAttendance, project Project) error {
	fail := func(kind ErrorKind, detail string) error {
		return &ValidationError{
			Kind:         kind,
			ProjectID:    att.ProjectID,
			AttendanceID: att.ID,
			Date:         Some(att.Date),
			Detail:       detail,
		}
	}

	if att.ProjectID != project.ID {
		return fail(KindAttendanceMismatch, "attendance is for project "+string(att.ProjectID))
	}
	for _, e := range att.Entries {
		entry, hasEntry := e.Entry.Get()
		exit, hasExit := e.Exit.Get()
		if hasEntry && !entry.Valid() {
			return fail(KindInvalidAttendanceInterval, fmt.Sprintf("user %s entry %d out of range", e.UserID, entry))
		}
		if hasExit && !exit.Valid() {
			return fail(KindInvalidAttendanceInterval, fmt.Sprintf("user %s exit %d out of range", e.UserID, exit))
		}
		if hasEntry && hasExit && exit < entry {
			return fail(KindInvalidAttendanceInterval, fmt.Sprintf("user %s exit %s before entry %s", e.UserID, exit, entry))
		}
	}
	return nil
}

// =============================================================================
// PROJECT VALIDATION
// =============================================================================

// ValidateProject checks the planned side of a project snapshot.
func ValidateProject(project Project) error {
	fail := func(kind ErrorKind, task TaskID, detail string) error {
		return &ValidationError{Kind: kind, ProjectID: project.ID, TaskID: task, Detail: detail}
	}

	users := make(map[UserID]struct{}, len(project.Users))
	for _, u := range project.Users {
		if _, dup := users[u.UserID]; dup {
			return fail(KindDuplicateProjectUser, "", "user "+string(u.UserID))
		}
		users[u.UserID] = struct{}{}
	}

	tasks := make(map[TaskID]struct{}, len(project.Tasks))
	for _, t := range project.Tasks {
		if _, dup := tasks[t.ID]; dup {
			return fail(KindDuplicateTaskID, t.ID, "")
		}
		tasks[t.ID] = struct{}{}

		if _, ok := project.Group(t.Group); !ok {
			return fail(KindUnknownGroup, t.ID, "group "+string(t.Group))
		}
		if t.Volume.Value.IsNegative() {
			return fail(KindInvalidVolume, t.ID, "volume "+t.Volume.Value.String()+" is negative")
		}
		if err := CheckEstimation(t.ID, t.Estimation.OrElse(nil)); err != nil {
			return err
		}
	}
	return nil
}

// CheckEstimation verifies estimation dates are strictly increasing.
func CheckEstimation(task TaskID, estimation []Estimation) error {
	for i := 1; i < len(estimation); i++ {
		if !estimation[i].Date.After(estimation[i-1].Date) {
			return &ValidationError{
				Kind:   KindUnsortedEstimation,
				TaskID: task,
				Date:   Some(estimation[i].Date),
				Detail: fmt.Sprintf("entry %d (%s) does not follow %s", i, estimation[i].Date, estimation[i-1].Date),
			}
		}
	}
	return nil
}
