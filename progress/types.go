/*
Package progress reconciles planned estimates against field-reported actuals.

PURPOSE:
  A construction project is broken into tasks, each with a volumetric target
  (e.g. 1200 m3 of excavation) and optionally a planned cumulative schedule.
  Field crews file daily reports with the amount of work done per task, plus
  attendance, weather and documentation. This package turns those accepted
  records into per-task progress timelines, schedule variance series,
  attendance summaries and a project-level completion and health status.

KEY CONCEPTS IN THIS FILE (types.go):
  - Project, Task, Group: the planned side (targets, estimations, cost)
  - ProjectReport: what a crew reported for one day
  - ProjectAttendance: who was on site for one day, with entry/exit times
  - Volume: a quantity with an opaque unit string (no unit conversion)

DESIGN PRINCIPLES:
  1. Snapshots in, snapshots out: inputs are never mutated, every output is
     recomputed in full from its inputs.
  2. Precision: quantities use decimal.Decimal so identical inputs always
     yield identical outputs.
  3. Explicit absence: optional fields and unknown results use Optional,
     never a zero value or an empty collection.

SEE ALSO:
  - validate.go: Report/attendance/project validation
  - aggregate.go: Cumulative progress timelines
  - variance.go: Plan vs actual variance
  - attendance.go: Worked hours and crew size
  - summary.go: Project rollup and health
  - engine.go: Concurrent whole-project recompute
*/
package progress

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ProjectID string
type TaskID string
type GroupID string
type ReportID string
type AttendanceID string
type UserID string
type PersonID string
type CustomerID string
type OutsourceID string

// =============================================================================
// PROJECT
// =============================================================================

type Project struct {
	ID            ProjectID                 `json:"id"`
	Name          string                    `json:"name"`
	Groups        []Group                   `json:"groups"`
	Tasks         []Task                    `json:"tasks"`
	Users         []ProjectUser             `json:"users"`
	ContractValue Optional[decimal.Decimal] `json:"contract_value"`
	Customer      Customer                  `json:"customer"`
}

// Task returns the task with the given id.
func (p Project) Task(id TaskID) (Task, bool) {
	for _, t := range p.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return Task{}, false
}

// Group resolves a group label. Groups are shared by many tasks and owned by none.
func (p Project) Group(id GroupID) (Group, bool) {
	for _, g := range p.Groups {
		if g.ID == id {
			return g, true
		}
	}
	return Group{}, false
}

// HasUser reports whether the user is on the project roster.
func (p Project) HasUser(id UserID) bool {
	for _, u := range p.Users {
		if u.UserID == id {
			return true
		}
	}
	return false
}

type Group struct {
	ID   GroupID `json:"id"`
	Name string  `json:"name"`
}

type ProjectUser struct {
	UserID UserID `json:"user_id"`
	Role   string `json:"role"`
}

type Customer struct {
	ID     CustomerID `json:"id"`
	Person Person     `json:"person"`
}

type Person struct {
	ID   PersonID `json:"id"`
	Name string   `json:"name"`
	Role string   `json:"role"`
}

// =============================================================================
// TASK - Unit of work with a volumetric target
// =============================================================================

type Task struct {
	ID     TaskID                    `json:"id"`
	Group  GroupID                   `json:"group"`
	Name   string                    `json:"name"`
	Volume Volume                    `json:"volume"`
	Cost   Optional[decimal.Decimal] `json:"cost"`

	// Planned cumulative checkpoints, strictly increasing in date.
	Estimation Optional[[]Estimation] `json:"estimation"`

	// As received from ingestion. Informational only: the engine rebuilds
	// this relation from the report list with BuildReportIndex.
	Reports Optional[[]ReportID] `json:"reports"`
}

// Volume is a target quantity. Unit is opaque; no conversion is performed.
type Volume struct {
	Value decimal.Decimal `json:"value"`
	Unit  string          `json:"unit"`
}

// Estimation is a planned cumulative value as of a date.
type Estimation struct {
	Date    Date            `json:"date"`
	Planned decimal.Decimal `json:"planned"`
}

// =============================================================================
// PROJECT REPORT - One crew report for one day
// =============================================================================

type ProjectReport struct {
	ID            ReportID                  `json:"id"`
	ProjectID     ProjectID                 `json:"project_id"`
	Date          Date                      `json:"date"`
	Tasks         []ReportEntry             `json:"task"`
	Plan          []PlanEntry               `json:"plan"`
	Weather       Optional[[]WeatherEntry]  `json:"weather"`
	Documentation Optional[[]Documentation] `json:"documentation"`
	AttendanceID  AttendanceID              `json:"attendance_id"`
	ReportedBy    UserID                    `json:"reported_by"`
	Customer      PersonID                  `json:"customer"`
}

// ReportEntry is the day's incremental contribution to one task.
type ReportEntry struct {
	TaskID  TaskID             `json:"task_id"`
	Value   decimal.Decimal    `json:"value"`
	Details Optional[[]string] `json:"details"`
}

// PlanEntry is a checklist item: a task planned for the day, with no figure.
type PlanEntry struct {
	TaskID  TaskID             `json:"task_id"`
	Details Optional[[]string] `json:"details"`
}

type WeatherEntry struct {
	Start     MinuteOfDay      `json:"start"`
	End       MinuteOfDay      `json:"end"`
	Condition WeatherCondition `json:"condition"`
}

type Documentation struct {
	Image       string           `json:"image"`
	Description Optional[string] `json:"description"`
}

// =============================================================================
// PROJECT ATTENDANCE - Who was on site for one day
// =============================================================================

type ProjectAttendance struct {
	ID        AttendanceID      `json:"id"`
	ProjectID ProjectID         `json:"project_id"`
	Date      Date              `json:"date"`
	Entries   []AttendanceEntry `json:"entries"`
}

type AttendanceEntry struct {
	UserID UserID                `json:"user_id"`
	Name   string                `json:"name"`
	Role   string                `json:"role"`
	Entry  Optional[MinuteOfDay] `json:"entry"`
	Exit   Optional[MinuteOfDay] `json:"exit"`

	// Set when the person is an outsourced worker, not a project user.
	Outsource Optional[OutsourceWorker] `json:"outsource"`
}

type OutsourceWorker struct {
	ID   OutsourceID `json:"id"`
	Name string      `json:"name"`
}
