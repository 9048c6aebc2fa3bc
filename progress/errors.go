/*
errors.go - Error types for the progress engine

PURPOSE:
  Every rejection identifies the offending record (report, task, attendance)
  so the caller can reject, quarantine, or ask for a correction. Nothing is
  dropped or auto-corrected.

ERROR CATEGORIES:
  1. Report validation - bad references, duplicates, bad weather intervals
  2. Attendance validation - mismatched or impossible intervals
  3. Project validation - malformed plans (unsorted estimation, duplicate ids)
  4. Fold-time contract violations - inputs that should have been validated

USAGE:
  _, err := validator.Validate(report)
  if errors.Is(err, progress.ErrDuplicateReportDate) {
      // a report for this task and day was already accepted
  }

  var verr *progress.ValidationError
  if errors.As(err, &verr) {
      log.Printf("rejected report %s (task %s): %s", verr.ReportID, verr.TaskID, verr.Kind)
  }
*/
package progress

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	ErrUnknownTaskReference      = errors.New("unknown task reference")
	ErrDuplicateTaskInReport     = errors.New("duplicate task in report")
	ErrOverlappingWeather        = errors.New("overlapping weather interval")
	ErrInvalidWeatherInterval    = errors.New("invalid weather interval")
	ErrAttendanceMismatch        = errors.New("attendance mismatch")
	ErrDuplicateReportDate       = errors.New("duplicate report date")
	ErrUnsortedEstimation        = errors.New("estimation not strictly increasing")
	ErrInvalidAttendanceInterval = errors.New("invalid attendance interval")

	ErrProjectMismatch      = errors.New("record belongs to another project")
	ErrInvalidReportValue   = errors.New("invalid report value")
	ErrUnsortedReports      = errors.New("reports not in chronological order")
	ErrDuplicateTaskID      = errors.New("duplicate task id")
	ErrUnknownGroup         = errors.New("unknown group reference")
	ErrDuplicateProjectUser = errors.New("duplicate project user")
	ErrInvalidVolume        = errors.New("invalid volume")

	// ErrProjectNotFound is returned by a Source when the project does not exist.
	ErrProjectNotFound = errors.New("project not found")

	// ErrSummaryNotFound is returned when no summary was stored for a project yet.
	ErrSummaryNotFound = errors.New("summary not found")

	// ErrDuplicateRecord is returned by a Store when a record id is reused.
	ErrDuplicateRecord = errors.New("duplicate record id")

	// ErrIncompleteInput means a rollup was handed results for only some tasks.
	ErrIncompleteInput = errors.New("incomplete input")
)

// ErrorKind names a validation failure. Stable strings, safe to expose in APIs.
type ErrorKind string

const (
	KindUnknownTaskReference      ErrorKind = "UnknownTaskReference"
	KindDuplicateTaskInReport     ErrorKind = "DuplicateTaskInReport"
	KindOverlappingWeather        ErrorKind = "OverlappingWeatherInterval"
	KindInvalidWeatherInterval    ErrorKind = "InvalidWeatherInterval"
	KindAttendanceMismatch        ErrorKind = "AttendanceMismatch"
	KindDuplicateReportDate       ErrorKind = "DuplicateReportDate"
	KindUnsortedEstimation        ErrorKind = "UnsortedEstimation"
	KindInvalidAttendanceInterval ErrorKind = "InvalidAttendanceInterval"
	KindProjectMismatch           ErrorKind = "ProjectMismatch"
	KindInvalidReportValue        ErrorKind = "InvalidReportValue"
	KindUnsortedReports           ErrorKind = "UnsortedReports"
	KindDuplicateTaskID           ErrorKind = "DuplicateTaskID"
	KindUnknownGroup              ErrorKind = "UnknownGroupReference"
	KindDuplicateProjectUser      ErrorKind = "DuplicateProjectUser"
	KindInvalidVolume             ErrorKind = "InvalidVolume"
	KindDuplicateReportID         ErrorKind = "DuplicateReportID"
	KindDuplicateAttendanceID     ErrorKind = "DuplicateAttendanceID"
)

var sentinels = map[ErrorKind]error{
	KindUnknownTaskReference:      ErrUnknownTaskReference,
	KindDuplicateTaskInReport:     ErrDuplicateTaskInReport,
	KindOverlappingWeather:        ErrOverlappingWeather,
	KindInvalidWeatherInterval:    ErrInvalidWeatherInterval,
	KindAttendanceMismatch:        ErrAttendanceMismatch,
	KindDuplicateReportDate:       ErrDuplicateReportDate,
	KindUnsortedEstimation:        ErrUnsortedEstimation,
	KindInvalidAttendanceInterval: ErrInvalidAttendanceInterval,
	KindProjectMismatch:           ErrProjectMismatch,
	KindInvalidReportValue:        ErrInvalidReportValue,
	KindUnsortedReports:           ErrUnsortedReports,
	KindDuplicateTaskID:           ErrDuplicateTaskID,
	KindUnknownGroup:              ErrUnknownGroup,
	KindDuplicateProjectUser:      ErrDuplicateProjectUser,
	KindInvalidVolume:             ErrInvalidVolume,
	KindDuplicateReportID:         ErrDuplicateRecord,
	KindDuplicateAttendanceID:     ErrDuplicateRecord,
}

// =============================================================================
// STRUCTURED ERRORS - Carry the offending entity
// =============================================================================

// ValidationError identifies which record failed and why.
// Empty identifier fields do not apply to the failure.
type ValidationError struct {
	Kind         ErrorKind
	ProjectID    ProjectID
	ReportID     ReportID
	TaskID       TaskID
	AttendanceID AttendanceID
	Date         Optional[Date]
	Detail       string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	var refs []string
	if e.ProjectID != "" {
		refs = append(refs, "project="+string(e.ProjectID))
	}
	if e.ReportID != "" {
		refs = append(refs, "report="+string(e.ReportID))
	}
	if e.TaskID != "" {
		refs = append(refs, "task="+string(e.TaskID))
	}
	if e.AttendanceID != "" {
		refs = append(refs, "attendance="+string(e.AttendanceID))
	}
	if d, ok := e.Date.Get(); ok {
		refs = append(refs, "date="+d.String())
	}
	if len(refs) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(refs, " "))
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	return b.String()
}

func (e *ValidationError) Unwrap() error {
	return sentinels[e.Kind]
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error was caused by an invalid input record.
func IsClientError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}

// IsConflict returns true if the record collides with one already accepted.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateReportDate) ||
		errors.Is(err, ErrDuplicateTaskID) ||
		errors.Is(err, ErrDuplicateProjectUser) ||
		errors.Is(err, ErrDuplicateRecord)
}

// IsNotFound returns true if the error indicates a missing project or summary.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrProjectNotFound) || errors.Is(err, ErrSummaryNotFound)
}
