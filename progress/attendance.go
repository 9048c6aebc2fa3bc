/*
attendance.go - Worked time and crew size per project-day

PURPOSE:
  Turns an attendance record into worked minutes per person and crew counts.
  Independent of progress: it never reads reports.

RULES:
  - Worked = exit - entry, in minutes, when both are present.
  - No exit (still on site) or no entry (data gap) is Unknown, never zero.
  - Outsourced workers are totalled separately from regular project users;
    they are not on the roster and must not inflate roster metrics.
  - Crew size counts distinct people present: user ids for regular staff,
    outsource ids for outsourced workers. A person with two entries (left
    and came back) is one crew member with the minutes summed.

  entry 08:00 (480), exit 17:00 (1020) -> 540 minutes (9 hours)
  entry 08:00, no exit                 -> Unknown

SEE ALSO:
  - validate.go: ValidateAttendance rejects exit < entry
*/
package progress

import (
	"github.com/shopspring/decimal"
)

var minutesPerHour = decimal.NewFromInt(60)

// WorkedTime is one person's time on site for the day.
type WorkedTime struct {
	UserID      UserID      `json:"user_id"`
	Name        string      `json:"name"`
	Role        string      `json:"role"`
	Outsourced  bool        `json:"outsourced"`
	OutsourceID OutsourceID `json:"outsource_id,omitempty"`

	// Unknown when entry or exit is missing.
	Minutes Optional[int] `json:"minutes"`
}

// CrewTotals aggregates one crew category for the day.
type CrewTotals struct {
	// Distinct people present.
	CrewSize int `json:"crew_size"`

	// Sum over entries with known worked time.
	KnownMinutes int `json:"known_minutes"`

	// Entries whose worked time is Unknown. KnownMinutes is a lower bound
	// whenever this is non-zero.
	UnknownEntries int `json:"unknown_entries"`
}

// KnownHours returns KnownMinutes in hours.
func (c CrewTotals) KnownHours() decimal.Decimal {
	return decimal.NewFromInt(int64(c.KnownMinutes)).Div(minutesPerHour)
}

// IsComplete reports whether every entry has a known worked time.
func (c CrewTotals) IsComplete() bool {
	return c.UnknownEntries == 0
}

// AttendanceSummary is the reconciled attendance of one project-day.
type AttendanceSummary struct {
	AttendanceID AttendanceID `json:"attendance_id"`
	ProjectID    ProjectID    `json:"project_id"`
	Date         Date         `json:"date"`
	Entries      []WorkedTime `json:"entries"`
	Regular      CrewTotals   `json:"regular"`
	Outsourced   CrewTotals   `json:"outsourced"`
}

// CrewSize returns the total number of distinct people on site.
func (s AttendanceSummary) CrewSize() int {
	return s.Regular.CrewSize + s.Outsourced.CrewSize
}

// Reconcile summarizes one attendance record.
func Reconcile(att ProjectAttendance) AttendanceSummary {
	summary := AttendanceSummary{
		AttendanceID: att.ID,
		ProjectID:    att.ProjectID,
		Date:         att.Date,
		Entries:      make([]WorkedTime, 0, len(att.Entries)),
	}

	regular := make(map[UserID]struct{})
	outsourced := make(map[OutsourceID]struct{})

	for _, e := range att.Entries {
		wt := WorkedTime{
			UserID:  e.UserID,
			Name:    e.Name,
			Role:    e.Role,
			Minutes: workedMinutes(e),
		}

		totals := &summary.Regular
		if ow, ok := e.Outsource.Get(); ok {
			wt.Outsourced = true
			wt.OutsourceID = ow.ID
			totals = &summary.Outsourced
			outsourced[ow.ID] = struct{}{}
		} else {
			regular[e.UserID] = struct{}{}
		}

		if m, ok := wt.Minutes.Get(); ok {
			totals.KnownMinutes += m
		} else {
			totals.UnknownEntries++
		}
		summary.Entries = append(summary.Entries, wt)
	}

	summary.Regular.CrewSize = len(regular)
	summary.Outsourced.CrewSize = len(outsourced)
	return summary
}

func workedMinutes(e AttendanceEntry) Optional[int] {
	entry, hasEntry := e.Entry.Get()
	exit, hasExit := e.Exit.Get()
	if !hasEntry || !hasExit {
		return None[int]()
	}
	return Some(int(exit - entry))
}

// =============================================================================
// ROSTER COVERAGE
// =============================================================================

// RosterCoverage relates a day's regular attendees to the project roster.
type RosterCoverage struct {
	RosterSize int `json:"roster_size"`
	Present    int `json:"present"`

	// Present / RosterSize. Unknown for an empty roster.
	Share Optional[decimal.Decimal] `json:"share"`

	// Regular attendees that are not project users, in attendance order.
	OffRoster []UserID `json:"off_roster"`
}

// Coverage computes roster coverage. Outsourced workers are ignored.
func Coverage(summary AttendanceSummary, project Project) RosterCoverage {
	cov := RosterCoverage{RosterSize: len(project.Users), OffRoster: []UserID{}}

	seen := make(map[UserID]struct{})
	for _, e := range summary.Entries {
		if e.Outsourced {
			continue
		}
		if _, dup := seen[e.UserID]; dup {
			continue
		}
		seen[e.UserID] = struct{}{}
		if project.HasUser(e.UserID) {
			cov.Present++
		} else {
			cov.OffRoster = append(cov.OffRoster, e.UserID)
		}
	}

	if cov.RosterSize > 0 {
		cov.Share = Some(decimal.NewFromInt(int64(cov.Present)).Div(decimal.NewFromInt(int64(cov.RosterSize))))
	}
	return cov
}
