package progress_test

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/sitetrack/progress"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

const projectID progress.ProjectID = "prj-1"

func day(n int) progress.Date {
	return progress.NewDate(2025, time.March, n)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func clock(h, m int) progress.MinuteOfDay {
	return progress.NewMinuteOfDay(h, m)
}

func task(id progress.TaskID, volume string, estimation ...progress.Estimation) progress.Task {
	t := progress.Task{
		ID:     id,
		Group:  "earthworks",
		Name:   string(id),
		Volume: progress.Volume{Value: dec(volume), Unit: "m3"},
	}
	if len(estimation) > 0 {
		t.Estimation = progress.Some(estimation)
	}
	return t
}

func plan(d progress.Date, planned string) progress.Estimation {
	return progress.Estimation{Date: d, Planned: dec(planned)}
}

func project(tasks ...progress.Task) progress.Project {
	return progress.Project{
		ID:     projectID,
		Name:   "North Embankment",
		Groups: []progress.Group{{ID: "earthworks", Name: "Earthworks"}, {ID: "concrete", Name: "Concrete"}},
		Tasks:  tasks,
		Users: []progress.ProjectUser{
			{UserID: "u-foreman", Role: "foreman"},
			{UserID: "u-operator", Role: "operator"},
		},
	}
}

type entry struct {
	task  progress.TaskID
	value string
}

func attendanceID(d progress.Date) progress.AttendanceID {
	return progress.AttendanceID("att-" + d.String())
}

func report(id progress.ReportID, d progress.Date, entries ...entry) progress.ProjectReport {
	r := progress.ProjectReport{
		ID:           id,
		ProjectID:    projectID,
		Date:         d,
		AttendanceID: attendanceID(d),
		ReportedBy:   "u-foreman",
	}
	for _, e := range entries {
		r.Tasks = append(r.Tasks, progress.ReportEntry{TaskID: e.task, Value: dec(e.value)})
	}
	return r
}

func attendance(d progress.Date, entries ...progress.AttendanceEntry) progress.ProjectAttendance {
	return progress.ProjectAttendance{
		ID:        attendanceID(d),
		ProjectID: projectID,
		Date:      d,
		Entries:   entries,
	}
}

func worker(user progress.UserID, entry, exit *progress.MinuteOfDay) progress.AttendanceEntry {
	e := progress.AttendanceEntry{UserID: user, Name: string(user), Role: "crew"}
	if entry != nil {
		e.Entry = progress.Some(*entry)
	}
	if exit != nil {
		e.Exit = progress.Some(*exit)
	}
	return e
}

func at(h, m int) *progress.MinuteOfDay {
	return ptr(clock(h, m))
}

func ptr[T any](v T) *T {
	return &v
}

// validated runs the reports through a fresh validator with attendance for every report day.
func validated(p progress.Project, reports ...progress.ProjectReport) ([]progress.ValidatedReport, error) {
	var atts []progress.ProjectAttendance
	for _, r := range reports {
		atts = append(atts, attendance(r.Date))
	}
	v := progress.NewValidator(p, progress.NewAttendanceIndex(atts))
	out := make([]progress.ValidatedReport, 0, len(reports))
	for _, r := range reports {
		vr, err := v.Validate(r)
		if err != nil {
			return nil, err
		}
		out = append(out, vr)
	}
	return out, nil
}
