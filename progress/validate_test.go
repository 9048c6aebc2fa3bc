package progress_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/sitetrack/progress"
)

func newValidator(p progress.Project, days ...progress.Date) *progress.Validator {
	var atts []progress.ProjectAttendance
	for _, d := range days {
		atts = append(atts, attendance(d))
	}
	return progress.NewValidator(p, progress.NewAttendanceIndex(atts))
}

func requireKind(t *testing.T, err error, kind progress.ErrorKind) *progress.ValidationError {
	t.Helper()
	var verr *progress.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, kind, verr.Kind, "error: %v", err)
	return verr
}

// =============================================================================
// REPORT VALIDATION
// =============================================================================

func TestValidate_AcceptsWellFormedReport(t *testing.T) {
	// GIVEN: A project with two tasks and attendance for the day
	p := project(task("A", "100"), task("B", "300"))
	v := newValidator(p, day(1))

	// WHEN: A report gives both tasks a value
	vr, err := v.Validate(report("r1", day(1), entry{"A", "10"}, entry{"B", "20"}))

	// THEN: It is accepted unchanged
	require.NoError(t, err)
	assert.Equal(t, progress.ReportID("r1"), vr.ID())
	assert.True(t, vr.Date().Equal(day(1)))
	assert.Len(t, vr.Report().Tasks, 2)
}

func TestValidate_UnknownTaskInTaskSection(t *testing.T) {
	v := newValidator(project(task("A", "100")), day(1))

	_, err := v.Validate(report("r1", day(1), entry{"Z", "10"}))

	verr := requireKind(t, err, progress.KindUnknownTaskReference)
	assert.Equal(t, progress.TaskID("Z"), verr.TaskID)
	assert.Equal(t, progress.ReportID("r1"), verr.ReportID)
	assert.True(t, errors.Is(err, progress.ErrUnknownTaskReference))
}

func TestValidate_UnknownTaskInPlanSection(t *testing.T) {
	v := newValidator(project(task("A", "100")), day(1))
	r := report("r1", day(1), entry{"A", "10"})
	r.Plan = []progress.PlanEntry{{TaskID: "ghost"}}

	_, err := v.Validate(r)

	verr := requireKind(t, err, progress.KindUnknownTaskReference)
	assert.Equal(t, progress.TaskID("ghost"), verr.TaskID)
}

func TestValidate_DuplicateTaskInReport(t *testing.T) {
	v := newValidator(project(task("A", "100")), day(1))

	_, err := v.Validate(report("r1", day(1), entry{"A", "10"}, entry{"A", "5"}))

	requireKind(t, err, progress.KindDuplicateTaskInReport)
}

func TestValidate_NegativeValueRejected(t *testing.T) {
	v := newValidator(project(task("A", "100")), day(1))

	_, err := v.Validate(report("r1", day(1), entry{"A", "-3"}))

	requireKind(t, err, progress.KindInvalidReportValue)
}

func TestValidate_ProjectMismatch(t *testing.T) {
	v := newValidator(project(task("A", "100")), day(1))
	r := report("r1", day(1), entry{"A", "10"})
	r.ProjectID = "other"

	_, err := v.Validate(r)

	requireKind(t, err, progress.KindProjectMismatch)
}

func TestValidate_Weather(t *testing.T) {
	tests := []struct {
		name    string
		weather []progress.WeatherEntry
		kind    progress.ErrorKind
	}{
		{
			name: "disjoint intervals",
			weather: []progress.WeatherEntry{
				{Start: clock(8, 0), End: clock(9, 59), Condition: progress.WeatherSunny},
				{Start: clock(10, 0), End: clock(12, 0), Condition: progress.WeatherRainy},
			},
		},
		{
			name: "overlapping intervals",
			weather: []progress.WeatherEntry{
				{Start: clock(8, 0), End: clock(10, 0), Condition: progress.WeatherSunny},
				{Start: clock(9, 0), End: clock(12, 0), Condition: progress.WeatherRainy},
			},
			kind: progress.KindOverlappingWeather,
		},
		{
			name: "touching intervals share a minute",
			weather: []progress.WeatherEntry{
				{Start: clock(10, 0), End: clock(12, 0), Condition: progress.WeatherRainy},
				{Start: clock(8, 0), End: clock(10, 0), Condition: progress.WeatherSunny},
			},
			kind: progress.KindOverlappingWeather,
		},
		{
			name: "start after end",
			weather: []progress.WeatherEntry{
				{Start: clock(14, 0), End: clock(13, 0), Condition: progress.WeatherCloudy},
			},
			kind: progress.KindInvalidWeatherInterval,
		},
		{
			name: "past end of day",
			weather: []progress.WeatherEntry{
				{Start: clock(23, 0), End: progress.MinuteOfDay(1440), Condition: progress.WeatherCloudy},
			},
			kind: progress.KindInvalidWeatherInterval,
		},
		{
			name: "whole day",
			weather: []progress.WeatherEntry{
				{Start: progress.FirstMinute, End: progress.LastMinute, Condition: progress.WeatherHeavyRain},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newValidator(project(task("A", "100")), day(1))
			r := report("r1", day(1), entry{"A", "10"})
			r.Weather = progress.Some(tt.weather)

			_, err := v.Validate(r)

			if tt.kind == "" {
				assert.NoError(t, err)
				return
			}
			requireKind(t, err, tt.kind)
		})
	}
}

func TestValidate_AttendanceReference(t *testing.T) {
	p := project(task("A", "100"))

	t.Run("missing record", func(t *testing.T) {
		v := newValidator(p)
		_, err := v.Validate(report("r1", day(1), entry{"A", "10"}))
		requireKind(t, err, progress.KindAttendanceMismatch)
	})

	t.Run("different date", func(t *testing.T) {
		wrong := attendance(day(2))
		wrong.ID = attendanceID(day(1))
		v := progress.NewValidator(p, progress.NewAttendanceIndex([]progress.ProjectAttendance{wrong}))
		_, err := v.Validate(report("r1", day(1), entry{"A", "10"}))
		requireKind(t, err, progress.KindAttendanceMismatch)
	})

	t.Run("different project", func(t *testing.T) {
		wrong := attendance(day(1))
		wrong.ProjectID = "other"
		v := progress.NewValidator(p, progress.NewAttendanceIndex([]progress.ProjectAttendance{wrong}))
		_, err := v.Validate(report("r1", day(1), entry{"A", "10"}))
		requireKind(t, err, progress.KindAttendanceMismatch)
	})

	t.Run("nil lookup", func(t *testing.T) {
		v := progress.NewValidator(p, nil)
		_, err := v.Validate(report("r1", day(1), entry{"A", "10"}))
		requireKind(t, err, progress.KindAttendanceMismatch)
	})
}

func TestValidate_SameTaskSameDateTwice_SecondRejected(t *testing.T) {
	// GIVEN: A report for task A on day 1 was accepted
	v := newValidator(project(task("A", "100"), task("B", "100")), day(1))
	_, err := v.Validate(report("r1", day(1), entry{"A", "10"}))
	require.NoError(t, err)

	// WHEN: Another report gives A a value on the same day
	_, err = v.Validate(report("r2", day(1), entry{"B", "5"}, entry{"A", "3"}))

	// THEN: The second is rejected and names the colliding task
	verr := requireKind(t, err, progress.KindDuplicateReportDate)
	assert.Equal(t, progress.TaskID("A"), verr.TaskID)
	assert.Equal(t, progress.ReportID("r2"), verr.ReportID)
	assert.True(t, progress.IsConflict(err))
}

func TestValidate_RejectedReportLeavesNoTrace(t *testing.T) {
	// GIVEN: A report rejected for a bad weather interval
	v := newValidator(project(task("A", "100")), day(1))
	bad := report("r1", day(1), entry{"A", "10"})
	bad.Weather = progress.Some([]progress.WeatherEntry{{Start: clock(9, 0), End: clock(8, 0), Condition: progress.WeatherSunny}})
	_, err := v.Validate(bad)
	require.Error(t, err)

	// WHEN: A corrected report for the same task and day arrives
	_, err = v.Validate(report("r1", day(1), entry{"A", "10"}))

	// THEN: It is accepted
	assert.NoError(t, err)
}

func TestValidate_DuplicateReportID(t *testing.T) {
	v := newValidator(project(task("A", "100")), day(1), day(2))
	_, err := v.Validate(report("r1", day(1), entry{"A", "10"}))
	require.NoError(t, err)

	_, err = v.Validate(report("r1", day(2), entry{"A", "10"}))

	requireKind(t, err, progress.KindDuplicateReportID)
	assert.True(t, errors.Is(err, progress.ErrDuplicateRecord))
}

func TestValidate_PlanOnlyReportsDoNotCollide(t *testing.T) {
	// Plan entries carry no value, so they cannot double count.
	v := newValidator(project(task("A", "100")), day(1))
	first := report("r1", day(1))
	first.Plan = []progress.PlanEntry{{TaskID: "A"}}
	second := report("r2", day(1), entry{"A", "4"})

	_, err := v.Validate(first)
	require.NoError(t, err)
	_, err = v.Validate(second)
	assert.NoError(t, err)
}

// =============================================================================
// ATTENDANCE VALIDATION
// =============================================================================

func TestValidateAttendance(t *testing.T) {
	p := project(task("A", "100"))

	tests := []struct {
		name  string
		entry progress.AttendanceEntry
		kind  progress.ErrorKind
	}{
		{name: "full day", entry: worker("u-foreman", at(8, 0), at(17, 0))},
		{name: "still on site", entry: worker("u-foreman", at(8, 0), nil)},
		{name: "no entry", entry: worker("u-foreman", nil, at(17, 0))},
		{name: "exit before entry", entry: worker("u-foreman", at(17, 0), at(8, 0)), kind: progress.KindInvalidAttendanceInterval},
		{name: "entry out of range", entry: worker("u-foreman", ptr(progress.MinuteOfDay(-5)), nil), kind: progress.KindInvalidAttendanceInterval},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := progress.ValidateAttendance(attendance(day(1), tt.entry), p)
			if tt.kind == "" {
				assert.NoError(t, err)
				return
			}
			requireKind(t, err, tt.kind)
		})
	}
}

func TestValidateAttendance_OtherProject(t *testing.T) {
	att := attendance(day(1))
	att.ProjectID = "other"

	err := progress.ValidateAttendance(att, project())

	requireKind(t, err, progress.KindAttendanceMismatch)
}

// =============================================================================
// PROJECT VALIDATION
// =============================================================================

func TestValidateProject(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		p := project(task("A", "100", plan(day(1), "10"), plan(day(5), "50")), task("B", "0"))
		assert.NoError(t, progress.ValidateProject(p))
	})

	t.Run("estimation out of order", func(t *testing.T) {
		p := project(task("A", "100", plan(day(5), "50"), plan(day(1), "10")))
		requireKind(t, progress.ValidateProject(p), progress.KindUnsortedEstimation)
	})

	t.Run("estimation with repeated date", func(t *testing.T) {
		p := project(task("A", "100", plan(day(1), "10"), plan(day(1), "20")))
		requireKind(t, progress.ValidateProject(p), progress.KindUnsortedEstimation)
	})

	t.Run("duplicate task id", func(t *testing.T) {
		p := project(task("A", "100"), task("A", "50"))
		requireKind(t, progress.ValidateProject(p), progress.KindDuplicateTaskID)
	})

	t.Run("unknown group", func(t *testing.T) {
		bad := task("A", "100")
		bad.Group = "roofing"
		requireKind(t, progress.ValidateProject(project(bad)), progress.KindUnknownGroup)
	})

	t.Run("negative volume", func(t *testing.T) {
		requireKind(t, progress.ValidateProject(project(task("A", "-1"))), progress.KindInvalidVolume)
	})

	t.Run("duplicate user", func(t *testing.T) {
		p := project(task("A", "100"))
		p.Users = append(p.Users, progress.ProjectUser{UserID: "u-foreman", Role: "crew"})
		requireKind(t, progress.ValidateProject(p), progress.KindDuplicateProjectUser)
	})
}

func TestValidationError_Message(t *testing.T) {
	err := &progress.ValidationError{
		Kind:      progress.KindDuplicateReportDate,
		ProjectID: projectID,
		ReportID:  "r2",
		TaskID:    "A",
		Date:      progress.Some(day(1)),
		Detail:    "already reported by r1",
	}

	assert.Equal(t, "DuplicateReportDate (project=prj-1 report=r2 task=A date=2025-03-01): already reported by r1", err.Error())
	assert.True(t, progress.IsClientError(err))
	assert.False(t, progress.IsNotFound(err))
}
