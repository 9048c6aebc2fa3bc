package progress_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/sitetrack/progress"
)

// summarize folds the reports for every task of p and rolls them up.
func summarize(t *testing.T, p progress.Project, cfg progress.HealthConfig, reports ...progress.ProjectReport) progress.ProjectSummary {
	t.Helper()
	vrs, err := validated(p, reports...)
	require.NoError(t, err)

	var timelines []progress.ProgressTimeline
	var series []progress.VarianceSeries
	for _, tk := range p.Tasks {
		tl, err := progress.Aggregate(tk, vrs)
		require.NoError(t, err)
		vs, err := progress.Variance(tl, tk.Estimation.OrElse(nil))
		require.NoError(t, err)
		timelines = append(timelines, tl)
		series = append(series, vs)
	}

	s, err := progress.Summarize(p, timelines, series, nil, cfg)
	require.NoError(t, err)
	return s
}

// =============================================================================
// WEIGHTED COMPLETION
// =============================================================================

func TestSummarize_VolumeWeightedCompletion(t *testing.T) {
	// GIVEN: A (volume 100) fully done, B (volume 300) half done
	p := project(task("A", "100"), task("B", "300"))

	// WHEN: Summarized
	s := summarize(t, p, progress.DefaultHealthConfig(),
		report("r1", day(1), entry{"A", "100"}, entry{"B", "150"}),
	)

	// THEN: (100*1.0 + 300*0.5) / 400 = 0.625
	c, ok := s.Completion.Get()
	require.True(t, ok)
	assert.Equal(t, "0.625", c.String())
	assert.Equal(t, progress.HealthOnTrack, s.Health)
}

func TestSummarize_ZeroVolumeTaskExcludedFromWeighting(t *testing.T) {
	p := project(task("A", "100"), task("Z", "0"))

	s := summarize(t, p, progress.DefaultHealthConfig(),
		report("r1", day(1), entry{"A", "50"}, entry{"Z", "7"}),
	)

	assert.Equal(t, "0.5", s.Completion.OrElse(dec("-1")).String())
	z, ok := s.Task("Z")
	require.True(t, ok)
	assert.False(t, z.Weighted)
	assert.False(t, z.PercentComplete.IsPresent())
	assert.Equal(t, "7", z.Cumulative.String())
}

func TestSummarize_NoWeightedTasks_CompletionUnknown(t *testing.T) {
	s := summarize(t, project(task("Z", "0")), progress.DefaultHealthConfig())

	assert.False(t, s.Completion.IsPresent())
	assert.False(t, s.BehindShare.IsPresent())
	assert.Equal(t, progress.HealthOnTrack, s.Health)
	z, _ := s.Task("Z")
	assert.Equal(t, "0", z.PercentComplete.OrElse(dec("-1")).String())
}

func TestSummarize_CostedZeroVolumeTask_ValuesUnknown(t *testing.T) {
	z := task("Z", "0", plan(day(1), "0"))
	z.Cost = progress.Some(dec("500"))

	s := summarize(t, project(z), progress.DefaultHealthConfig())

	zs, _ := s.Task("Z")
	assert.False(t, zs.EarnedValue.IsPresent())
	assert.False(t, zs.PlannedValue.IsPresent())
	assert.False(t, s.EarnedValue.IsPresent())
}

func TestSummarize_OverReportedTaskCappedInCompletion(t *testing.T) {
	p := project(task("A", "200"), task("B", "200"))

	s := summarize(t, p, progress.DefaultHealthConfig(),
		report("r1", day(1), entry{"A", "250"}),
	)

	assert.Equal(t, "0.5", s.Completion.OrElse(dec("-1")).String())
	a, _ := s.Task("A")
	assert.True(t, a.OverReported)
	assert.Equal(t, "1.25", a.RawRatio.OrElse(dec("-1")).String())
}

// =============================================================================
// HEALTH
// =============================================================================

func TestSummarize_Health(t *testing.T) {
	// A is small, B is large; both plan 50% by day 1.
	small := task("A", "100", plan(day(1), "50"))
	large := task("B", "300", plan(day(1), "150"))

	tests := []struct {
		name    string
		entries []entry
		want    progress.Health
		share   string
	}{
		{name: "all on plan", entries: []entry{{"A", "50"}, {"B", "150"}}, want: progress.HealthOnTrack, share: "0"},
		{name: "within tolerance", entries: []entry{{"A", "48"}, {"B", "150"}}, want: progress.HealthOnTrack, share: "0"},
		{name: "small task behind", entries: []entry{{"A", "10"}, {"B", "150"}}, want: progress.HealthAtRisk, share: "0.25"},
		{name: "large task behind", entries: []entry{{"A", "50"}, {"B", "10"}}, want: progress.HealthBehind, share: "0.75"},
		{name: "everything behind", entries: []entry{{"A", "0"}, {"B", "0"}}, want: progress.HealthBehind, share: "1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := summarize(t, project(small, large), progress.DefaultHealthConfig(),
				report("r1", day(1), tt.entries...),
			)
			assert.Equal(t, tt.want, s.Health)
			assert.Equal(t, tt.share, s.BehindShare.OrElse(dec("-1")).String())
		})
	}
}

func TestSummarize_HalfBehindIsNotMajority(t *testing.T) {
	p := project(task("A", "100", plan(day(1), "100")), task("B", "100", plan(day(1), "100")))

	s := summarize(t, p, progress.DefaultHealthConfig(), report("r1", day(1), entry{"A", "0"}, entry{"B", "100"}))

	assert.Equal(t, progress.HealthAtRisk, s.Health)
}

func TestSummarize_TaskWithoutReportsIsNotBehind(t *testing.T) {
	p := project(task("A", "100", plan(day(1), "100")))

	s := summarize(t, p, progress.DefaultHealthConfig())

	a, _ := s.Task("A")
	assert.False(t, a.Latest.IsPresent())
	assert.False(t, a.Behind)
	assert.Equal(t, progress.HealthOnTrack, s.Health)
}

// =============================================================================
// COST SIGNALS AND GROUPS
// =============================================================================

func TestSummarize_EarnedAndPlannedValue(t *testing.T) {
	// GIVEN: Task A costs 1000 for 100 m3; 40 done against 50 planned
	costed := task("A", "100", plan(day(1), "50"))
	costed.Cost = progress.Some(dec("1000"))
	p := project(costed, task("B", "100"))
	p.ContractValue = progress.Some(dec("5000"))

	s := summarize(t, p, progress.DefaultHealthConfig(), report("r1", day(1), entry{"A", "40"}))

	a, _ := s.Task("A")
	assert.Equal(t, "400", a.EarnedValue.OrElse(dec("-1")).String())
	assert.Equal(t, "500", a.PlannedValue.OrElse(dec("-1")).String())
	assert.Equal(t, "-100", a.ValueVariance.OrElse(dec("-1")).String())

	b, _ := s.Task("B")
	assert.False(t, b.EarnedValue.IsPresent())

	assert.Equal(t, "400", s.EarnedValue.OrElse(dec("-1")).String())
	assert.Equal(t, "500", s.PlannedValue.OrElse(dec("-1")).String())
	assert.Equal(t, "5000", s.ContractValue.OrElse(dec("-1")).String())
}

func TestSummarize_ReportBeforeFirstEstimation_PlannedValueUnknown(t *testing.T) {
	// GIVEN: A costed task planned from day 5, reported on day 1
	costed := task("A", "100", plan(day(5), "50"))
	costed.Cost = progress.Some(dec("1000"))

	// WHEN: Summarized
	s := summarize(t, project(costed), progress.DefaultHealthConfig(), report("r1", day(1), entry{"A", "40"}))

	// THEN: Earned value is known, planned value and its variance are not
	a, _ := s.Task("A")
	assert.Equal(t, "400", a.EarnedValue.OrElse(dec("-1")).String())
	assert.False(t, a.PlannedValue.IsPresent())
	assert.False(t, a.ValueVariance.IsPresent())
	assert.False(t, s.PlannedValue.IsPresent())
	assert.Equal(t, "400", s.EarnedValue.OrElse(dec("-1")).String())
}

func TestSummarize_CostedTaskWithoutReports_PlannedValueUnknown(t *testing.T) {
	costed := task("A", "100", plan(day(1), "50"))
	costed.Cost = progress.Some(dec("1000"))

	s := summarize(t, project(costed), progress.DefaultHealthConfig())

	a, _ := s.Task("A")
	assert.Equal(t, "0", a.EarnedValue.OrElse(dec("-1")).String())
	assert.False(t, a.PlannedValue.IsPresent())
	assert.False(t, a.ValueVariance.IsPresent())
}

func TestSummarize_NoCosts_ValuesUnknown(t *testing.T) {
	s := summarize(t, project(task("A", "100")), progress.DefaultHealthConfig())

	assert.False(t, s.EarnedValue.IsPresent())
	assert.False(t, s.PlannedValue.IsPresent())
}

func TestSummarize_Groups(t *testing.T) {
	pour := task("C", "100")
	pour.Group = "concrete"
	p := project(task("A", "100"), task("B", "300"), pour)

	s := summarize(t, p, progress.DefaultHealthConfig(),
		report("r1", day(1), entry{"A", "100"}, entry{"B", "150"}, entry{"C", "10"}),
	)

	require.Len(t, s.Groups, 2)
	assert.Equal(t, progress.GroupID("earthworks"), s.Groups[0].GroupID)
	assert.Equal(t, 2, s.Groups[0].Tasks)
	assert.Equal(t, "0.625", s.Groups[0].Completion.OrElse(dec("-1")).String())
	assert.Equal(t, "Concrete", s.Groups[1].Name)
	assert.Equal(t, "0.1", s.Groups[1].Completion.OrElse(dec("-1")).String())
}

func TestSummarize_MissingTimelineFails(t *testing.T) {
	p := project(task("A", "100"))

	_, err := progress.Summarize(p, nil, nil, nil, progress.DefaultHealthConfig())

	assert.True(t, errors.Is(err, progress.ErrIncompleteInput))
}

func TestSummarize_LaborTotals(t *testing.T) {
	days := []progress.AttendanceSummary{
		progress.Reconcile(attendance(day(1), worker("u-foreman", at(8, 0), at(17, 0)))),
		progress.Reconcile(attendance(day(2), worker("u-foreman", at(8, 0), nil), outsourced("ext-1", at(8, 0), at(9, 0)))),
	}

	s, err := progress.Summarize(project(), nil, nil, days, progress.DefaultHealthConfig())
	require.NoError(t, err)

	assert.Equal(t, 2, s.Labor.Days)
	assert.Equal(t, 540, s.Labor.Regular.KnownMinutes)
	assert.Equal(t, 1, s.Labor.Regular.UnknownEntries)
	assert.Equal(t, 60, s.Labor.Outsourced.KnownMinutes)
	assert.Len(t, s.Attendance, 2)
}
