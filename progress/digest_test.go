package progress_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/sitetrack/progress"
)

func TestDigestReport(t *testing.T) {
	// GIVEN: A report with weather, a plan and two photos
	p := project(task("A", "100"), task("B", "100"), task("C", "100"))
	r := report("r1", day(1), entry{"A", "10"}, entry{"C", "4"})
	r.Plan = []progress.PlanEntry{{TaskID: "A"}, {TaskID: "B"}}
	r.Weather = progress.Some([]progress.WeatherEntry{
		{Start: clock(8, 0), End: clock(9, 59), Condition: progress.WeatherSunny},
		{Start: clock(10, 0), End: clock(11, 29), Condition: progress.WeatherRainy},
		{Start: clock(12, 0), End: clock(12, 59), Condition: progress.WeatherHeavyRain},
	})
	r.Documentation = progress.Some([]progress.Documentation{
		{Image: "s3://site/1.jpg"},
		{Image: "s3://site/2.jpg", Description: progress.Some("formwork")},
	})
	vrs, err := validated(p, r)
	require.NoError(t, err)

	// WHEN: Digested
	d := progress.DigestReport(vrs[0])

	// THEN: Weather minutes, plan adherence and documents are counted
	minutes, ok := d.WeatherMinutes.Get()
	require.True(t, ok)
	assert.Equal(t, 120, minutes[progress.WeatherSunny])
	assert.Equal(t, 90, minutes[progress.WeatherRainy])
	assert.Equal(t, 60, minutes[progress.WeatherHeavyRain])
	assert.Equal(t, 150, d.RainMinutes.OrElse(-1))

	assert.Equal(t, []progress.TaskID{"A"}, d.PlannedDone)
	assert.Equal(t, []progress.TaskID{"B"}, d.PlannedMissing)
	assert.Equal(t, []progress.TaskID{"C"}, d.Unplanned)
	assert.Equal(t, 2, d.Documents)
}

func TestDigestReport_NoWeatherIsUnknown(t *testing.T) {
	p := project(task("A", "100"))
	vrs, err := validated(p, report("r1", day(1), entry{"A", "10"}))
	require.NoError(t, err)

	d := progress.DigestReport(vrs[0])

	assert.False(t, d.WeatherMinutes.IsPresent())
	assert.False(t, d.RainMinutes.IsPresent())
	assert.Equal(t, 0, d.Documents)
	assert.Empty(t, d.PlannedDone)
}
