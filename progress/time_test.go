package progress_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/sitetrack/progress"
)

func TestDate_TextRoundTrip(t *testing.T) {
	d, err := progress.ParseDate("2025-03-14")
	require.NoError(t, err)
	assert.True(t, d.Equal(progress.NewDate(2025, time.March, 14)))

	b, err := json.Marshal(struct{ D progress.Date }{d})
	require.NoError(t, err)
	assert.JSONEq(t, `{"D":"2025-03-14"}`, string(b))

	_, err = progress.ParseDate("14/03/2025")
	assert.Error(t, err)
}

func TestDate_DateOfDropsClock(t *testing.T) {
	local := time.FixedZone("UTC-5", -5*3600)
	d := progress.DateOf(time.Date(2025, 3, 14, 23, 30, 0, 0, local))

	assert.Equal(t, "2025-03-14", d.String())
	assert.Equal(t, "2025-03-17", d.AddDays(3).String())
}

func TestPeriod_Days(t *testing.T) {
	p := progress.Period{Start: day(30), End: progress.NewDate(2025, time.April, 2)}

	days := p.Days()

	require.Len(t, days, 4)
	assert.Equal(t, "2025-03-31", days[1].String())
	assert.Equal(t, "2025-04-02", days[3].String())
}

func TestParseClock(t *testing.T) {
	m, err := progress.ParseClock("08:30")
	require.NoError(t, err)
	assert.Equal(t, progress.MinuteOfDay(510), m)
	assert.Equal(t, "08:30", m.String())

	m, err = progress.ParseClock("7:05")
	require.NoError(t, err)
	assert.Equal(t, progress.MinuteOfDay(425), m)

	for _, bad := range []string{"24:00", "7:60", "noon", "", "08:30pm", "8:5xyz", "08:30 ", "8:5"} {
		_, err := progress.ParseClock(bad)
		assert.Error(t, err, bad)
	}
}

func TestOptional_JSON(t *testing.T) {
	type doc struct {
		Cost  progress.Optional[int]    `json:"cost"`
		Notes progress.Optional[string] `json:"notes"`
	}

	b, err := json.Marshal(doc{Cost: progress.Some(0)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"cost":0,"notes":null}`, string(b))

	var back doc
	require.NoError(t, json.Unmarshal([]byte(`{"cost":null,"notes":"ok"}`), &back))
	assert.False(t, back.Cost.IsPresent())
	assert.Equal(t, "ok", back.Notes.OrElse(""))
}

func TestWeatherCondition_Parse(t *testing.T) {
	for in, want := range map[string]progress.WeatherCondition{
		"sunny":      progress.WeatherSunny,
		"Cloudy":     progress.WeatherCloudy,
		"heavy rain": progress.WeatherHeavyRain,
		"heavy_rain": progress.WeatherHeavyRain,
	} {
		got, err := progress.ParseWeatherCondition(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := progress.ParseWeatherCondition("hail")
	assert.Error(t, err)
	assert.True(t, progress.WeatherHeavyRain.IsRain())
	assert.False(t, progress.WeatherCloudy.IsRain())
}
