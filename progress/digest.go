package progress

import (
	"sort"
)

// ReportDigest condenses the non-quantity parts of one accepted report.
type ReportDigest struct {
	ReportID ReportID `json:"report_id"`
	Date     Date     `json:"date"`

	// Minutes per weather condition. Intervals are closed: 08:00-08:59 is 60 minutes.
	// Unknown when the report carries no weather section.
	WeatherMinutes Optional[map[WeatherCondition]int] `json:"weather_minutes"`
	RainMinutes    Optional[int]                      `json:"rain_minutes"`

	// Planned tasks that received a value, and planned tasks that did not.
	PlannedDone    []TaskID `json:"planned_done"`
	PlannedMissing []TaskID `json:"planned_missing"`

	// Tasks that received a value without being in the plan section.
	Unplanned []TaskID `json:"unplanned"`

	Documents int `json:"documents"`
}

// DigestReport summarizes weather, plan adherence and documentation.
func DigestReport(vr ValidatedReport) ReportDigest {
	r := vr.Report()
	d := ReportDigest{
		ReportID:       r.ID,
		Date:           r.Date,
		PlannedDone:    []TaskID{},
		PlannedMissing: []TaskID{},
		Unplanned:      []TaskID{},
		Documents:      len(r.Documentation.OrElse(nil)),
	}

	if weather, ok := r.Weather.Get(); ok {
		minutes := make(map[WeatherCondition]int)
		rain := 0
		for _, w := range weather {
			n := int(w.End-w.Start) + 1
			minutes[w.Condition] += n
			if w.Condition.IsRain() {
				rain += n
			}
		}
		d.WeatherMinutes = Some(minutes)
		d.RainMinutes = Some(rain)
	}

	reported := make(map[TaskID]struct{}, len(r.Tasks))
	for _, e := range r.Tasks {
		reported[e.TaskID] = struct{}{}
	}
	planned := make(map[TaskID]struct{}, len(r.Plan))
	for _, p := range r.Plan {
		if _, dup := planned[p.TaskID]; dup {
			continue
		}
		planned[p.TaskID] = struct{}{}
		if _, ok := reported[p.TaskID]; ok {
			d.PlannedDone = append(d.PlannedDone, p.TaskID)
		} else {
			d.PlannedMissing = append(d.PlannedMissing, p.TaskID)
		}
	}
	for _, e := range r.Tasks {
		if _, ok := planned[e.TaskID]; !ok {
			d.Unplanned = append(d.Unplanned, e.TaskID)
		}
	}
	sort.Slice(d.Unplanned, func(i, j int) bool { return d.Unplanned[i] < d.Unplanned[j] })
	return d
}
