package progress

import (
	"github.com/shopspring/decimal"
)

// CurvePoint is the project's volume-weighted completion on one day.
type CurvePoint struct {
	Date Date `json:"date"`

	// Unknown until the first estimation entry of any task takes effect.
	Planned Optional[decimal.Decimal] `json:"planned"`
	Actual  decimal.Decimal           `json:"actual"`
}

// ProgressCurve returns one point per calendar day from the earliest
// estimation or report date to the latest, weighting each task by volume.
// Per-task shares are capped at 1 so an over-reported task cannot carry
// the others. Tasks with volume 0 are left out; with no weighted task the
// curve is empty.
func ProgressCurve(project Project, timelines []ProgressTimeline) []CurvePoint {
	byTask := make(map[TaskID]ProgressTimeline, len(timelines))
	for _, tl := range timelines {
		byTask[tl.TaskID] = tl
	}

	var weighted []Task
	weight := decimal.Zero
	var span Period
	hasSpan := false
	widen := func(d Date) {
		if !hasSpan {
			span = Period{Start: d, End: d}
			hasSpan = true
			return
		}
		if d.Before(span.Start) {
			span.Start = d
		}
		if d.After(span.End) {
			span.End = d
		}
	}

	for _, task := range project.Tasks {
		if !task.Volume.Value.IsPositive() {
			continue
		}
		weighted = append(weighted, task)
		weight = weight.Add(task.Volume.Value)
		for _, e := range task.Estimation.OrElse(nil) {
			widen(e.Date)
		}
		for _, p := range byTask[task.ID].Points {
			widen(p.Date)
		}
	}
	if len(weighted) == 0 || !hasSpan {
		return []CurvePoint{}
	}

	days := span.Days()
	curve := make([]CurvePoint, 0, len(days))
	for _, day := range days {
		planned := decimal.Zero
		anyPlan := false
		actual := decimal.Zero
		for _, task := range weighted {
			vol := task.Volume.Value
			if p, ok := PlannedAt(task.Estimation.OrElse(nil), day); ok {
				anyPlan = true
				planned = planned.Add(decimal.Min(p.Div(vol), one).Mul(vol))
			}
			done := byTask[task.ID].CumulativeAt(day)
			actual = actual.Add(decimal.Min(done.Div(vol), one).Mul(vol))
		}

		point := CurvePoint{Date: day, Actual: actual.Div(weight)}
		if anyPlan {
			point.Planned = Some(planned.Div(weight))
		}
		curve = append(curve, point)
	}
	return curve
}
