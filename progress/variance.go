/*
variance.go - Plan vs actual at every report date

PURPOSE:
  For each point of a task's progress timeline, find what the plan said the
  cumulative value should be by then and report the difference.

KEY INSIGHT:
  The estimation is a step function: an entry (date, planned) means "as of
  this date, the plan is this cumulative value", until the next entry.
  Before the first entry there is no plan, and the variance is Unknown, not
  zero: zero would claim "on plan" when there is nothing to be on.

  Estimation [(day1, 100), (day5, 500)], actual 150 on day3
    Planned          = 100   (latest entry <= day3)
    ScheduleVariance = +50   (ahead)
    Ratio            = 1.5

  A planned value of zero leaves the ratio Unknown rather than infinite.

SEE ALSO:
  - aggregate.go: Produces the ProgressTimeline
  - summary.go: Uses the latest point for project health
*/
package progress

import (
	"sort"

	"github.com/shopspring/decimal"
)

// VariancePoint compares actual and planned cumulative values on one date.
type VariancePoint struct {
	Date   Date            `json:"date"`
	Actual decimal.Decimal `json:"actual"`

	// Unknown when no estimation entry is on or before Date.
	Planned Optional[decimal.Decimal] `json:"planned"`

	// Actual - Planned. Positive is ahead, negative is behind.
	ScheduleVariance Optional[decimal.Decimal] `json:"schedule_variance"`

	// Actual / Planned. Unknown when Planned is unknown or zero.
	Ratio Optional[decimal.Decimal] `json:"ratio"`
}

// IsBehind reports whether actual trails the plan by more than tolerance,
// expressed as a fraction of the planned value (0.05 = 5%).
func (p VariancePoint) IsBehind(tolerance decimal.Decimal) bool {
	sv, ok := p.ScheduleVariance.Get()
	if !ok || !sv.IsNegative() {
		return false
	}
	planned, _ := p.Planned.Get()
	return sv.Neg().GreaterThan(planned.Mul(tolerance))
}

// VarianceSeries holds one point per timeline point, chronologically.
type VarianceSeries struct {
	TaskID TaskID          `json:"task_id"`
	Points []VariancePoint `json:"points"`
}

// Latest returns the most recent point.
func (s VarianceSeries) Latest() (VariancePoint, bool) {
	if len(s.Points) == 0 {
		return VariancePoint{}, false
	}
	return s.Points[len(s.Points)-1], true
}

// Variance compares the timeline against a date-ordered estimation.
// An estimation that is not strictly increasing in date is rejected.
func Variance(timeline ProgressTimeline, estimation []Estimation) (VarianceSeries, error) {
	if err := CheckEstimation(timeline.TaskID, estimation); err != nil {
		return VarianceSeries{}, err
	}

	series := VarianceSeries{
		TaskID: timeline.TaskID,
		Points: make([]VariancePoint, 0, len(timeline.Points)),
	}
	for _, p := range timeline.Points {
		point := VariancePoint{Date: p.Date, Actual: p.Cumulative}
		if planned, ok := PlannedAt(estimation, p.Date); ok {
			point.Planned = Some(planned)
			point.ScheduleVariance = Some(p.Cumulative.Sub(planned))
			if planned.IsPositive() {
				point.Ratio = Some(p.Cumulative.Div(planned))
			}
		}
		series.Points = append(series.Points, point)
	}
	return series, nil
}

// PlannedAt returns the planned cumulative value of the latest entry on or
// before the date. The estimation must be sorted.
func PlannedAt(estimation []Estimation, at Date) (decimal.Decimal, bool) {
	// First entry strictly after 'at'; the one before it is in effect.
	i := sort.Search(len(estimation), func(i int) bool {
		return estimation[i].Date.After(at)
	})
	if i == 0 {
		return decimal.Zero, false
	}
	return estimation[i-1].Planned, true
}
