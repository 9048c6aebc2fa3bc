/*
aggregate.go - Cumulative progress timelines

PURPOSE:
  Folds the accepted reports of one task into a running total. Each report
  value is that day's increment, so the timeline is the chronological
  running sum of increments, one point per report date.

KEY INSIGHT:
  Completion is clamped to 1.0 for display, but over-reporting is real in the
  field and must stay visible: the unclamped ratio is kept next to it.

  Volume 200, reported 100 + 150 = 250
    PercentComplete = 1.0
    RawRatio        = 1.25

CONTRACT:
  Reports must already be validated and ordered by date. Two reports giving
  the task a value on the same date, or a date going backwards, is a caller
  bug and fails the whole fold instead of producing a partial timeline.

SEE ALSO:
  - validate.go: Produces ValidatedReport
  - variance.go: Compares the timeline against the plan
*/
package progress

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var one = decimal.NewFromInt(1)

// ProgressPoint is the state of a task after one report.
type ProgressPoint struct {
	Date       Date            `json:"date"`
	ReportID   ReportID        `json:"report_id"`
	Increment  decimal.Decimal `json:"increment"`
	Cumulative decimal.Decimal `json:"cumulative"`
}

// ProgressTimeline is the chronological cumulative progress of one task.
type ProgressTimeline struct {
	TaskID TaskID          `json:"task_id"`
	Target Volume          `json:"target"`
	Points []ProgressPoint `json:"points"`

	// Cumulative value after the last point (zero without reports).
	Cumulative decimal.Decimal `json:"cumulative"`

	// min(1, Cumulative / Target). Unknown when the target volume is zero.
	PercentComplete Optional[decimal.Decimal] `json:"percent_complete"`

	// Cumulative / Target without clamping. Unknown when the target volume is zero.
	RawRatio Optional[decimal.Decimal] `json:"raw_ratio"`
}

// CumulativeAt returns the cumulative value as of the given date.
func (t ProgressTimeline) CumulativeAt(at Date) decimal.Decimal {
	total := decimal.Zero
	for _, p := range t.Points {
		if p.Date.After(at) {
			break
		}
		total = p.Cumulative
	}
	return total
}

// IsOverReported reports whether more than the target volume was reported.
func (t ProgressTimeline) IsOverReported() bool {
	r, ok := t.RawRatio.Get()
	return ok && r.GreaterThan(one)
}

// Aggregate folds the task's entries from the reports into a timeline.
// Reports that do not mention the task are skipped.
func Aggregate(task Task, reports []ValidatedReport) (ProgressTimeline, error) {
	timeline := ProgressTimeline{
		TaskID:     task.ID,
		Target:     task.Volume,
		Points:     []ProgressPoint{},
		Cumulative: decimal.Zero,
	}

	for _, vr := range reports {
		r := vr.Report()
		value, ok := entryFor(r, task.ID)
		if !ok {
			continue
		}

		if n := len(timeline.Points); n > 0 {
			last := timeline.Points[n-1]
			if r.Date.Equal(last.Date) {
				return ProgressTimeline{}, &ValidationError{
					Kind: KindDuplicateReportDate, ProjectID: r.ProjectID, ReportID: r.ID, TaskID: task.ID,
					Date: Some(r.Date), Detail: "already reported by " + string(last.ReportID),
				}
			}
			if r.Date.Before(last.Date) {
				return ProgressTimeline{}, &ValidationError{
					Kind: KindUnsortedReports, ProjectID: r.ProjectID, ReportID: r.ID, TaskID: task.ID,
					Date: Some(r.Date), Detail: fmt.Sprintf("follows report %s dated %s", last.ReportID, last.Date),
				}
			}
		}

		timeline.Cumulative = timeline.Cumulative.Add(value)
		timeline.Points = append(timeline.Points, ProgressPoint{
			Date:       r.Date,
			ReportID:   r.ID,
			Increment:  value,
			Cumulative: timeline.Cumulative,
		})
	}

	switch {
	case !task.Volume.Value.IsZero():
		ratio := timeline.Cumulative.Div(task.Volume.Value)
		timeline.RawRatio = Some(ratio)
		timeline.PercentComplete = Some(decimal.Min(ratio, one))
	case len(timeline.Points) == 0:
		// Nothing reported is 0 done even against a zero target; the ratio stays undefined.
		timeline.PercentComplete = Some(decimal.Zero)
	}
	return timeline, nil
}

func entryFor(r ProjectReport, id TaskID) (decimal.Decimal, bool) {
	for _, e := range r.Tasks {
		if e.TaskID == id {
			return e.Value, true
		}
	}
	return decimal.Zero, false
}
