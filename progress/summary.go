/*
summary.go - Project rollup and health

PURPOSE:
  Joins every task's timeline and variance into one project view: a
  volume-weighted completion figure, a health status, per-group rollups,
  cost signals and the day-by-day attendance summaries.

WEIGHTED COMPLETION:
  Larger tasks move the project figure proportionally more.

    Task A: volume 100, complete 1.0
    Task B: volume 300, complete 0.5
    Project = (100*1.0 + 300*0.5) / 400 = 0.625

  A task with volume 0 has no completion ratio; it is listed but left out of
  the weighted average. With no weighted task at all, completion is Unknown.

HEALTH:
  A task is behind when its latest variance point trails the plan by more
  than BehindTolerance (a fraction of the planned value). Tasks without a
  known plan at their latest report are never behind.

    no task behind                               -> OnTrack
    behind volume share > MajorityShare          -> Behind
    otherwise                                    -> AtRisk

COST SIGNALS:
  For a task with a cost and a positive volume:
    EarnedValue  = PercentComplete * Cost
    PlannedValue = min(1, Planned / Volume) * Cost   (latest variance point)
    ValueVariance = EarnedValue - PlannedValue

SEE ALSO:
  - aggregate.go, variance.go, attendance.go: Inputs
  - curve.go: Day-by-day planned vs actual completion
*/
package progress

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CONFIGURATION
// =============================================================================

// HealthConfig tunes the health status. Tolerance differs by project type.
type HealthConfig struct {
	// Fraction of the planned value a task may trail before it counts as behind.
	BehindTolerance decimal.Decimal

	// Volume share of behind tasks above which the project is Behind.
	MajorityShare decimal.Decimal
}

func DefaultHealthConfig() HealthConfig {
	return HealthConfig{
		BehindTolerance: decimal.RequireFromString("0.05"),
		MajorityShare:   decimal.RequireFromString("0.5"),
	}
}

type Health string

const (
	HealthOnTrack Health = "on_track"
	HealthAtRisk  Health = "at_risk"
	HealthBehind  Health = "behind"
)

// =============================================================================
// SUMMARY TYPES
// =============================================================================

type TaskSummary struct {
	TaskID          TaskID                    `json:"task_id"`
	Name            string                    `json:"name"`
	Group           GroupID                   `json:"group"`
	Volume          Volume                    `json:"volume"`
	Cumulative      decimal.Decimal           `json:"cumulative"`
	PercentComplete Optional[decimal.Decimal] `json:"percent_complete"`
	RawRatio        Optional[decimal.Decimal] `json:"raw_ratio"`
	OverReported    bool                      `json:"over_reported"`

	// Included in the project's weighted completion (volume > 0).
	Weighted bool `json:"weighted"`

	// Latest variance point; absent for a task with no reports.
	Latest Optional[VariancePoint] `json:"latest"`
	Behind bool                    `json:"behind"`

	Cost          Optional[decimal.Decimal] `json:"cost"`
	EarnedValue   Optional[decimal.Decimal] `json:"earned_value"`
	PlannedValue  Optional[decimal.Decimal] `json:"planned_value"`
	ValueVariance Optional[decimal.Decimal] `json:"value_variance"`
}

type GroupSummary struct {
	GroupID    GroupID                   `json:"group_id"`
	Name       string                    `json:"name"`
	Tasks      int                       `json:"tasks"`
	Completion Optional[decimal.Decimal] `json:"completion"`
}

// LaborTotals sums attendance over every reconciled day.
type LaborTotals struct {
	Days       int        `json:"days"`
	Regular    CrewTotals `json:"regular"`
	Outsourced CrewTotals `json:"outsourced"`
}

type ProjectSummary struct {
	ProjectID ProjectID `json:"project_id"`
	Name      string    `json:"name"`

	// Volume-weighted completion. Unknown when no task has a positive volume.
	Completion Optional[decimal.Decimal] `json:"completion"`
	Health     Health                    `json:"health"`

	// Volume share of behind tasks. Unknown when no task has a positive volume.
	BehindShare Optional[decimal.Decimal] `json:"behind_share"`

	Tasks      []TaskSummary       `json:"tasks"`
	Groups     []GroupSummary      `json:"groups"`
	Attendance []AttendanceSummary `json:"attendance"`
	Labor      LaborTotals         `json:"labor"`

	ContractValue Optional[decimal.Decimal] `json:"contract_value"`
	EarnedValue   Optional[decimal.Decimal] `json:"earned_value"`
	PlannedValue  Optional[decimal.Decimal] `json:"planned_value"`
}

// Task returns the summary of one task.
func (s ProjectSummary) Task(id TaskID) (TaskSummary, bool) {
	for _, t := range s.Tasks {
		if t.TaskID == id {
			return t, true
		}
	}
	return TaskSummary{}, false
}

// =============================================================================
// SUMMARIZER
// =============================================================================

// Summarize rolls task results up to the project. Every project task must
// have a timeline and a variance series; tasks are reported in project order.
func Summarize(
	project Project,
	timelines []ProgressTimeline,
	variances []VarianceSeries,
	attendance []AttendanceSummary,
	cfg HealthConfig,
) (ProjectSummary, error) {
	byTimeline := make(map[TaskID]ProgressTimeline, len(timelines))
	for _, t := range timelines {
		byTimeline[t.TaskID] = t
	}
	byVariance := make(map[TaskID]VarianceSeries, len(variances))
	for _, v := range variances {
		byVariance[v.TaskID] = v
	}

	summary := ProjectSummary{
		ProjectID:     project.ID,
		Name:          project.Name,
		Tasks:         make([]TaskSummary, 0, len(project.Tasks)),
		Attendance:    attendance,
		ContractValue: project.ContractValue,
	}
	if summary.Attendance == nil {
		summary.Attendance = []AttendanceSummary{}
	}

	for _, task := range project.Tasks {
		tl, ok := byTimeline[task.ID]
		if !ok {
			return ProjectSummary{}, fmt.Errorf("%w: no timeline for task %s", ErrIncompleteInput, task.ID)
		}
		vs, ok := byVariance[task.ID]
		if !ok {
			return ProjectSummary{}, fmt.Errorf("%w: no variance series for task %s", ErrIncompleteInput, task.ID)
		}
		summary.Tasks = append(summary.Tasks, summarizeTask(task, tl, vs, cfg))
	}

	summary.Completion = weightedCompletion(summary.Tasks)
	summary.BehindShare, summary.Health = health(summary.Tasks, cfg)
	summary.Groups = summarizeGroups(project, summary.Tasks)
	summary.EarnedValue = sumKnown(summary.Tasks, func(t TaskSummary) Optional[decimal.Decimal] { return t.EarnedValue })
	summary.PlannedValue = sumKnown(summary.Tasks, func(t TaskSummary) Optional[decimal.Decimal] { return t.PlannedValue })
	summary.Labor = laborTotals(summary.Attendance)
	return summary, nil
}

func summarizeTask(task Task, tl ProgressTimeline, vs VarianceSeries, cfg HealthConfig) TaskSummary {
	ts := TaskSummary{
		TaskID:          task.ID,
		Name:            task.Name,
		Group:           task.Group,
		Volume:          task.Volume,
		Cumulative:      tl.Cumulative,
		PercentComplete: tl.PercentComplete,
		RawRatio:        tl.RawRatio,
		OverReported:    tl.IsOverReported(),
		Weighted:        task.Volume.Value.IsPositive(),
		Cost:            task.Cost,
	}

	if latest, ok := vs.Latest(); ok {
		ts.Latest = Some(latest)
		ts.Behind = latest.IsBehind(cfg.BehindTolerance)
	}

	cost, hasCost := task.Cost.Get()
	pct, hasPct := tl.PercentComplete.Get()
	if hasCost && hasPct && task.Volume.Value.IsPositive() {
		ts.EarnedValue = Some(pct.Mul(cost))

		// Planned value stays Unknown until a plan applies to the latest report.
		latest, _ := ts.Latest.Get()
		if planned, ok := latest.Planned.Get(); ok {
			plannedShare := decimal.Min(planned.Div(task.Volume.Value), one)
			ts.PlannedValue = Some(plannedShare.Mul(cost))
			ts.ValueVariance = Some(pct.Mul(cost).Sub(plannedShare.Mul(cost)))
		}
	}
	return ts
}

func weightedCompletion(tasks []TaskSummary) Optional[decimal.Decimal] {
	weight := decimal.Zero
	total := decimal.Zero
	for _, t := range tasks {
		pct, ok := t.PercentComplete.Get()
		if !t.Weighted || !ok {
			continue
		}
		weight = weight.Add(t.Volume.Value)
		total = total.Add(t.Volume.Value.Mul(pct))
	}
	if weight.IsZero() {
		return None[decimal.Decimal]()
	}
	return Some(total.Div(weight))
}

func health(tasks []TaskSummary, cfg HealthConfig) (Optional[decimal.Decimal], Health) {
	weight := decimal.Zero
	behindWeight := decimal.Zero
	anyBehind := false
	for _, t := range tasks {
		if t.Weighted {
			weight = weight.Add(t.Volume.Value)
		}
		if t.Behind {
			anyBehind = true
			if t.Weighted {
				behindWeight = behindWeight.Add(t.Volume.Value)
			}
		}
	}

	share := None[decimal.Decimal]()
	if weight.IsPositive() {
		share = Some(behindWeight.Div(weight))
	}

	switch {
	case !anyBehind:
		return share, HealthOnTrack
	case share.IsPresent() && share.OrElse(decimal.Zero).GreaterThan(cfg.MajorityShare):
		return share, HealthBehind
	default:
		return share, HealthAtRisk
	}
}

// summarizeGroups lists groups in catalogue order, skipping groups with no tasks.
func summarizeGroups(project Project, tasks []TaskSummary) []GroupSummary {
	byGroup := make(map[GroupID][]TaskSummary)
	for _, t := range tasks {
		byGroup[t.Group] = append(byGroup[t.Group], t)
	}

	groups := make([]GroupSummary, 0, len(byGroup))
	for _, g := range project.Groups {
		members := byGroup[g.ID]
		if len(members) == 0 {
			continue
		}
		groups = append(groups, GroupSummary{
			GroupID:    g.ID,
			Name:       g.Name,
			Tasks:      len(members),
			Completion: weightedCompletion(members),
		})
	}
	return groups
}

// sumKnown adds a per-task value over tasks that have a cost. Unknown if no
// task has a cost, or if any costed task's value is Unknown.
func sumKnown(tasks []TaskSummary, value func(TaskSummary) Optional[decimal.Decimal]) Optional[decimal.Decimal] {
	total := decimal.Zero
	costed := 0
	for _, t := range tasks {
		if !t.Cost.IsPresent() {
			continue
		}
		costed++
		v, ok := value(t).Get()
		if !ok {
			return None[decimal.Decimal]()
		}
		total = total.Add(v)
	}
	if costed == 0 {
		return None[decimal.Decimal]()
	}
	return Some(total)
}

func laborTotals(days []AttendanceSummary) LaborTotals {
	var lt LaborTotals
	lt.Days = len(days)
	for _, d := range days {
		lt.Regular.CrewSize += d.Regular.CrewSize
		lt.Regular.KnownMinutes += d.Regular.KnownMinutes
		lt.Regular.UnknownEntries += d.Regular.UnknownEntries
		lt.Outsourced.CrewSize += d.Outsourced.CrewSize
		lt.Outsourced.KnownMinutes += d.Outsourced.KnownMinutes
		lt.Outsourced.UnknownEntries += d.Outsourced.UnknownEntries
	}
	return lt
}
