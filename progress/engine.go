/*
engine.go - Whole-project recompute

PURPOSE:
  Runs the full pipeline for one project snapshot:

    validate project -> validate attendance -> validate reports
      -> per task: aggregate + variance          (concurrent)
      -> per attendance day: reconcile           (concurrent)
      -> digests, progress curve, project summary

KEY INSIGHT:
  Every task's timeline depends only on its own entries in the accepted
  reports, so tasks fan out on an errgroup with a bounded worker count.
  Results are written into index-addressed slices: no locks, and output
  order is the project's task order regardless of scheduling.

REJECTIONS:
  A rejected report or attendance record is left out and listed in
  Result.Rejected; the rest of the project is still computed. With Strict
  set, any rejection fails the recompute instead, returning every rejection
  joined (see Rejections).

  Project-level validation failures, fold-time contract violations and
  context cancellation always fail the recompute.

EXAMPLE:
  engine := progress.NewEngine(progress.DefaultHealthConfig(), 4)
  result, err := engine.Recompute(ctx, progress.Input{
      Project:    project,
      Reports:    reports,     // ordered by date
      Attendance: attendance,
  })
  fmt.Println(result.Summary.Completion, result.Summary.Health)

SEE ALSO:
  - store.go: Source for RecomputeFrom
*/
package progress

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Input is one consistent snapshot of a project.
type Input struct {
	Project    Project
	Reports    []ProjectReport
	Attendance []ProjectAttendance
}

// Result holds every derived view of one recompute. Per-task slices follow
// the project's task order; per-day slices follow the attendance order.
type Result struct {
	Accepted []ValidatedReport  `json:"-"`
	Rejected []*ValidationError `json:"rejected"`

	Timelines  []ProgressTimeline  `json:"timelines"`
	Variances  []VarianceSeries    `json:"variances"`
	Attendance []AttendanceSummary `json:"attendance"`
	Coverage   []RosterCoverage    `json:"coverage"`
	Digests    []ReportDigest      `json:"digests"`
	Curve      []CurvePoint        `json:"curve"`
	Summary    ProjectSummary      `json:"summary"`
}

func (r *Result) Timeline(id TaskID) (ProgressTimeline, bool) {
	for _, t := range r.Timelines {
		if t.TaskID == id {
			return t, true
		}
	}
	return ProgressTimeline{}, false
}

func (r *Result) Variance(id TaskID) (VarianceSeries, bool) {
	for _, v := range r.Variances {
		if v.TaskID == id {
			return v, true
		}
	}
	return VarianceSeries{}, false
}

// Engine recomputes project summaries. Safe for concurrent use.
type Engine struct {
	Health HealthConfig

	// Maximum concurrent task folds. Zero or less means GOMAXPROCS.
	Workers int

	// Fail on any rejected report or attendance record.
	Strict bool
}

func NewEngine(health HealthConfig, workers int) *Engine {
	return &Engine{Health: health, Workers: workers}
}

func (e *Engine) workers() int {
	if e.Workers > 0 {
		return e.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// RecomputeFrom loads the project's snapshot from the source and recomputes it.
func (e *Engine) RecomputeFrom(ctx context.Context, src Source, id ProjectID) (*Result, error) {
	project, err := src.Project(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load project %s: %w", id, err)
	}
	reports, err := src.Reports(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load reports of %s: %w", id, err)
	}
	attendance, err := src.Attendance(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load attendance of %s: %w", id, err)
	}
	return e.Recompute(ctx, Input{Project: project, Reports: reports, Attendance: attendance})
}

// Recompute derives every output from the snapshot. Inputs are not modified.
func (e *Engine) Recompute(ctx context.Context, in Input) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 1. Intake
	result, acceptedAtt, err := e.intake(in)
	if err != nil {
		return nil, err
	}
	if e.Strict && len(result.Rejected) > 0 {
		errs := make([]error, len(result.Rejected))
		for i, r := range result.Rejected {
			errs[i] = r
		}
		return nil, errors.Join(errs...)
	}

	// 2. Per-task folds and per-day attendance, concurrently
	tasks := in.Project.Tasks
	result.Timelines = make([]ProgressTimeline, len(tasks))
	result.Variances = make([]VarianceSeries, len(tasks))
	result.Attendance = make([]AttendanceSummary, len(acceptedAtt))
	result.Coverage = make([]RosterCoverage, len(acceptedAtt))

	byTask := reportsByTask(result.Accepted)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers())
	for i, task := range tasks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			tl, err := Aggregate(task, byTask[task.ID])
			if err != nil {
				return err
			}
			vs, err := Variance(tl, task.Estimation.OrElse(nil))
			if err != nil {
				return err
			}
			result.Timelines[i] = tl
			result.Variances[i] = vs
			return nil
		})
	}
	for i, att := range acceptedAtt {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			summary := Reconcile(att)
			result.Attendance[i] = summary
			result.Coverage[i] = Coverage(summary, in.Project)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 3. Rollups
	result.Digests = make([]ReportDigest, 0, len(result.Accepted))
	for _, vr := range result.Accepted {
		result.Digests = append(result.Digests, DigestReport(vr))
	}
	result.Curve = ProgressCurve(in.Project, result.Timelines)

	summary, err := Summarize(in.Project, result.Timelines, result.Variances, result.Attendance, e.Health)
	if err != nil {
		return nil, err
	}
	result.Summary = summary
	return result, nil
}

// intake validates the project, then attendance, then reports in order.
func (e *Engine) intake(in Input) (*Result, []ProjectAttendance, error) {
	if err := ValidateProject(in.Project); err != nil {
		return nil, nil, err
	}

	result := &Result{
		Accepted: make([]ValidatedReport, 0, len(in.Reports)),
		Rejected: []*ValidationError{},
	}

	var accepted []ProjectAttendance
	for _, att := range in.Attendance {
		if err := ValidateAttendance(att, in.Project); err != nil {
			var verr *ValidationError
			if !errors.As(err, &verr) {
				return nil, nil, err
			}
			result.Rejected = append(result.Rejected, verr)
			continue
		}
		accepted = append(accepted, att)
	}

	validator := NewValidator(in.Project, NewAttendanceIndex(accepted))
	for _, r := range in.Reports {
		vr, err := validator.Validate(r)
		if err != nil {
			var verr *ValidationError
			if !errors.As(err, &verr) {
				return nil, nil, err
			}
			result.Rejected = append(result.Rejected, verr)
			continue
		}
		result.Accepted = append(result.Accepted, vr)
	}
	return result, accepted, nil
}

// reportsByTask narrows the accepted reports to those mentioning each task,
// keeping their order.
func reportsByTask(accepted []ValidatedReport) map[TaskID][]ValidatedReport {
	byID := make(map[ReportID]ValidatedReport, len(accepted))
	reports := make([]ProjectReport, 0, len(accepted))
	for _, vr := range accepted {
		byID[vr.ID()] = vr
		reports = append(reports, vr.Report())
	}

	index := BuildReportIndex(reports)
	byTask := make(map[TaskID][]ValidatedReport, len(index))
	for task, ids := range index {
		list := make([]ValidatedReport, 0, len(ids))
		for _, id := range ids {
			list = append(list, byID[id])
		}
		byTask[task] = list
	}
	return byTask
}

// Rejections unpacks the joined error of a strict recompute.
func Rejections(err error) []*ValidationError {
	if err == nil {
		return nil
	}
	var out []*ValidationError
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			out = append(out, Rejections(e)...)
		}
		return out
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		out = append(out, verr)
	}
	return out
}
