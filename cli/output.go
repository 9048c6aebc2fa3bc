/*
output.go - Terminal rendering for summaries and rejections

PURPOSE:
  Renders engine results for people reading a terminal: a task table,
  project totals, and one line per rejected record. Health is coloured
  only when the writer is a terminal and --no-color is not set.

SEE ALSO:
  - summarize.go, validate.go: Callers
*/
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-isatty"
	"github.com/shopspring/decimal"

	"github.com/warp/sitetrack/progress"
)

var (
	colorOnTrack = lipgloss.Color("#66bb6a")
	colorAtRisk  = lipgloss.Color("#fff59d")
	colorBehind  = lipgloss.Color("#ef5350")
	colorMuted   = lipgloss.Color("#888888")
)

// styles holds the lipgloss styles for one render. The zero value is plain.
type styles struct {
	onTrack lipgloss.Style
	atRisk  lipgloss.Style
	behind  lipgloss.Style
	muted   lipgloss.Style
	header  lipgloss.Style
}

func newStyles(color bool) styles {
	if !color {
		plain := lipgloss.NewStyle()
		return styles{onTrack: plain, atRisk: plain, behind: plain, muted: plain, header: plain}
	}
	return styles{
		onTrack: lipgloss.NewStyle().Foreground(colorOnTrack).Bold(true),
		atRisk:  lipgloss.NewStyle().Foreground(colorAtRisk).Bold(true),
		behind:  lipgloss.NewStyle().Foreground(colorBehind).Bold(true),
		muted:   lipgloss.NewStyle().Foreground(colorMuted),
		header:  lipgloss.NewStyle().Bold(true),
	}
}

// isTerminal reports whether w is a terminal file descriptor.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (s styles) health(h progress.Health) string {
	switch h {
	case progress.HealthOnTrack:
		return s.onTrack.Render(string(h))
	case progress.HealthAtRisk:
		return s.atRisk.Render(string(h))
	case progress.HealthBehind:
		return s.behind.Render(string(h))
	}
	return string(h)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// =============================================================================
// SUMMARY
// =============================================================================

func renderSummary(w io.Writer, s progress.ProjectSummary, st styles) {
	fmt.Fprintf(w, "%s %s\n", st.header.Render(s.Name), st.muted.Render("("+string(s.ProjectID)+")"))
	fmt.Fprintf(w, "Health:      %s\n", st.health(s.Health))
	fmt.Fprintf(w, "Completion:  %s\n", percent(s.Completion))
	if share, ok := s.BehindShare.Get(); ok {
		fmt.Fprintf(w, "Behind:      %s of volume\n", formatPercent(share))
	}
	fmt.Fprintln(w)

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Task", "Group", "Done", "Volume", "Complete", "Planned", "SV", ""})
	for _, t := range s.Tasks {
		planned, sv := "-", "-"
		if latest, ok := t.Latest.Get(); ok {
			planned = orDash(latest.Planned)
			sv = orDash(latest.ScheduleVariance)
		}
		flag := ""
		switch {
		case t.Behind:
			flag = st.behind.Render("behind")
		case t.OverReported:
			flag = st.atRisk.Render("over")
		}
		tw.AppendRow(table.Row{
			t.TaskID,
			t.Group,
			t.Cumulative.String(),
			t.Volume.Value.String() + " " + t.Volume.Unit,
			percent(t.PercentComplete),
			planned,
			sv,
			flag,
		})
	}
	tw.Render()

	fmt.Fprintln(w)
	labor := s.Labor
	fmt.Fprintf(w, "Labor:       %d days, own %sh (%d unknown), outsourced %sh (%d unknown)\n",
		labor.Days,
		labor.Regular.KnownHours().StringFixed(1), labor.Regular.UnknownEntries,
		labor.Outsourced.KnownHours().StringFixed(1), labor.Outsourced.UnknownEntries)
	if ev, ok := s.EarnedValue.Get(); ok {
		fmt.Fprintf(w, "Earned:      %s of planned %s\n", ev.StringFixed(2), orDash(s.PlannedValue))
	}
}

// =============================================================================
// REJECTIONS
// =============================================================================

func renderRejections(w io.Writer, rejected []*progress.ValidationError, st styles) {
	if len(rejected) == 0 {
		return
	}
	fmt.Fprintf(w, "%s\n", st.behind.Render(fmt.Sprintf("%d rejected", len(rejected))))
	for _, r := range rejected {
		fmt.Fprintf(w, "  %-28s %s\n", r.Kind, rejectionDetail(r))
	}
}

func rejectionDetail(r *progress.ValidationError) string {
	where := ""
	switch {
	case r.ReportID != "":
		where = "report " + string(r.ReportID)
	case r.AttendanceID != "":
		where = "attendance " + string(r.AttendanceID)
	default:
		where = "project " + string(r.ProjectID)
	}
	if r.TaskID != "" {
		where += " task " + string(r.TaskID)
	}
	if d, ok := r.Date.Get(); ok {
		where += " on " + d.String()
	}
	if r.Detail != "" {
		where += ": " + r.Detail
	}
	return where
}

// =============================================================================
// FORMATTING
// =============================================================================

var hundred = decimal.NewFromInt(100)

func formatPercent(d decimal.Decimal) string {
	return d.Mul(hundred).StringFixed(1) + "%"
}

func percent(o progress.Optional[decimal.Decimal]) string {
	if d, ok := o.Get(); ok {
		return formatPercent(d)
	}
	return "-"
}

func orDash(o progress.Optional[decimal.Decimal]) string {
	if d, ok := o.Get(); ok {
		return d.String()
	}
	return "-"
}
