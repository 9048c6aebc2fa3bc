/*
summarize.go - Summarize and validate commands

PURPOSE:
  Runs the engine over documents on disk, without a server or database.
  The project document may carry its own reports and attendance; more can
  be added with --report and --attendance, one file per record.

EXAMPLES:
  sitetrack summarize site.yaml
  sitetrack summarize site.yaml --report 2025-03-08.yaml --json
  sitetrack validate site.yaml --attendance sheet-0308.yaml

SEE ALSO:
  - factory/document.go: Document format
  - output.go: Rendering
*/
package cli

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/warp/sitetrack/factory"
	"github.com/warp/sitetrack/progress"
)

// ErrRejected is returned by validate when any record was rejected.
var ErrRejected = errors.New("records rejected")

// inputFiles are the document paths of one run.
type inputFiles struct {
	reports    []string
	attendance []string
}

func (f *inputFiles) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&f.reports, "report", nil, "Additional report document (repeatable)")
	cmd.Flags().StringSliceVar(&f.attendance, "attendance", nil, "Additional attendance document (repeatable)")
}

// load reads the project document and any extra records into one input.
func (f *inputFiles) load(projectPath string) (progress.Input, error) {
	bundle, err := factory.LoadFile(projectPath)
	if err != nil {
		return progress.Input{}, err
	}
	in := bundle.Input()
	id := in.Project.ID

	for _, path := range f.reports {
		data, err := os.ReadFile(path)
		if err != nil {
			return progress.Input{}, fmt.Errorf("failed to read %s: %w", path, err)
		}
		doc, err := factory.ParseReport(data)
		if err != nil {
			return progress.Input{}, fmt.Errorf("%s: %w", path, err)
		}
		r, err := doc.ToReport(id)
		if err != nil {
			return progress.Input{}, fmt.Errorf("%s: %w", path, err)
		}
		in.Reports = append(in.Reports, r)
	}
	for _, path := range f.attendance {
		data, err := os.ReadFile(path)
		if err != nil {
			return progress.Input{}, fmt.Errorf("failed to read %s: %w", path, err)
		}
		doc, err := factory.ParseAttendance(data)
		if err != nil {
			return progress.Input{}, fmt.Errorf("%s: %w", path, err)
		}
		a, err := doc.ToAttendance(id)
		if err != nil {
			return progress.Input{}, fmt.Errorf("%s: %w", path, err)
		}
		in.Attendance = append(in.Attendance, a)
	}

	sort.SliceStable(in.Reports, func(i, j int) bool {
		return in.Reports[i].Date.Before(in.Reports[j].Date)
	})
	sort.SliceStable(in.Attendance, func(i, j int) bool {
		return in.Attendance[i].Date.Before(in.Attendance[j].Date)
	})
	return in, nil
}

func summarizeCmd(opts *options) *cobra.Command {
	var files inputFiles

	cmd := &cobra.Command{
		Use:   "summarize <project-file>",
		Short: "Compute progress, variance and health for a project document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			in, err := files.load(args[0])
			if err != nil {
				return err
			}

			result, err := cfg.NewEngine().Recompute(cmd.Context(), in)
			if err != nil {
				if rejected := progress.Rejections(err); len(rejected) > 0 {
					renderRejections(cmd.ErrOrStderr(), rejected, newStyles(false))
				}
				return err
			}

			out := cmd.OutOrStdout()
			if opts.json {
				return printJSON(out, result)
			}
			st := newStyles(!opts.noColor && isTerminal(out))
			renderSummary(out, result.Summary, st)
			if len(result.Rejected) > 0 {
				fmt.Fprintln(out)
				renderRejections(out, result.Rejected, st)
			}
			return nil
		},
	}

	files.register(cmd)
	return cmd
}

// validateResult is the --json output of validate.
type validateResult struct {
	ProjectID  progress.ProjectID `json:"project_id"`
	Reports    int                `json:"reports"`
	Attendance int                `json:"attendance"`
	Rejected   []rejection        `json:"rejected"`
}

type rejection struct {
	Kind    progress.ErrorKind `json:"kind"`
	Message string             `json:"message"`
}

func validateCmd(opts *options) *cobra.Command {
	var files inputFiles

	cmd := &cobra.Command{
		Use:   "validate <project-file>",
		Short: "Report every record the engine would reject",
		Long: `Validates the project plan, then every attendance sheet and report in
date order, exactly as a recompute would. Exits non-zero when anything is
rejected.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			in, err := files.load(args[0])
			if err != nil {
				return err
			}

			engine := cfg.NewEngine()
			engine.Strict = false

			var rejected []*progress.ValidationError
			result, err := engine.Recompute(cmd.Context(), in)
			switch {
			case err == nil:
				rejected = result.Rejected
			case progress.IsClientError(err):
				// The plan itself is invalid; nothing else was checked.
				rejected = progress.Rejections(err)
			default:
				return err
			}

			out := cmd.OutOrStdout()
			if opts.json {
				res := validateResult{
					ProjectID:  in.Project.ID,
					Reports:    len(in.Reports),
					Attendance: len(in.Attendance),
					Rejected:   make([]rejection, 0, len(rejected)),
				}
				for _, r := range rejected {
					res.Rejected = append(res.Rejected, rejection{Kind: r.Kind, Message: r.Error()})
				}
				if err := printJSON(out, res); err != nil {
					return err
				}
			} else {
				st := newStyles(!opts.noColor && isTerminal(out))
				if len(rejected) == 0 {
					fmt.Fprintf(out, "%s: %d reports, %d attendance sheets, %s\n",
						in.Project.ID, len(in.Reports), len(in.Attendance), st.onTrack.Render("all valid"))
				}
				renderRejections(out, rejected, st)
			}

			if len(rejected) > 0 {
				return fmt.Errorf("%w: %d", ErrRejected, len(rejected))
			}
			return nil
		},
	}

	files.register(cmd)
	return cmd
}
