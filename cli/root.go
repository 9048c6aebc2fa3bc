// Package cli contains the cobra command tree for sitetrack.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/warp/sitetrack/config"
)

var appVersion = "dev"

// SetVersion sets the application version (called from main with ldflags value).
func SetVersion(v string) {
	appVersion = v
}

// options are the persistent flags shared by every subcommand.
type options struct {
	configFile string
	noColor    bool
	json       bool
}

func (o *options) loadConfig() (*config.Config, error) {
	return config.Load(o.configFile)
}

// newRootCmd builds the full command tree.
func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "sitetrack",
		Short: "Construction progress, schedule variance and crew hours",
		Long: `sitetrack reconciles daily site reports and attendance sheets against a
project's plan. It derives cumulative progress per task, schedule variance,
crew hours and an overall project health.

Use 'sitetrack serve' to run the HTTP API, or 'sitetrack summarize' and
'sitetrack validate' against project documents on disk.`,
		Version:       appVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "Config file path (default: ~/.config/sitetrack/config.yaml)")
	root.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	root.PersistentFlags().BoolVar(&opts.json, "json", false, "Output as JSON")

	root.AddCommand(
		serveCmd(opts),
		summarizeCmd(opts),
		validateCmd(opts),
	)
	return root
}

// Execute is the entry point called from main.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
