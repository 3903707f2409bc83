// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the univscript command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "univscript",
		Short: "Run scripts with configured language runtimes",
		Long: TitleStyle.Render("univscript") + SubtitleStyle.Render(" - run scripts with configured language runtimes") + `

univscript runs inline scripts, script files and raw runtime calls with
named runtime installations (Perl, Python, Groovy, ...) declared in a CUE
config file. Runtime and script parameters may reference build parameters
and environment variables as ${NAME}.

` + SubtitleStyle.Render("Examples:") + `
  univscript runtimes list                        List configured runtimes
  univscript exec -r perl -- 'print "hi\n"'       Run an inline script
  univscript exec -r perl --script-file build.pl  Run a script file
  univscript call -r python --params "--version"  Call a runtime directly
  univscript check -r perl --script-file build.pl Check script syntax`,
		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "config file (default is $XDG_CONFIG_HOME/univscript/config.cue)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose output")
	flags.StringVar(&opts.node, "node", "", "execution node whose runtime homes apply (default is the built-in node)")
	flags.StringVarP(&opts.workspace, "workspace", "w", "", "workspace directory (default is the current directory)")
	flags.StringArrayVarP(&opts.defines, "define", "D", nil, "build parameter KEY=VALUE (repeatable)")
	flags.StringVar(&opts.metricsFile, "metrics-file", "", "write execution metrics to this file in Prometheus text format")

	rootCmd.AddCommand(newExecCommand(app, opts))
	rootCmd.AddCommand(newCallCommand(app, opts))
	rootCmd.AddCommand(newCheckCommand(app, opts))
	rootCmd.AddCommand(newRuntimesCommand(app, opts))
	rootCmd.AddCommand(newConfigCommand(app, opts))

	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI and exits with the command's exit code.
// It is called by main.main().
func Execute() {
	app := NewApp(Dependencies{})
	rootCmd := NewRootCommand(app)

	// fang overrides rootCmd.Version, so the version goes through WithVersion.
	err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	)
	os.Exit(exitCodeOf(err))
}

// fail renders help for err and returns it for Cobra to report.
func (a *App) fail(err error, opts *globalOptions) error {
	renderError(a.stderr, err, opts.verbose)
	return err
}
