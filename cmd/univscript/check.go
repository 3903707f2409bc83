// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/univscript/univscript/internal/executor"
	"github.com/univscript/univscript/internal/macro"
	"github.com/univscript/univscript/internal/script"
	"github.com/univscript/univscript/pkg/platform"
)

// errSyntaxCheckFailed is returned when the check command rejects the script.
var errSyntaxCheckFailed = errors.New("syntax check failed")

type checkOptions struct {
	runtime    string
	scriptFile string
}

func newCheckCommand(app *App, global *globalOptions) *cobra.Command {
	opts := &checkOptions{}

	cmd := &cobra.Command{
		Use:   "check --runtime NAME (--script-file FILE | -- SCRIPT...)",
		Short: "Check script syntax with the runtime's check command",
		Long: `Check script syntax with the runtime's check_command.

The script is written to a temporary file and the check command runs on it
with the runtime environment. Its output is shown with the temporary path
replaced by "script.use". A check_command that names another runtime uses
that runtime's check command.`,
		Example: `  univscript check -r perl --script-file build.pl
  univscript check -r perl -- 'print "unterminated'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.Context(), app, global, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.runtime, "runtime", "r", "", "runtime installation name (required)")
	cmd.Flags().StringVarP(&opts.scriptFile, "script-file", "f", "", "script file to check")
	_ = cmd.MarkFlagRequired("runtime")

	return cmd
}

func runCheck(ctx context.Context, app *App, global *globalOptions, opts *checkOptions, args []string) error {
	if opts.scriptFile != "" && len(args) > 0 {
		return errScriptSourceConflict
	}

	sess, err := app.newSession(ctx, global)
	if err != nil {
		return app.fail(err, global)
	}

	env := executor.HostEnv()
	body, err := checkBody(ctx, app, global, opts, args, env)
	if err != nil {
		return app.fail(err, global)
	}

	checker := &executor.Checker{
		Registry: sess.registry,
		Resolver: sess.resolver,
		Launcher: app.Launcher,
		Env:      env,
		IsUnix:   platform.HostIsUnix(),
		Metrics:  sess.metrics,
		Logger:   sess.logger,
	}
	result, err := checker.Check(ctx, opts.runtime, body)
	sess.flushMetrics()
	if err != nil {
		return app.fail(err, global)
	}

	if result.OK {
		fmt.Fprintf(app.stdout, "%s %s\n", SuccessStyle.Render("✓"), strings.TrimRight(result.Output, "\n"))
		return nil
	}
	fmt.Fprint(app.stdout, result.Output)
	if !strings.HasSuffix(result.Output, "\n") {
		fmt.Fprintln(app.stdout)
	}
	return &ExitError{Code: 1, Err: fmt.Errorf("%w (runtime %q, exit code %d)", errSyntaxCheckFailed, result.Runtime, result.ExitCode)}
}

// checkBody returns the script text to check: the file contents or the
// inline arguments.
func checkBody(ctx context.Context, app *App, global *globalOptions, opts *checkOptions, args []string, env map[string]string) (string, error) {
	if opts.scriptFile == "" {
		return inlineScript(app.stdin, args)
	}
	ws, err := script.NewOSWorkspace(global.workspace)
	if err != nil {
		return "", fmt.Errorf("open workspace: %w", err)
	}
	vars, err := parseDefines(global.defines)
	if err != nil {
		return "", err
	}
	data, err := script.FileSource{Path: opts.scriptFile}.Read(ctx, ws, macro.Map(macro.Merge(env, vars)))
	if err != nil {
		return "", err
	}
	return string(data), nil
}
