// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/univscript/univscript/internal/executor"
)

// errScriptSourceConflict is returned when both a script file and inline
// script text are given.
var errScriptSourceConflict = errors.New("use either --script-file or an inline script, not both")

type (
	// execOptions holds the flags of the exec command.
	execOptions struct {
		runtime       string
		scriptFile    string
		runtimeParams string
		scriptParams  string
		ignoreFailure bool
	}
)

func newExecCommand(app *App, global *globalOptions) *cobra.Command {
	opts := &execOptions{}

	cmd := &cobra.Command{
		Use:   "exec --runtime NAME [flags] [-- SCRIPT...]",
		Short: "Run a script with a configured runtime",
		Long: `Run a script with a configured runtime.

The script is either inline text given after "--" (joined with spaces, or
read from standard input when it is "-") or a file given with --script-file.
Relative script files are resolved against the workspace. Inline scripts are
written to a temporary file in the workspace that is removed afterwards.

The runtime is started as:
  <executable> <runtime params> <script> <script params>`,
		Example: `  univscript exec -r perl -- 'print "hello\n"'
  univscript exec -r perl --runtime-params "-w" --script-file build.pl --script-params '${VERSION}' -D VERSION=1.2
  echo 'print(42)' | univscript exec -r python -- -`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExec(cmd.Context(), app, global, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.runtime, "runtime", "r", "", "runtime installation name (required)")
	cmd.Flags().StringVarP(&opts.scriptFile, "script-file", "f", "", "script file to run")
	cmd.Flags().StringVar(&opts.runtimeParams, "runtime-params", "", "parameters passed to the runtime before the script")
	cmd.Flags().StringVar(&opts.scriptParams, "script-params", "", "parameters passed to the script")
	cmd.Flags().BoolVar(&opts.ignoreFailure, "ignore-failure", false, "report a non-zero exit code as a warning and exit 0")
	_ = cmd.MarkFlagRequired("runtime")

	return cmd
}

func runExec(ctx context.Context, app *App, global *globalOptions, opts *execOptions, args []string) error {
	var step executor.Step
	switch {
	case opts.scriptFile != "" && len(args) > 0:
		return errScriptSourceConflict
	case opts.scriptFile != "":
		step = executor.ScriptFileStep{
			RuntimeName:           opts.runtime,
			Path:                  opts.scriptFile,
			RuntimeParameters:     opts.runtimeParams,
			ScriptParameters:      opts.scriptParams,
			IgnoreFailedExecution: opts.ignoreFailure,
		}
	default:
		body, err := inlineScript(app.stdin, args)
		if err != nil {
			return err
		}
		step = executor.ScriptStringStep{
			RuntimeName:           opts.runtime,
			Command:               body,
			RuntimeParameters:     opts.runtimeParams,
			ScriptParameters:      opts.scriptParams,
			IgnoreFailedExecution: opts.ignoreFailure,
		}
	}

	return runStep(ctx, app, global, step)
}

// runStep runs step in a fresh session and reports its exit code.
func runStep(ctx context.Context, app *App, global *globalOptions, step executor.Step) error {
	sess, err := app.newSession(ctx, global)
	if err != nil {
		return app.fail(err, global)
	}
	sc, err := sess.stepContext(app, global)
	if err != nil {
		return app.fail(err, global)
	}

	code, err := sess.executor(app.Launcher).Run(ctx, sc, step)
	sess.flushMetrics()
	if err != nil {
		if _, failed := executor.ExitCodeOf(err); failed {
			return app.fail(&ExitError{Code: int(code), Err: err}, global)
		}
		return app.fail(err, global)
	}
	if !code.IsSuccess() {
		sess.logger.Info("runtime exited non-zero, failure ignored", "exit_code", code)
	}
	return nil
}

// inlineScript joins args into the script body. A single "-" reads the
// body from stdin.
func inlineScript(stdin io.Reader, args []string) (string, error) {
	if len(args) == 1 && args[0] == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read script from stdin: %w", err)
		}
		return string(data), nil
	}
	return strings.Join(args, " "), nil
}
