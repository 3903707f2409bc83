// SPDX-License-Identifier: MPL-2.0

package executor

import (
	"context"
	"errors"
	"strings"

	"github.com/univscript/univscript/internal/script"
)

// errNoExecutor is returned when a step runs in a context without an Executor.
var errNoExecutor = errors.New("step context has no executor")

type (
	// Step is a configured script execution.
	Step interface {
		Run(ctx context.Context, sc *StepContext) (ExitCode, error)
	}

	// ScriptStringStep runs inline script text.
	ScriptStringStep struct {
		RuntimeName           string
		Command               string
		RuntimeParameters     string
		ScriptParameters      string
		IgnoreFailedExecution bool
	}

	// ScriptFileStep runs a script file from the workspace.
	ScriptFileStep struct {
		RuntimeName           string
		Path                  string
		RuntimeParameters     string
		ScriptParameters      string
		IgnoreFailedExecution bool
	}

	// RawCallStep runs the runtime executable with Parameters and no script.
	RawCallStep struct {
		RuntimeName           string
		Parameters            string
		IgnoreFailedExecution bool
	}
)

func (s ScriptStringStep) Run(ctx context.Context, sc *StepContext) (ExitCode, error) {
	return run(ctx, sc, Request{
		RuntimeName:           s.RuntimeName,
		Source:                script.StringSource{Command: s.Command},
		RuntimeParameters:     s.RuntimeParameters,
		ScriptParameters:      s.ScriptParameters,
		IgnoreFailedExecution: s.IgnoreFailedExecution,
	})
}

func (s ScriptFileStep) Run(ctx context.Context, sc *StepContext) (ExitCode, error) {
	if strings.TrimSpace(s.Path) == "" {
		return 1, &ConfigurationError{Runtime: s.RuntimeName, Err: ErrNoScriptSource}
	}
	return run(ctx, sc, Request{
		RuntimeName:           s.RuntimeName,
		Source:                script.FileSource{Path: s.Path},
		RuntimeParameters:     s.RuntimeParameters,
		ScriptParameters:      s.ScriptParameters,
		IgnoreFailedExecution: s.IgnoreFailedExecution,
	})
}

func (s RawCallStep) Run(ctx context.Context, sc *StepContext) (ExitCode, error) {
	return run(ctx, sc, Request{
		RuntimeName:           s.RuntimeName,
		RuntimeParameters:     s.Parameters,
		IgnoreFailedExecution: s.IgnoreFailedExecution,
	})
}

func run(ctx context.Context, sc *StepContext, req Request) (ExitCode, error) {
	if sc == nil || sc.Executor == nil {
		return 1, errNoExecutor
	}
	return sc.Executor.Execute(ctx, *sc, req)
}
