// SPDX-License-Identifier: MPL-2.0

package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/univscript/univscript/internal/command"
	"github.com/univscript/univscript/internal/installation"
	"github.com/univscript/univscript/internal/macro"
	"github.com/univscript/univscript/internal/metrics"
	"github.com/univscript/univscript/internal/params"
	"github.com/univscript/univscript/internal/script"
)

// State is a phase of one execution.
type State int

const (
	StatePreparingScript State = iota
	StateResolvingRuntime
	StateBuildingCommand
	StateLaunching
	StateWaiting
	StateSucceeded
	StateFailed
	StateCleanup
	StateDone
)

var stateNames = [...]string{
	StatePreparingScript:  "PREPARING_SCRIPT",
	StateResolvingRuntime: "RESOLVING_RUNTIME",
	StateBuildingCommand:  "BUILDING_COMMAND",
	StateLaunching:        "LAUNCHING",
	StateWaiting:          "WAITING",
	StateSucceeded:        "SUCCEEDED",
	StateFailed:           "FAILED",
	StateCleanup:          "CLEANUP",
	StateDone:             "DONE",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

type (
	// Request is one execution. A nil Source runs the runtime with its
	// parameters only.
	Request struct {
		RuntimeName           string
		Source                script.Source
		RuntimeParameters     string
		ScriptParameters      string
		IgnoreFailedExecution bool
	}

	// Executor runs Requests against the installations of a Registry.
	// It is safe for concurrent use when its Launcher is.
	Executor struct {
		registry *installation.Registry
		resolver *installation.Resolver
		builder  command.Builder
		launcher Launcher
		metrics  *metrics.Recorder
	}

	// Option configures an Executor.
	Option func(*Executor)

	// execution tracks the state of one Execute call.
	execution struct {
		sc    StepContext
		req   Request
		state State
	}
)

// WithLauncher replaces the process launcher.
func WithLauncher(l Launcher) Option {
	return func(e *Executor) { e.launcher = l }
}

// WithResolver sets how installations are resolved (filesystem, mounts).
func WithResolver(r *installation.Resolver) Option {
	return func(e *Executor) { e.resolver = r }
}

// WithTokenizer sets how parameter strings are split.
func WithTokenizer(t params.Tokenizer) Option {
	return func(e *Executor) { e.builder.Tokenizer = t }
}

// WithMetrics records every execution in m.
func WithMetrics(m *metrics.Recorder) Option {
	return func(e *Executor) { e.metrics = m }
}

// New returns an Executor that looks runtimes up in registry and launches
// local processes.
func New(registry *installation.Registry, opts ...Option) *Executor {
	e := &Executor{
		registry: registry,
		resolver: &installation.Resolver{},
		launcher: ProcLauncher{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the installations the executor resolves against.
func (e *Executor) Registry() *installation.Registry {
	return e.registry
}

// Execute runs req and returns the process exit code.
//
// A non-zero exit yields an *ExecutionFailureError carrying the code, unless
// req.IgnoreFailedExecution is set, in which case a warning is written and
// the code is returned with a nil error. Temporary scripts are removed on
// every path.
func (e *Executor) Execute(ctx context.Context, sc StepContext, req Request) (code ExitCode, err error) {
	start := time.Now()
	defer func() {
		e.metrics.ObserveExecution(req.RuntimeName, outcomeOf(code, err), time.Since(start))
	}()

	sc, err = sc.withDefaults()
	if err != nil {
		return 1, fmt.Errorf("%w: %w", ErrIO, err)
	}
	x := &execution{sc: sc, req: req}

	vars := macro.Merge(sc.Env, sc.BuildParameters)

	var (
		scriptPath string
		remove     = func() error { return nil }
	)
	defer func() { x.cleanup(scriptPath, remove) }()

	x.enter(StatePreparingScript)
	if err := sc.Workspace.Mkdirs(); err != nil {
		return x.fail(fmt.Errorf("%w: %w", ErrIO, err))
	}

	if req.Source != nil {
		path, cleanup, err := req.Source.Materialize(ctx, sc.Workspace, macro.Map(vars))
		if err != nil {
			return x.fail(x.sourceError(err))
		}
		scriptPath, remove = path, cleanup
	}

	x.enter(StateResolvingRuntime)
	resolved, err := e.resolve(ctx, x, macro.Map(vars))
	if err != nil {
		return x.fail(err)
	}
	exe, ok := resolved.Executable()
	if !ok {
		x.logNullExecutable("executable missing", "path", resolved.ExecutablePath())
		return x.fail(&ConfigurationError{Runtime: req.RuntimeName, Err: ErrNoExecutable})
	}

	x.enter(StateBuildingCommand)
	args, ok := e.builder.Build(command.Input{
		Executable:        exe,
		RuntimeParameters: req.RuntimeParameters,
		ScriptPath:        scriptPath,
		ScriptParameters:  req.ScriptParameters,
		Variables:         macro.Map(vars),
		BuildParameters:   macro.Map(sc.BuildParameters),
	})
	if !ok {
		x.logNullExecutable("empty command")
		return x.fail(&ConfigurationError{Runtime: req.RuntimeName, Err: ErrNoExecutable})
	}

	base := macro.Merge(sc.BuildParameters, sc.Env)
	base[installation.HomeVar] = resolved.LocalHome
	env, err := resolved.EnvVarMap(base)
	if err != nil {
		fmt.Fprintf(sc.Stderr, "%s Invalid environment variables for runtime %s: %v\n", ErrorTag, req.RuntimeName, err)
		sc.Logger.Error("invalid env block", "runtime", req.RuntimeName, "err", err)
		return x.fail(&ConfigurationError{Runtime: req.RuntimeName, Err: err})
	}

	x.enter(StateLaunching)
	sc.Logger.Info("launching runtime", "runtime", req.RuntimeName, "command", params.Join(args), "dir", sc.Workspace.Dir)

	x.enter(StateWaiting)
	code, err = e.launcher.Launch(ctx, LaunchSpec{
		Args:   args,
		Env:    env,
		Dir:    sc.Workspace.Dir,
		Stdout: sc.Stdout,
		Stderr: sc.Stderr,
	})
	if err != nil {
		sc.Logger.Error("command execution failed", "runtime", req.RuntimeName, "err", err)
		return x.fail(err)
	}

	if code.IsSuccess() {
		x.enter(StateSucceeded)
		return code, nil
	}

	x.enter(StateFailed)
	failure := &ExecutionFailureError{ExitCode: code, Message: "Execution failed"}
	if req.IgnoreFailedExecution {
		fmt.Fprintf(sc.Stderr, "%s %s\n", WarningTag, failure.Error())
		sc.Logger.Warn("ignoring failed execution", "runtime", req.RuntimeName, "exit_code", code)
		return code, nil
	}
	return code, failure
}

// Run executes step in sc.
func (e *Executor) Run(ctx context.Context, sc *StepContext, step Step) (ExitCode, error) {
	if sc == nil {
		sc = &StepContext{}
	}
	run := *sc
	run.Executor = e
	return step.Run(ctx, &run)
}

// resolve looks the runtime up and resolves it against vars, the build
// environment merged with the build parameters.
func (e *Executor) resolve(ctx context.Context, x *execution, vars macro.Resolver) (*installation.Resolved, error) {
	var (
		inst installation.Installation
		ok   bool
	)
	if e.registry != nil {
		inst, ok = e.registry.Get(x.req.RuntimeName)
	}
	if !ok {
		x.logNullExecutable("runtime not configured")
		return nil, &ConfigurationError{Runtime: x.req.RuntimeName, Err: ErrRuntimeNotFound}
	}

	resolved, err := e.resolver.Resolve(ctx, inst, x.sc.Node, vars, x.sc.IsUnix)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	return resolved, nil
}

func (x *execution) enter(s State) {
	x.state = s
	x.sc.Logger.Debug("execution state", "state", s, "runtime", x.req.RuntimeName)
}

func (x *execution) fail(err error) (ExitCode, error) {
	x.enter(StateFailed)
	return 1, err
}

// sourceError classifies a materialization failure.
func (x *execution) sourceError(err error) error {
	if errors.Is(err, script.ErrEmptyScript) || errors.Is(err, script.ErrScriptNotFound) {
		fmt.Fprintf(x.sc.Stderr, "%s %v\n", ErrorTag, err)
		return &ConfigurationError{Runtime: x.req.RuntimeName, Err: fmt.Errorf("%w: %w", ErrNoScriptSource, err)}
	}
	x.sc.Logger.Error("failed to prepare script", "source", x.req.Source.Describe(), "err", err)
	return fmt.Errorf("%w: %w", ErrIO, err)
}

func (x *execution) logNullExecutable(reason string, keyvals ...any) {
	fmt.Fprintln(x.sc.Stderr, ErrorTag+" "+nullExecutableMessage)
	x.sc.Logger.Error(reason, append([]any{"runtime", x.req.RuntimeName}, keyvals...)...)
}

// cleanup removes the materialized script. Errors are logged only.
func (x *execution) cleanup(path string, remove func() error) {
	x.enter(StateCleanup)
	if err := remove(); err != nil {
		fmt.Fprintf(x.sc.Stderr, "Unable to delete script file %s: %v\n", path, err)
		x.sc.Logger.Error("failed to delete temporary script", "path", path, "err", err)
	}
	x.enter(StateDone)
}

func outcomeOf(code ExitCode, err error) metrics.Outcome {
	var cfgErr *ConfigurationError
	switch {
	case err == nil && code.IsSuccess():
		return metrics.OutcomeSucceeded
	case err == nil:
		return metrics.OutcomeIgnored
	case errors.Is(err, ErrExecutionFailed):
		return metrics.OutcomeFailed
	case errors.As(err, &cfgErr):
		return metrics.OutcomeConfigError
	default:
		return metrics.OutcomeIOError
	}
}
