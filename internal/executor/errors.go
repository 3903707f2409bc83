// SPDX-License-Identifier: MPL-2.0

package executor

import (
	"errors"
	"fmt"
)

const (
	// ErrorTag prefixes configuration errors in the build log.
	ErrorTag = "[UNIVERSAL SCRIPT EXECUTOR - ERROR]"
	// WarningTag prefixes downgraded execution failures in the build log.
	WarningTag = "[UNIVERSAL SCRIPT EXECUTOR]"

	nullExecutableMessage = "Runtime executable is NULL, please check your configuration."
)

var (
	// ErrRuntimeNotFound means no installation has the requested name.
	ErrRuntimeNotFound = errors.New("runtime installation not found")
	// ErrNoExecutable means the installation resolved to no existing executable.
	ErrNoExecutable = errors.New("runtime executable not found")
	// ErrNoScriptSource means the step has no script to run.
	ErrNoScriptSource = errors.New("no script source configured")
	// ErrIO marks materialization, launch and wait failures.
	ErrIO = errors.New("i/o error")
	// ErrAborted marks a process that was interrupted or killed before it
	// could report an exit status.
	ErrAborted = errors.New("execution aborted")
	// ErrExecutionFailed is wrapped by ExecutionFailureError.
	ErrExecutionFailed = errors.New("execution failed")
	// ErrNoSyntaxCheck means the runtime has no check command.
	ErrNoSyntaxCheck = errors.New("no syntax check available")
	// ErrInvalidCheckExecutable means the check command's executable does not exist.
	ErrInvalidCheckExecutable = errors.New("invalid syntax check executable")
)

type (
	// ConfigurationError is returned before any process is launched when
	// the runtime or script cannot be determined. Err wraps one of
	// ErrRuntimeNotFound, ErrNoExecutable or ErrNoScriptSource.
	ConfigurationError struct {
		Runtime string
		Err     error
	}

	// ExecutionFailureError reports a process that ran and exited non-zero.
	ExecutionFailureError struct {
		ExitCode ExitCode
		Message  string
	}
)

func (e *ConfigurationError) Error() string {
	if e.Runtime == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("runtime %q: %v", e.Runtime, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

func (e *ExecutionFailureError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "Execution failed"
	}
	return fmt.Sprintf("%s (exit code %d)", msg, e.ExitCode)
}

func (e *ExecutionFailureError) Unwrap() error { return ErrExecutionFailed }

// ExitCodeOf returns the exit code carried by an ExecutionFailureError in
// err's chain.
func ExitCodeOf(err error) (ExitCode, bool) {
	var failure *ExecutionFailureError
	if errors.As(err, &failure) {
		return failure.ExitCode, true
	}
	return 0, false
}
