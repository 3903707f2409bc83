// SPDX-License-Identifier: MPL-2.0

package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"slices"
	"strings"
)

type (
	// LaunchSpec describes one process invocation.
	LaunchSpec struct {
		// Args is the full argument vector; Args[0] is the executable.
		Args []string
		// Env is the complete process environment. The parent environment
		// is not inherited.
		Env map[string]string
		// Dir is the working directory. Empty means the current one.
		Dir    string
		Stdout io.Writer
		Stderr io.Writer
	}

	// Launcher starts a process and blocks until it exits. A process that
	// ran to completion yields its exit code and a nil error; failing to
	// start it, or losing it to cancellation, yields an error.
	Launcher interface {
		Launch(ctx context.Context, spec LaunchSpec) (ExitCode, error)
	}

	// ProcLauncher launches local OS processes.
	ProcLauncher struct{}
)

// Launch implements Launcher.
func (ProcLauncher) Launch(ctx context.Context, spec LaunchSpec) (ExitCode, error) {
	if len(spec.Args) == 0 || spec.Args[0] == "" {
		return 0, fmt.Errorf("%w: empty command", ErrIO)
	}

	cmd := exec.CommandContext(ctx, spec.Args[0], spec.Args[1:]...)
	cmd.Dir = spec.Dir
	cmd.Env = EnvList(spec.Env)
	cmd.Stdout = spec.Stdout
	cmd.Stderr = spec.Stderr

	return extractExitCode(ctx, spec.Args[0], cmd.Run())
}

// extractExitCode maps the result of exec.Cmd.Run to an exit code.
func extractExitCode(ctx context.Context, exe string, err error) (ExitCode, error) {
	if err == nil {
		return 0, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return 0, fmt.Errorf("%w: %w", ErrAborted, ctxErr)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := ExitCode(exitErr.ExitCode())
		if ok, _ := code.IsValid(); !ok {
			// Killed by a signal.
			return 0, fmt.Errorf("%w: %s: %w", ErrAborted, exe, err)
		}
		return code, nil
	}

	return 0, fmt.Errorf("%w: failed to launch %s: %w", ErrIO, exe, err)
}

// EnvList converts an environment map to KEY=VALUE pairs sorted by key.
func EnvList(env map[string]string) []string {
	list := make([]string, 0, len(env))
	for k, v := range env {
		list = append(list, k+"="+v)
	}
	slices.Sort(list)
	return list
}

// EnvMap parses KEY=VALUE pairs as returned by os.Environ. Entries without
// '=' are ignored; later duplicates win.
func EnvMap(pairs []string) map[string]string {
	env := make(map[string]string, len(pairs))
	for _, kv := range pairs {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		env[k] = v
	}
	return env
}

// HostEnv returns the environment of the current process.
func HostEnv() map[string]string {
	return EnvMap(os.Environ())
}
