// SPDX-License-Identifier: MPL-2.0

package executor

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"

	"github.com/univscript/univscript/internal/installation"
	"github.com/univscript/univscript/internal/macro"
	"github.com/univscript/univscript/internal/metrics"
	"github.com/univscript/univscript/internal/script"
)

const (
	// CheckPlaceholder replaces the temporary file path in check output.
	CheckPlaceholder = "script.use"
	// CheckOKMessage is reported for a script that passed the check.
	CheckOKMessage = "So far so good"

	checkTempPattern = "script*use"
)

type (
	// CheckResult is the outcome of a syntax check that ran.
	CheckResult struct {
		// Runtime is the installation whose check command was used, after
		// following check-command references.
		Runtime string
		OK      bool
		// Output is the combined output of the check command with the
		// temporary path replaced by CheckPlaceholder. It is CheckOKMessage
		// when the check passed without output.
		Output   string
		ExitCode ExitCode
	}

	// Checker runs syntax-check commands on the local host.
	Checker struct {
		Registry *installation.Registry
		// Resolver resolves check commands. Nil uses the OS filesystem.
		Resolver *installation.Resolver
		// Launcher defaults to ProcLauncher.
		Launcher Launcher
		// Fs holds the temporary script. Nil uses the OS filesystem.
		Fs afero.Fs
		// Env is the base environment. Nil uses the host environment.
		Env     map[string]string
		IsUnix  bool
		Metrics *metrics.Recorder
		Logger  *log.Logger
	}
)

// Check writes body to a temporary file and runs runtimeName's check
// command on it. Errors mean the check could not run; a failing script is
// reported through CheckResult.OK.
func (c *Checker) Check(ctx context.Context, runtimeName, body string) (result CheckResult, err error) {
	defer func() {
		if err == nil {
			c.Metrics.ObserveCheck(result.Runtime, result.OK)
		}
	}()

	if strings.TrimSpace(body) == "" {
		return CheckResult{}, script.ErrEmptyScript
	}
	if c.Registry == nil {
		return CheckResult{}, &ConfigurationError{Runtime: runtimeName, Err: ErrRuntimeNotFound}
	}

	inst, ok := c.Registry.Get(runtimeName)
	if !ok {
		return CheckResult{}, &ConfigurationError{Runtime: runtimeName, Err: ErrRuntimeNotFound}
	}
	inst = c.followCheckChain(inst)

	if !inst.HasCheckCommand() {
		return CheckResult{}, fmt.Errorf("runtime %q: %w", inst.Name, ErrNoSyntaxCheck)
	}

	env := c.Env
	if env == nil {
		env = HostEnv()
	}

	resolver := c.Resolver
	if resolver == nil {
		resolver = &installation.Resolver{Fs: c.Fs}
	}
	resolved, err := resolver.Resolve(ctx, inst, installation.LocalNode{}, macro.Map(env), c.IsUnix)
	if err != nil {
		return CheckResult{}, fmt.Errorf("%w: %w", ErrIO, err)
	}
	cmd, ok := resolved.CheckCommandLine()
	if !ok {
		return CheckResult{}, fmt.Errorf("runtime %q: %w", inst.Name, ErrInvalidCheckExecutable)
	}

	fs := c.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	tmp, err := writeCheckFile(fs, body)
	if err != nil {
		return CheckResult{}, err
	}
	defer func() {
		if rmErr := fs.Remove(tmp); rmErr != nil && !os.IsNotExist(rmErr) {
			c.logger().Warn("failed to remove check file", "path", tmp, "err", rmErr)
		}
	}()

	base := macro.Merge(env)
	base[installation.HomeVar] = resolved.LocalHome
	procEnv, err := resolved.EnvVarMap(base)
	if err != nil {
		return CheckResult{}, &ConfigurationError{Runtime: inst.Name, Err: err}
	}

	launcher := c.Launcher
	if launcher == nil {
		launcher = ProcLauncher{}
	}

	var out bytes.Buffer
	code, err := launcher.Launch(ctx, LaunchSpec{
		Args:   append(cmd, tmp),
		Env:    procEnv,
		Stdout: &out,
		Stderr: &out,
	})
	if err != nil {
		return CheckResult{}, err
	}

	result = CheckResult{
		Runtime:  inst.Name,
		OK:       code.IsSuccess(),
		Output:   strings.ReplaceAll(out.String(), tmp, CheckPlaceholder),
		ExitCode: code,
	}
	if result.OK && strings.TrimSpace(result.Output) == "" {
		result.Output = CheckOKMessage
	}
	c.logger().Debug("syntax check finished", "runtime", inst.Name, "exit_code", code)
	return result, nil
}

// followCheckChain follows check commands that name another installation.
// It stops at the first command that is not an installation name. A chain
// that leads back to the start uses the start; any other loop stops at the
// last installation before it repeats.
func (c *Checker) followCheckChain(start installation.Installation) installation.Installation {
	inst := start
	seen := map[string]bool{start.Name: true}
	for {
		next, ok := c.Registry.Get(strings.TrimSpace(inst.CheckCommand))
		if !ok {
			return inst
		}
		if next.Name == start.Name {
			return next
		}
		if seen[next.Name] {
			return inst
		}
		seen[next.Name] = true
		inst = next
	}
}

func (c *Checker) logger() *log.Logger {
	if c.Logger == nil {
		return log.Default()
	}
	return c.Logger
}

func writeCheckFile(fs afero.Fs, body string) (string, error) {
	f, err := afero.TempFile(fs, "", checkTempPattern)
	if err != nil {
		return "", fmt.Errorf("%w: failed to create temporary script file: %w", ErrIO, err)
	}
	name := f.Name()
	if _, err := f.WriteString(body + "\n"); err != nil {
		_ = f.Close()
		_ = fs.Remove(name)
		return "", fmt.Errorf("%w: failed to write temporary script file: %w", ErrIO, err)
	}
	if err := f.Close(); err != nil {
		_ = fs.Remove(name)
		return "", fmt.Errorf("%w: %w", ErrIO, err)
	}
	return name, nil
}
