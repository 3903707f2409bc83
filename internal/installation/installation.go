// SPDX-License-Identifier: MPL-2.0

package installation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/univscript/univscript/internal/macro"
)

// HomeVar is the environment variable that exposes the resolved home
// directory of the runtime to the executed process.
const HomeVar = "RUNTIME_HOME"

var (
	// ErrInvalidInstallation is the sentinel error wrapped by InvalidInstallationError.
	ErrInvalidInstallation = errors.New("invalid runtime installation")
	// ErrDuplicateName is returned when two installations share a name.
	ErrDuplicateName = errors.New("duplicate runtime installation name")
)

type (
	// Installation is a named runtime configuration record.
	// Values are treated as immutable; every resolution step returns a copy.
	Installation struct {
		// Name uniquely identifies the installation.
		Name string
		// Home is the installation directory. It may contain macros and may
		// be a network-share path such as //server/share/perl.
		Home string
		// WindowsExecutable is the executable path relative to Home on Windows.
		WindowsExecutable string
		// UnixExecutable is the executable path relative to Home on Unix.
		UnixExecutable string
		// CheckCommand is the syntax-check command line relative to Home, or
		// the name of another installation that provides one.
		CheckCommand string
		// Env is a KEY=VALUE block (Java properties syntax) applied on every OS.
		Env string
		// EnvWindows is applied after Env on Windows targets.
		EnvWindows string
		// EnvUnix is applied after Env on Unix targets.
		EnvUnix string
	}

	// InvalidInstallationError describes why an installation is unusable.
	// It wraps ErrInvalidInstallation for errors.Is() compatibility.
	InvalidInstallationError struct {
		Name   string
		Reason string
	}
)

// Error implements the error interface.
func (e *InvalidInstallationError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("invalid runtime installation: %s", e.Reason)
	}
	return fmt.Sprintf("invalid runtime installation %q: %s", e.Name, e.Reason)
}

// Unwrap returns ErrInvalidInstallation.
func (e *InvalidInstallationError) Unwrap() error { return ErrInvalidInstallation }

// Validate checks the fields that every installation needs.
func (i Installation) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return &InvalidInstallationError{Reason: "name must not be empty"}
	}
	if strings.TrimSpace(i.Home) == "" {
		return &InvalidInstallationError{Name: i.Name, Reason: "home must not be empty"}
	}
	if i.UnixExecutable == "" && i.WindowsExecutable == "" {
		return &InvalidInstallationError{Name: i.Name, Reason: "at least one executable path is required"}
	}
	return nil
}

// ForEnvironment returns a copy whose Home has been macro-expanded against env.
func (i Installation) ForEnvironment(env macro.Resolver) Installation {
	i.Home = macro.Expand(i.Home, env)
	return i
}

// HasCheckCommand reports whether a syntax-check command is configured.
func (i Installation) HasCheckCommand() bool {
	return strings.TrimSpace(i.CheckCommand) != ""
}
