// SPDX-License-Identifier: MPL-2.0

package installation

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/afero"

	"github.com/univscript/univscript/internal/macro"
	"github.com/univscript/univscript/internal/params"
)

type (
	// MountTranslator rewrites network-share homes to local mount points.
	// Implementations must not fail; they return the input when no
	// translation applies.
	MountTranslator interface {
		Translate(ctx context.Context, home string) string
	}

	// Resolver turns installations into Resolved values for one target.
	Resolver struct {
		// Fs is used for existence checks. Nil means the OS filesystem.
		Fs afero.Fs
		// Mounts translates share homes on Unix targets. Nil disables it.
		Mounts MountTranslator
		// Tokenizer parses check command lines.
		Tokenizer params.Tokenizer
	}

	// Resolved is an installation bound to one execution context
	// (node, OS family and environment). It is immutable.
	Resolved struct {
		Installation

		// LocalHome is Home after mount-point translation (Unix) or Home itself.
		LocalHome string
		// IsUnix records the OS family the installation was resolved for.
		IsUnix bool

		fs        afero.Fs
		tokenizer params.Tokenizer
	}
)

// Resolve applies the resolution stages in order: environment expansion,
// node translation and, on Unix targets, mount-point translation.
func (r *Resolver) Resolve(ctx context.Context, inst Installation, node Node, env macro.Resolver, isUnix bool) (*Resolved, error) {
	expanded := inst.ForEnvironment(env)

	inst, err := expanded.ForNode(ctx, node)
	if err != nil {
		return nil, fmt.Errorf("resolve runtime %q for node: %w", expanded.Name, err)
	}

	localHome := inst.Home
	if isUnix && r.Mounts != nil {
		localHome = r.Mounts.Translate(ctx, inst.Home)
	}

	fs := r.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}

	return &Resolved{
		Installation: inst,
		LocalHome:    localHome,
		IsUnix:       isUnix,
		fs:           fs,
		tokenizer:    r.Tokenizer,
	}, nil
}

// ExecutablePath returns the computed executable path without checking it.
// It is empty when no executable is configured for the target OS family.
func (r *Resolved) ExecutablePath() string {
	if r.IsUnix {
		if r.UnixExecutable == "" {
			return ""
		}
		return joinPath(r.LocalHome, r.UnixExecutable, "/")
	}
	if r.WindowsExecutable == "" {
		return ""
	}
	return joinPath(r.Home, r.WindowsExecutable, `\`)
}

// Executable returns the executable path when a filesystem entry exists
// there at call time. ok is false otherwise; callers must treat that as a
// configuration error and must not launch anything.
func (r *Resolved) Executable() (path string, ok bool) {
	path = r.ExecutablePath()
	if !r.exists(path) {
		return "", false
	}
	return path, true
}

// CheckCommandLine returns the syntax-check executable followed by its
// arguments. ok is false when no check command is configured or its
// executable does not exist.
func (r *Resolved) CheckCommandLine() (cmd []string, ok bool) {
	if !r.HasCheckCommand() {
		return nil, false
	}

	exe, args, ok := r.tokenizer.ParseCommandLine(r.LocalHome + "/" + r.CheckCommand)
	if !ok || !r.exists(exe) {
		return nil, false
	}

	cmd = make([]string, 0, len(args)+1)
	cmd = append(cmd, exe)
	return append(cmd, args...), true
}

func (r *Resolved) exists(path string) bool {
	if path == "" {
		return false
	}
	ok, err := afero.Exists(r.fs, path)
	return err == nil && ok
}

// joinPath appends rel to home with a single separator, without cleaning,
// so share prefixes such as "//" are preserved.
func joinPath(home, rel, sep string) string {
	if rel == "" {
		return home
	}
	if home == "" {
		return rel
	}
	return strings.TrimRight(home, `/\`) + sep + strings.TrimLeft(rel, `/\`)
}
