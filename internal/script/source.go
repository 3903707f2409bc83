// SPDX-License-Identifier: MPL-2.0

// Package script turns a script source (a workspace file or inline text)
// into a file path that can be passed to a runtime.
package script

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/afero"

	"github.com/univscript/univscript/internal/macro"
)

// TempPattern is the file name pattern of materialized inline scripts.
const TempPattern = "script*.use"

var (
	// ErrEmptyScript is returned when an inline script has no content.
	ErrEmptyScript = errors.New("script seems to be empty")
	// ErrScriptNotFound is returned when a script file does not exist.
	ErrScriptNotFound = errors.New("script file not found")
)

type (
	// Source is the origin of a script body. The set of implementations is
	// closed: FileSource and StringSource.
	Source interface {
		// Materialize returns a path to the script. The cleanup function
		// must be called exactly once after the script has run; it is
		// never nil on success.
		Materialize(ctx context.Context, ws *Workspace, env macro.Resolver) (path string, cleanup func() error, err error)
		// Read returns the script body.
		Read(ctx context.Context, ws *Workspace, env macro.Resolver) ([]byte, error)
		// Describe returns a short human-readable description.
		Describe() string

		sealed()
	}

	// FileSource refers to an existing file. Path may contain macros and is
	// resolved against the workspace when relative. The file is never
	// deleted.
	FileSource struct {
		Path string
	}

	// StringSource is inline script text, written to a temporary file that
	// lives for one execution.
	StringSource struct {
		Command string
	}
)

func (FileSource) sealed()   {}
func (StringSource) sealed() {}

// Describe implements Source.
func (s FileSource) Describe() string { return "file " + s.Path }

// Describe implements Source.
func (StringSource) Describe() string { return "inline script" }

// resolve returns the absolute path of the file after macro expansion.
func (s FileSource) resolve(ws *Workspace, env macro.Resolver) string {
	return ws.Path(macro.Expand(s.Path, env))
}

// Materialize implements Source.
func (s FileSource) Materialize(ctx context.Context, ws *Workspace, env macro.Resolver) (string, func() error, error) {
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}
	if strings.TrimSpace(s.Path) == "" {
		return "", nil, fmt.Errorf("%w: empty path", ErrScriptNotFound)
	}

	path := s.resolve(ws, env)
	exists, err := afero.Exists(ws.Fs, path)
	if err != nil {
		return "", nil, fmt.Errorf("failed to stat script %q: %w", path, err)
	}
	if !exists {
		return "", nil, fmt.Errorf("%w: %s", ErrScriptNotFound, path)
	}
	return path, noCleanup, nil
}

// Read implements Source.
func (s FileSource) Read(ctx context.Context, ws *Workspace, env macro.Resolver) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := s.resolve(ws, env)
	data, err := afero.ReadFile(ws.Fs, path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrScriptNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read script %q: %w", path, err)
	}
	return data, nil
}

// Materialize implements Source.
func (s StringSource) Materialize(ctx context.Context, ws *Workspace, _ macro.Resolver) (string, func() error, error) {
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}
	if strings.TrimSpace(s.Command) == "" {
		return "", nil, ErrEmptyScript
	}

	path, err := ws.CreateTempFile(TempPattern, []byte(s.Command))
	if err != nil {
		return "", nil, err
	}
	return path, func() error { return ws.Delete(path) }, nil
}

// Read implements Source.
func (s StringSource) Read(context.Context, *Workspace, macro.Resolver) ([]byte, error) {
	return []byte(s.Command), nil
}

func noCleanup() error { return nil }
