// SPDX-License-Identifier: MPL-2.0

package script

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// Workspace is the directory a step runs in, on top of an afero filesystem.
// Tests use an in-memory filesystem; production code uses the OS one.
type Workspace struct {
	Fs  afero.Fs
	Dir string
}

// NewOSWorkspace returns a workspace on the OS filesystem. An empty dir
// means the current working directory.
func NewOSWorkspace(dir string) (*Workspace, error) {
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current working directory: %w", err)
		}
		dir = wd
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace %q: %w", dir, err)
	}
	return &Workspace{Fs: afero.NewOsFs(), Dir: abs}, nil
}

// Path resolves p against the workspace directory unless it is absolute.
func (w *Workspace) Path(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(w.Dir, p)
}

// Mkdirs creates the workspace directory and its parents.
func (w *Workspace) Mkdirs() error {
	if err := w.Fs.MkdirAll(w.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create workspace %q: %w", w.Dir, err)
	}
	return nil
}

// Exists reports whether p (resolved against the workspace) exists.
func (w *Workspace) Exists(p string) (bool, error) {
	return afero.Exists(w.Fs, w.Path(p))
}

// Delete removes p (resolved against the workspace).
func (w *Workspace) Delete(p string) error {
	if err := w.Fs.Remove(w.Path(p)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete %q: %w", p, err)
	}
	return nil
}

// CreateTempFile writes content to a new file in the workspace directory
// whose name matches pattern (see os.CreateTemp) and returns its path.
func (w *Workspace) CreateTempFile(pattern string, content []byte) (string, error) {
	if err := w.Mkdirs(); err != nil {
		return "", err
	}

	f, err := afero.TempFile(w.Fs, w.Dir, pattern)
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file in %q: %w", w.Dir, err)
	}
	name := f.Name()

	if _, err := f.Write(content); err != nil {
		_ = f.Close()
		_ = w.Fs.Remove(name)
		return "", fmt.Errorf("failed to write temporary file %q: %w", name, err)
	}
	if err := f.Close(); err != nil {
		_ = w.Fs.Remove(name)
		return "", fmt.Errorf("failed to close temporary file %q: %w", name, err)
	}
	return name, nil
}
