// SPDX-License-Identifier: MPL-2.0

package executor

import (
	"io"
	"os"

	"github.com/charmbracelet/log"

	"github.com/univscript/univscript/internal/installation"
	"github.com/univscript/univscript/internal/script"
	"github.com/univscript/univscript/pkg/platform"
)

// StepContext is what a running step can see of the build around it.
type StepContext struct {
	// Executor runs the step's Request.
	Executor *Executor
	// Workspace is the directory the process runs in.
	Workspace *script.Workspace
	// Env is the environment of the invoking build.
	Env map[string]string
	// BuildParameters are the build's string parameters.
	BuildParameters map[string]string
	// Node is the agent the step runs on.
	Node installation.Node
	// IsUnix selects the executable and path conventions of the node.
	IsUnix bool
	// Stdout receives process output and tagged log lines.
	Stdout io.Writer
	// Stderr receives process error output.
	Stderr io.Writer
	Logger *log.Logger
}

// NewStepContext returns a context for the local host: host environment,
// the built-in node and the standard streams.
func NewStepContext(ws *script.Workspace) *StepContext {
	return &StepContext{
		Workspace: ws,
		Env:       HostEnv(),
		Node:      installation.LocalNode{},
		IsUnix:    platform.HostIsUnix(),
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
		Logger:    log.Default(),
	}
}

// withDefaults fills unset fields. IsUnix is taken as given.
func (c StepContext) withDefaults() (StepContext, error) {
	if c.Workspace == nil {
		ws, err := script.NewOSWorkspace("")
		if err != nil {
			return c, err
		}
		c.Workspace = ws
	}
	if c.Env == nil {
		c.Env = HostEnv()
	}
	if c.Node == nil {
		c.Node = installation.LocalNode{}
	}
	if c.Stdout == nil {
		c.Stdout = io.Discard
	}
	if c.Stderr == nil {
		c.Stderr = c.Stdout
	}
	if c.Logger == nil {
		c.Logger = log.New(io.Discard)
	}
	return c, nil
}
