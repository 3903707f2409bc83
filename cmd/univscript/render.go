// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/univscript/univscript/internal/config"
	"github.com/univscript/univscript/internal/executor"
	"github.com/univscript/univscript/internal/installation"
	"github.com/univscript/univscript/internal/issue"
	"github.com/univscript/univscript/internal/script"
)

// issueStyle is the glamour style used for issue help.
const issueStyle = "dark"

// classifyError maps a command failure to the issue catalog entry that
// explains it. Zero means no entry applies.
func classifyError(err error) issue.Id {
	if known, ok := issue.IssueOf(err); ok {
		return known.Id()
	}

	switch {
	case errors.Is(err, executor.ErrRuntimeNotFound):
		return issue.RuntimeNotFoundId
	case errors.Is(err, executor.ErrNoExecutable), errors.Is(err, executor.ErrInvalidCheckExecutable):
		return issue.ExecutableNotFoundId
	case errors.Is(err, script.ErrScriptNotFound):
		return issue.ScriptNotFoundId
	case errors.Is(err, script.ErrEmptyScript), errors.Is(err, executor.ErrNoScriptSource), errors.Is(err, executor.ErrIO):
		return issue.ScriptMaterializeFailedId
	case errors.Is(err, executor.ErrNoSyntaxCheck):
		return issue.NoSyntaxCheckId
	case errors.Is(err, config.ErrUnknownNode):
		return issue.NodeHomeUnknownId
	case errors.Is(err, installation.ErrInvalidInstallation), errors.Is(err, installation.ErrDuplicateName):
		return issue.InvalidInstallationId
	case errors.Is(err, executor.ErrExecutionFailed):
		return issue.ExecutionFailedId
	default:
		return 0
	}
}

// formatErrorForDisplay formats an error for user display.
// ActionableErrors include their suggestions and, in verbose mode, the chain.
func formatErrorForDisplay(err error, verbose bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verbose)
	}
	return err.Error()
}

// renderError writes the help for err to w. Script failures only get help
// in verbose mode; their output already explains them.
func renderError(w io.Writer, err error, verbose bool) {
	if err == nil {
		return
	}

	var ae *issue.ActionableError
	if errors.As(err, &ae) && (ae.HasSuggestions() || verbose) {
		fmt.Fprintln(w, formatErrorForDisplay(err, verbose))
	}

	id := classifyError(err)
	if id == 0 || (id == issue.ExecutionFailedId && !verbose) {
		return
	}
	if entry := issue.Get(id); entry != nil {
		rendered, renderErr := entry.Render(issueStyle)
		if renderErr != nil {
			return
		}
		fmt.Fprint(w, rendered)
	}
}
