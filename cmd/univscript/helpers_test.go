// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/univscript/univscript/internal/config"
	"github.com/univscript/univscript/internal/executor"
	"github.com/univscript/univscript/internal/issue"
	"github.com/univscript/univscript/internal/script"
)

func TestParseDefines(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		defines []string
		want    map[string]string
		wantErr bool
	}{
		{"empty", nil, map[string]string{}, false},
		{"single", []string{"A=1"}, map[string]string{"A": "1"}, false},
		{"value with equals", []string{"URL=a=b"}, map[string]string{"URL": "a=b"}, false},
		{"empty value", []string{"A="}, map[string]string{"A": ""}, false},
		{"later wins", []string{"A=1", "A=2"}, map[string]string{"A": "2"}, false},
		{"missing equals", []string{"A"}, nil, true},
		{"empty key", []string{"=1"}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := parseDefines(tt.defines)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseDefines() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("parseDefines() = %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("parseDefines()[%q] = %q, want %q", k, got[k], v)
				}
			}
		})
	}
}

func TestExitCodeOf(t *testing.T) {
	t.Parallel()

	failure := &executor.ExecutionFailureError{ExitCode: 7, Message: "Execution failed"}

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"plain error", errors.New("boom"), 1},
		{"exit error", &ExitError{Code: 4}, 4},
		{"wrapped exit error", fmt.Errorf("run: %w", &ExitError{Code: 9}), 9},
		{"execution failure", failure, 7},
		{"wrapped execution failure", fmt.Errorf("step: %w", failure), 7},
		{"configuration error", &executor.ConfigurationError{Runtime: "perl", Err: executor.ErrRuntimeNotFound}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := exitCodeOf(tt.err); got != tt.want {
				t.Errorf("exitCodeOf(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestClassifyError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want issue.Id
	}{
		{"runtime not found", &executor.ConfigurationError{Runtime: "x", Err: executor.ErrRuntimeNotFound}, issue.RuntimeNotFoundId},
		{"no executable", &executor.ConfigurationError{Runtime: "x", Err: executor.ErrNoExecutable}, issue.ExecutableNotFoundId},
		{"script not found", fmt.Errorf("%w: a.pl", script.ErrScriptNotFound), issue.ScriptNotFoundId},
		{"empty script", script.ErrEmptyScript, issue.ScriptMaterializeFailedId},
		{"no syntax check", executor.ErrNoSyntaxCheck, issue.NoSyntaxCheckId},
		{"unknown node", fmt.Errorf("%w: %q", config.ErrUnknownNode, "n"), issue.NodeHomeUnknownId},
		{"execution failed", &executor.ExecutionFailureError{ExitCode: 2}, issue.ExecutionFailedId},
		{"unrelated", errors.New("boom"), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := classifyError(tt.err); got != tt.want {
				t.Errorf("classifyError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInlineScript(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		stdin string
		args  []string
		want  string
	}{
		{"no args", "ignored", nil, ""},
		{"joined args", "ignored", []string{"print", `"a";`}, `print "a";`},
		{"stdin", "line 1\nline 2\n", []string{"-"}, "line 1\nline 2\n"},
		{"dash among args", "ignored", []string{"-", "x"}, "- x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := inlineScript(strings.NewReader(tt.stdin), tt.args)
			if err != nil {
				t.Fatalf("inlineScript() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("inlineScript() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderError(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	renderError(&buf, &executor.ConfigurationError{Runtime: "ruby", Err: executor.ErrRuntimeNotFound}, false)
	if !strings.Contains(buf.String(), "configured") {
		t.Errorf("rendered help missing issue text:\n%s", buf.String())
	}

	buf.Reset()
	renderError(&buf, &executor.ExecutionFailureError{ExitCode: 2, Message: "Execution failed"}, false)
	if buf.Len() != 0 {
		t.Errorf("script failure rendered help without --verbose:\n%s", buf.String())
	}

	buf.Reset()
	renderError(&buf, nil, true)
	if buf.Len() != 0 {
		t.Errorf("nil error rendered output:\n%s", buf.String())
	}
}
