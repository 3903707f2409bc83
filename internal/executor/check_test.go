// SPDX-License-Identifier: MPL-2.0

package executor

import (
	"context"
	"errors"
	"os"
	"slices"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/univscript/univscript/internal/installation"
	"github.com/univscript/univscript/internal/script"
)

// echoLauncher writes a message mentioning the script path and exits with code.
type echoLauncher struct {
	code ExitCode
	args []string
	env  map[string]string
	fs   afero.Fs
	body string
}

func (e *echoLauncher) Launch(_ context.Context, spec LaunchSpec) (ExitCode, error) {
	e.args = spec.Args
	e.env = spec.Env
	tmp := spec.Args[len(spec.Args)-1]
	if data, err := afero.ReadFile(e.fs, tmp); err == nil {
		e.body = string(data)
	}
	if e.code != 0 {
		_, _ = spec.Stderr.Write([]byte("syntax error at " + tmp + " line 1.\n"))
	}
	return e.code, nil
}

func newChecker(t *testing.T, code ExitCode, installs ...installation.Installation) (*Checker, *echoLauncher) {
	t.Helper()

	fs := afero.NewMemMapFs()
	for _, p := range []string{"/opt/perl/bin/perl", "/opt/lint/bin/lint"} {
		if err := afero.WriteFile(fs, p, []byte("#!"), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	reg, err := installation.NewRegistry(installs...)
	if err != nil {
		t.Fatal(err)
	}
	l := &echoLauncher{code: code, fs: fs}
	return &Checker{
		Registry: reg,
		Launcher: l,
		Fs:       fs,
		Env:      map[string]string{"PATH": "/usr/bin"},
		IsUnix:   true,
	}, l
}

var perlWithCheck = installation.Installation{
	Name:           "perl",
	Home:           "/opt/perl",
	UnixExecutable: "bin/perl",
	CheckCommand:   "bin/perl -c",
	Env:            "PERL_FLAGS=strict",
}

func TestCheckOK(t *testing.T) {
	t.Parallel()

	c, l := newChecker(t, 0, perlWithCheck)
	res, err := c.Check(t.Context(), "perl", "print 1;")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if !res.OK || res.Output != CheckOKMessage || res.Runtime != "perl" {
		t.Errorf("Check() = %+v", res)
	}
	if !slices.Equal(l.args[:2], []string{"/opt/perl/bin/perl", "-c"}) || len(l.args) != 3 {
		t.Errorf("args = %q", l.args)
	}
	if l.body != "print 1;\n" {
		t.Errorf("script body = %q", l.body)
	}
	if l.env["RUNTIME_HOME"] != "/opt/perl" || l.env["PERL_FLAGS"] != "strict" || l.env["PATH"] != "/usr/bin" {
		t.Errorf("env = %v", l.env)
	}
	if ok, _ := afero.Exists(c.Fs, l.args[2]); ok {
		t.Error("check file was not removed")
	}
}

func TestCheckFailureHidesTempPath(t *testing.T) {
	t.Parallel()

	c, l := newChecker(t, 255, perlWithCheck)
	res, err := c.Check(t.Context(), "perl", "print(;")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if res.OK || res.ExitCode != 255 {
		t.Errorf("Check() = %+v, want failure with code 255", res)
	}
	if res.Output != "syntax error at script.use line 1.\n" {
		t.Errorf("Output = %q", res.Output)
	}
	if strings.Contains(res.Output, l.args[2]) {
		t.Error("output leaks the temporary path")
	}
}

func TestCheckChain(t *testing.T) {
	t.Parallel()

	lint := installation.Installation{Name: "lint", Home: "/opt/lint", UnixExecutable: "bin/lint", CheckCommand: "bin/lint --check"}
	perl := perlWithCheck
	perl.CheckCommand = " lint "

	c, l := newChecker(t, 0, perl, lint)
	res, err := c.Check(t.Context(), "perl", "1;")
	if err != nil {
		t.Fatal(err)
	}
	if res.Runtime != "lint" || l.args[0] != "/opt/lint/bin/lint" {
		t.Errorf("Check() used %q with %q", res.Runtime, l.args)
	}
}

func TestCheckChainCycle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		installs []installation.Installation
		exe      string
		want     string
	}{
		{
			name: "back to start",
			installs: []installation.Installation{
				{Name: "a", Home: "/opt/a", UnixExecutable: "x", CheckCommand: "b"},
				{Name: "b", Home: "/opt/b", UnixExecutable: "x", CheckCommand: "a"},
			},
			exe:  "/opt/a/b",
			want: "a",
		},
		{
			name: "loop past start",
			installs: []installation.Installation{
				{Name: "a", Home: "/opt/a", UnixExecutable: "x", CheckCommand: "b"},
				{Name: "b", Home: "/opt/b", UnixExecutable: "x", CheckCommand: "c"},
				{Name: "c", Home: "/opt/c", UnixExecutable: "x", CheckCommand: "b"},
			},
			exe:  "/opt/c/b",
			want: "c",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c, l := newChecker(t, 0, tt.installs...)
			if err := afero.WriteFile(c.Fs, tt.exe, []byte("#!"), 0o755); err != nil {
				t.Fatal(err)
			}
			res, err := c.Check(t.Context(), "a", "1")
			if err != nil {
				t.Fatalf("Check() error = %v", err)
			}
			if res.Runtime != tt.want || l.args[0] != tt.exe {
				t.Errorf("Check() used %q with %q, want %q with %s", res.Runtime, l.args, tt.want, tt.exe)
			}
		})
	}
}

func TestCheckChainCycleMissingExecutable(t *testing.T) {
	t.Parallel()

	a := installation.Installation{Name: "a", Home: "/opt/a", UnixExecutable: "x", CheckCommand: "b"}
	b := installation.Installation{Name: "b", Home: "/opt/b", UnixExecutable: "x", CheckCommand: "a"}

	c, _ := newChecker(t, 0, a, b)
	_, err := c.Check(t.Context(), "a", "1")
	if !errors.Is(err, ErrInvalidCheckExecutable) {
		t.Fatalf("err = %v, want ErrInvalidCheckExecutable", err)
	}
}

func TestCheckErrors(t *testing.T) {
	t.Parallel()

	noCheck := installation.Installation{Name: "bare", Home: "/opt/perl", UnixExecutable: "bin/perl"}
	badCheck := installation.Installation{Name: "bad", Home: "/opt/perl", UnixExecutable: "bin/perl", CheckCommand: "bin/missing -c"}

	tests := []struct {
		name    string
		runtime string
		body    string
		want    error
	}{
		{"empty body", "perl", " \n", script.ErrEmptyScript},
		{"unknown runtime", "ruby", "1", ErrRuntimeNotFound},
		{"no check command", "bare", "1", ErrNoSyntaxCheck},
		{"missing check executable", "bad", "1", ErrInvalidCheckExecutable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c, l := newChecker(t, 0, perlWithCheck, noCheck, badCheck)
			_, err := c.Check(t.Context(), tt.runtime, tt.body)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if l.args != nil {
				t.Error("launcher must not be called")
			}
		})
	}
}

func TestCheckWithRealProcess(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("requires /bin/sh")
	}
	t.Parallel()

	sh := installation.Installation{Name: "sh", Home: "/bin", UnixExecutable: "sh", CheckCommand: "sh -n"}
	reg, err := installation.NewRegistry(sh)
	if err != nil {
		t.Fatal(err)
	}
	c := &Checker{Registry: reg, Env: map[string]string{"PATH": "/usr/bin:/bin"}, IsUnix: true}

	res, err := c.Check(t.Context(), "sh", "echo ok")
	if err != nil || !res.OK {
		t.Fatalf("Check(valid) = %+v, %v", res, err)
	}

	res, err = c.Check(t.Context(), "sh", "if then fi (")
	if err != nil {
		t.Fatal(err)
	}
	if res.OK {
		t.Error("Check(invalid) reported OK")
	}
	if !strings.Contains(res.Output, CheckPlaceholder) {
		t.Errorf("Output = %q, want the placeholder name", res.Output)
	}
}
