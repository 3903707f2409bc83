// SPDX-License-Identifier: MPL-2.0

package executor

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/afero"

	"github.com/univscript/univscript/internal/installation"
	"github.com/univscript/univscript/internal/metrics"
	"github.com/univscript/univscript/internal/script"
)

// fakeLauncher records launches and answers with a fixed result. While
// "running" it snapshots the files in the workspace so tests can check that
// a materialized script existed at launch time.
type fakeLauncher struct {
	mu       sync.Mutex
	code     ExitCode
	err      error
	launches []LaunchSpec
	fs       afero.Fs
	seen     []string
}

func (f *fakeLauncher) Launch(_ context.Context, spec LaunchSpec) (ExitCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.launches = append(f.launches, spec)
	if f.fs != nil {
		for _, a := range spec.Args {
			if ok, _ := afero.Exists(f.fs, a); ok {
				f.seen = append(f.seen, a)
			}
		}
	}
	return f.code, f.err
}

func (f *fakeLauncher) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.launches)
}

func (f *fakeLauncher) last(t *testing.T) LaunchSpec {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.launches) == 0 {
		t.Fatal("launcher was never called")
	}
	return f.launches[len(f.launches)-1]
}

type fixture struct {
	fs       afero.Fs
	launcher *fakeLauncher
	exec     *Executor
	out      *bytes.Buffer
	metrics  *metrics.Recorder
}

func newFixture(t *testing.T, installs ...installation.Installation) *fixture {
	t.Helper()

	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/opt/perl/bin/perl", []byte("#!"), 0o755); err != nil {
		t.Fatal(err)
	}
	if len(installs) == 0 {
		installs = []installation.Installation{{
			Name:           "perl",
			Home:           "/opt/perl",
			UnixExecutable: "bin/perl",
			Env:            "PERL5LIB=${RUNTIME_HOME}/lib\nPATH=${RUNTIME_HOME}/bin;${PATH}",
		}}
	}
	reg, err := installation.NewRegistry(installs...)
	if err != nil {
		t.Fatal(err)
	}

	f := &fixture{
		fs:       fs,
		launcher: &fakeLauncher{fs: fs},
		out:      &bytes.Buffer{},
		metrics:  metrics.New(),
	}
	f.exec = New(reg,
		WithLauncher(f.launcher),
		WithResolver(&installation.Resolver{Fs: fs}),
		WithMetrics(f.metrics),
	)
	return f
}

func (f *fixture) context() StepContext {
	return StepContext{
		Workspace:       &script.Workspace{Fs: f.fs, Dir: "/ws"},
		Env:             map[string]string{"PATH": "/usr/bin", "SHARED": "from-env"},
		BuildParameters: map[string]string{"FOO": "bar", "SHARED": "from-param"},
		Node:            installation.LocalNode{},
		IsUnix:          true,
		Stdout:          f.out,
	}
}

func TestExecuteStringSource(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	code, err := f.exec.Execute(t.Context(), f.context(), Request{
		RuntimeName:       "perl",
		Source:            script.StringSource{Command: "print 1;"},
		RuntimeParameters: "-w",
		ScriptParameters:  "${FOO} ${SHARED}",
	})
	if err != nil || code != 0 {
		t.Fatalf("Execute() = %d, %v; want 0, nil", code, err)
	}

	spec := f.launcher.last(t)
	if len(spec.Args) != 5 {
		t.Fatalf("Args = %q, want 5 elements", spec.Args)
	}
	if spec.Args[0] != "/opt/perl/bin/perl" || spec.Args[1] != "-w" {
		t.Errorf("Args prefix = %q", spec.Args[:2])
	}
	if !strings.HasPrefix(spec.Args[2], "/ws/script") || !strings.HasSuffix(spec.Args[2], ".use") {
		t.Errorf("script path = %q", spec.Args[2])
	}
	if got := spec.Args[3:]; !slices.Equal(got, []string{"bar", "from-param"}) {
		t.Errorf("script parameters = %q, want [bar from-param]", got)
	}
	if spec.Dir != "/ws" {
		t.Errorf("Dir = %q, want /ws", spec.Dir)
	}

	if !slices.Contains(f.launcher.seen, spec.Args[2]) {
		t.Error("temporary script did not exist at launch time")
	}
	if ok, _ := afero.Exists(f.fs, spec.Args[2]); ok {
		t.Error("temporary script was not removed after execution")
	}
}

func TestExecuteEnvironment(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	if _, err := f.exec.Execute(t.Context(), f.context(), Request{
		RuntimeName: "perl",
		Source:      script.StringSource{Command: "1"},
	}); err != nil {
		t.Fatal(err)
	}

	env := f.launcher.last(t).Env
	want := map[string]string{
		"RUNTIME_HOME": "/opt/perl",
		"PERL5LIB":     "/opt/perl/lib",
		"PATH":         "/opt/perl/bin:/usr/bin",
		"FOO":          "bar",
		// build env wins over build parameters in the process environment
		"SHARED": "from-env",
	}
	for k, v := range want {
		if env[k] != v {
			t.Errorf("env[%s] = %q, want %q", k, env[k], v)
		}
	}
}

func TestExecuteFileSourceIsKept(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	if err := afero.WriteFile(f.fs, "/ws/build.pl", []byte("print 1;"), 0o644); err != nil {
		t.Fatal(err)
	}

	code, err := f.exec.Execute(t.Context(), f.context(), Request{
		RuntimeName: "perl",
		Source:      script.FileSource{Path: "build.pl"},
	})
	if err != nil || code != 0 {
		t.Fatalf("Execute() = %d, %v", code, err)
	}
	if got := f.launcher.last(t).Args; !slices.Equal(got, []string{"/opt/perl/bin/perl", "/ws/build.pl"}) {
		t.Errorf("Args = %q", got)
	}
	if ok, _ := afero.Exists(f.fs, "/ws/build.pl"); !ok {
		t.Error("file-sourced script must not be deleted")
	}
}

func TestExecuteFailure(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		ignore   bool
		wantErr  bool
		wantLine string
		outcome  metrics.Outcome
	}{
		{name: "propagated", wantErr: true, outcome: metrics.OutcomeFailed},
		{name: "ignored", ignore: true, wantLine: WarningTag + " Execution failed (exit code 3)", outcome: metrics.OutcomeIgnored},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t)
			f.launcher.code = 3

			code, err := f.exec.Execute(t.Context(), f.context(), Request{
				RuntimeName:           "perl",
				Source:                script.StringSource{Command: "exit 3"},
				IgnoreFailedExecution: tt.ignore,
			})
			if code != 3 {
				t.Errorf("code = %d, want 3", code)
			}

			if tt.wantErr {
				var failure *ExecutionFailureError
				if !errors.As(err, &failure) || failure.ExitCode != 3 {
					t.Fatalf("err = %v, want ExecutionFailureError with code 3", err)
				}
				if !errors.Is(err, ErrExecutionFailed) {
					t.Error("err should wrap ErrExecutionFailed")
				}
				if got, ok := ExitCodeOf(err); !ok || got != 3 {
					t.Errorf("ExitCodeOf() = %d, %v", got, ok)
				}
			} else if err != nil {
				t.Fatalf("err = %v, want nil", err)
			}

			if tt.wantLine != "" && !strings.Contains(f.out.String(), tt.wantLine) {
				t.Errorf("output %q missing %q", f.out.String(), tt.wantLine)
			}
			if got := testutil.ToFloat64(f.metrics.Executions("perl", tt.outcome)); got != 1 {
				t.Errorf("metric %s = %v, want 1", tt.outcome, got)
			}

			// Temp file is gone on the failure path too.
			if ok, _ := afero.Exists(f.fs, f.launcher.last(t).Args[1]); ok {
				t.Error("temporary script left behind after failure")
			}
		})
	}
}

func TestExecuteConfigurationErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		req     Request
		install []installation.Installation
		want    error
		tagged  bool
	}{
		{
			name:   "unknown runtime",
			req:    Request{RuntimeName: "ruby", Source: script.StringSource{Command: "1"}},
			want:   ErrRuntimeNotFound,
			tagged: true,
		},
		{
			name:    "missing executable",
			req:     Request{RuntimeName: "py", Source: script.StringSource{Command: "1"}},
			install: []installation.Installation{{Name: "py", Home: "/opt/py", UnixExecutable: "bin/python3"}},
			want:    ErrNoExecutable,
			tagged:  true,
		},
		{
			name: "empty inline script",
			req:  Request{RuntimeName: "perl", Source: script.StringSource{Command: "  "}},
			want: ErrNoScriptSource,
		},
		{
			name: "missing script file",
			req:  Request{RuntimeName: "perl", Source: script.FileSource{Path: "nope.pl"}},
			want: ErrNoScriptSource,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, tt.install...)
			_, err := f.exec.Execute(t.Context(), f.context(), tt.req)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			var cfgErr *ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Errorf("err = %T, want *ConfigurationError", err)
			}
			if f.launcher.calls() != 0 {
				t.Error("no process may be launched on a configuration error")
			}
			if tt.tagged && !strings.Contains(f.out.String(), ErrorTag+" Runtime executable is NULL") {
				t.Errorf("output %q missing error tag", f.out.String())
			}

			files, _ := afero.Glob(f.fs, "/ws/script*")
			if len(files) != 0 {
				t.Errorf("temporary scripts left behind: %v", files)
			}
		})
	}
}

func TestExecuteHomeUsesBuildParameters(t *testing.T) {
	t.Parallel()

	f := newFixture(t, installation.Installation{Name: "perl", Home: "${TOOLS}/perl", UnixExecutable: "bin/perl"})
	sc := f.context()
	sc.BuildParameters["TOOLS"] = "/opt"

	code, err := f.exec.Execute(t.Context(), sc, Request{
		RuntimeName: "perl",
		Source:      script.StringSource{Command: "1"},
	})
	if err != nil || code != 0 {
		t.Fatalf("Execute() = %d, %v; want 0, nil", code, err)
	}

	spec := f.launcher.last(t)
	if spec.Args[0] != "/opt/perl/bin/perl" {
		t.Errorf("executable = %q, want /opt/perl/bin/perl", spec.Args[0])
	}
	if spec.Env[installation.HomeVar] != "/opt/perl" {
		t.Errorf("%s = %q, want /opt/perl", installation.HomeVar, spec.Env[installation.HomeVar])
	}
}

func TestExecuteInvalidEnvBlock(t *testing.T) {
	t.Parallel()

	f := newFixture(t, installation.Installation{
		Name:           "perl",
		Home:           "/opt/perl",
		UnixExecutable: "bin/perl",
		Env:            "BAD=\\u12zz",
	})
	_, err := f.exec.Execute(t.Context(), f.context(), Request{
		RuntimeName: "perl",
		Source:      script.StringSource{Command: "1"},
	})
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("err = %v, want *ConfigurationError", err)
	}
	if f.launcher.calls() != 0 {
		t.Error("no process may be launched with an invalid env block")
	}
	if !strings.Contains(f.out.String(), ErrorTag+" Invalid environment variables for runtime perl") {
		t.Errorf("output %q missing error tag", f.out.String())
	}
	if files, _ := afero.Glob(f.fs, "/ws/script*"); len(files) != 0 {
		t.Errorf("temporary scripts left behind: %v", files)
	}
}

func TestExecuteLaunchError(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.launcher.err = errors.Join(ErrIO, errors.New("exec format error"))

	_, err := f.exec.Execute(t.Context(), f.context(), Request{
		RuntimeName: "perl",
		Source:      script.StringSource{Command: "1"},
	})
	if !errors.Is(err, ErrIO) {
		t.Fatalf("err = %v, want ErrIO", err)
	}
	if _, ok := ExitCodeOf(err); ok {
		t.Error("a launch error must not carry an exit code")
	}
	if got := testutil.ToFloat64(f.metrics.Executions("perl", metrics.OutcomeIOError)); got != 1 {
		t.Errorf("io_error metric = %v, want 1", got)
	}
}

func TestExecuteNodeTranslation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	if err := afero.WriteFile(f.fs, "/agent/perl/bin/perl", []byte("#!"), 0o755); err != nil {
		t.Fatal(err)
	}
	sc := f.context()
	sc.Node = installation.NewToolLocationNode("agent-1", map[string]string{"perl": "/agent/perl"})

	if _, err := f.exec.Execute(t.Context(), sc, Request{RuntimeName: "perl", RuntimeParameters: "-v"}); err != nil {
		t.Fatal(err)
	}
	spec := f.launcher.last(t)
	if !slices.Equal(spec.Args, []string{"/agent/perl/bin/perl", "-v"}) {
		t.Errorf("Args = %q", spec.Args)
	}
	if spec.Env["RUNTIME_HOME"] != "/agent/perl" {
		t.Errorf("RUNTIME_HOME = %q", spec.Env["RUNTIME_HOME"])
	}
}

func TestExecuteCreatesWorkspace(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	sc := f.context()
	sc.Workspace = &script.Workspace{Fs: f.fs, Dir: "/jobs/a/workspace"}

	if _, err := f.exec.Execute(t.Context(), sc, Request{RuntimeName: "perl"}); err != nil {
		t.Fatal(err)
	}
	if ok, _ := afero.DirExists(f.fs, "/jobs/a/workspace"); !ok {
		t.Error("workspace directory was not created")
	}
}

func TestExecuteConcurrent(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.exec.Execute(context.Background(), f.context(), Request{
				RuntimeName: "perl",
				Source:      script.StringSource{Command: "1"},
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Error(err)
		}
	}

	scripts := map[string]bool{}
	for _, spec := range f.launcher.launches {
		scripts[spec.Args[1]] = true
	}
	if len(scripts) != 8 {
		t.Errorf("got %d distinct temp scripts, want 8", len(scripts))
	}
}

func TestStateString(t *testing.T) {
	t.Parallel()

	if StatePreparingScript.String() != "PREPARING_SCRIPT" || StateDone.String() != "DONE" {
		t.Errorf("unexpected names: %s %s", StatePreparingScript, StateDone)
	}
	if got := State(42).String(); got != "State(42)" {
		t.Errorf("State(42).String() = %q", got)
	}
}

func TestExitCode(t *testing.T) {
	t.Parallel()

	if ok, errs := ExitCode(255).IsValid(); !ok || errs != nil {
		t.Error("255 should be valid")
	}
	ok, errs := ExitCode(-1).IsValid()
	if ok || len(errs) != 1 || !errors.Is(errs[0], ErrInvalidExitCode) {
		t.Errorf("IsValid(-1) = %v, %v", ok, errs)
	}
	if !ExitCode(0).IsSuccess() || ExitCode(1).IsSuccess() {
		t.Error("IsSuccess mismatch")
	}
	if ExitCode(7).String() != "7" {
		t.Error("String mismatch")
	}
}
