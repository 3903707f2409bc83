// SPDX-License-Identifier: MPL-2.0

package benchmark

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"

	"github.com/univscript/univscript/internal/command"
	"github.com/univscript/univscript/internal/config"
	"github.com/univscript/univscript/internal/executor"
	"github.com/univscript/univscript/internal/installation"
	"github.com/univscript/univscript/internal/macro"
	"github.com/univscript/univscript/internal/params"
	"github.com/univscript/univscript/internal/script"
)

// sampleConfig is a representative config.cue with several runtimes and nodes.
const sampleConfig = `
tokenizer: "posix"
log_level: "warn"

runtimes: [
	{
		name: "perl"
		home: "/opt/perl"
		unix_executable: "bin/perl"
		windows_executable: "bin\\perl.exe"
		check_command: "bin/perl -c"
		env: "PERL5LIB=${RUNTIME_HOME}/lib"
	},
	{
		name: "python"
		home: "${TOOLS}/python3"
		unix_executable: "bin/python3"
		env_unix: "PYTHONPATH=${RUNTIME_HOME}/lib:${PYTHONPATH}"
	},
	{
		name: "groovy"
		home: "/opt/groovy"
		unix_executable: "bin/groovy"
		windows_executable: "bin\\groovy.bat"
		check_command: "python"
	},
]

nodes: [
	{name: "agent-1", homes: [{runtime: "perl", home: "/srv/perl"}]},
	{name: "agent-2", homes: [{runtime: "python", home: "/srv/python"}, {runtime: "groovy", home: "/srv/groovy"}]},
]
`

type discardLauncher struct{}

func (discardLauncher) Launch(context.Context, executor.LaunchSpec) (executor.ExitCode, error) {
	return 0, nil
}

func BenchmarkConfigLoad(b *testing.B) {
	path := filepath.Join(b.TempDir(), "config.cue")
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		b.Fatal(err)
	}
	provider := config.NewProvider()
	opts := config.LoadOptions{ConfigFilePath: path}

	b.ReportAllocs()
	for b.Loop() {
		if _, err := provider.Load(b.Context(), opts); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkMacroExpand(b *testing.B) {
	vars := macro.Layers{
		macro.Map{"VERSION": "1.2.3", "JOB": "nightly"},
		macro.Map{"HOME": "/home/ci", "PATH": "/usr/bin:/bin", "WORKSPACE": "/ws"},
	}
	line := "--version=${VERSION} --job=${JOB} --out=${WORKSPACE}/dist ${UNDEFINED} ${HOME}"

	b.ReportAllocs()
	for b.Loop() {
		_ = macro.Expand(line, vars)
	}
}

func BenchmarkTokenize(b *testing.B) {
	line := `-w -I lib --name="nightly build" 'single quoted' plain\ escaped --flag`

	for _, mode := range []params.Mode{params.ModeLiteral, params.ModePOSIX} {
		tok := params.Tokenizer{Mode: mode}
		b.Run(string(mode), func(b *testing.B) {
			b.ReportAllocs()
			for b.Loop() {
				_ = tok.Parse(line)
			}
		})
	}
}

func BenchmarkCommandBuild(b *testing.B) {
	builder := command.Builder{}
	in := command.Input{
		Executable:        "/opt/perl/bin/perl",
		RuntimeParameters: "-w -I ${WORKSPACE}/lib",
		ScriptPath:        "/ws/script123.use",
		ScriptParameters:  "${VERSION} --job=${JOB}",
		Variables:         macro.Map{"WORKSPACE": "/ws", "JOB": "env-job"},
		BuildParameters:   macro.Map{"VERSION": "1.2.3", "JOB": "nightly"},
	}

	b.ReportAllocs()
	for b.Loop() {
		if _, ok := builder.Build(in); !ok {
			b.Fatal("Build() returned !ok")
		}
	}
}

func BenchmarkExecuteInline(b *testing.B) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/opt/perl/bin/perl", []byte("#!"), 0o755); err != nil {
		b.Fatal(err)
	}
	reg, err := installation.NewRegistry(installation.Installation{
		Name:           "perl",
		Home:           "/opt/perl",
		UnixExecutable: "bin/perl",
		Env:            "PERL5LIB=${RUNTIME_HOME}/lib",
	})
	if err != nil {
		b.Fatal(err)
	}
	exec := executor.New(reg,
		executor.WithLauncher(discardLauncher{}),
		executor.WithResolver(&installation.Resolver{Fs: fs}),
	)
	sc := executor.StepContext{
		Workspace:       &script.Workspace{Fs: fs, Dir: "/ws"},
		Env:             map[string]string{"PATH": "/usr/bin"},
		BuildParameters: map[string]string{"VERSION": "1.2.3"},
		Node:            installation.LocalNode{},
		IsUnix:          true,
		Stdout:          io.Discard,
		Stderr:          io.Discard,
		Logger:          log.New(io.Discard),
	}
	req := executor.Request{
		RuntimeName:      "perl",
		Source:           script.StringSource{Command: `print "hello\n";`},
		ScriptParameters: "${VERSION}",
	}

	b.ReportAllocs()
	for b.Loop() {
		if _, err := exec.Execute(b.Context(), sc, req); err != nil {
			b.Fatal(err)
		}
	}
}
