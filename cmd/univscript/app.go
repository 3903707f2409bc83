// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/univscript/univscript/internal/config"
	"github.com/univscript/univscript/internal/executor"
	"github.com/univscript/univscript/internal/installation"
	"github.com/univscript/univscript/internal/issue"
	"github.com/univscript/univscript/internal/metrics"
	"github.com/univscript/univscript/internal/mount"
	"github.com/univscript/univscript/internal/script"
	"github.com/univscript/univscript/pkg/platform"
)

type (
	// App wires CLI services and shared dependencies. All Cobra command
	// handlers receive an App reference.
	App struct {
		Config   ConfigProvider
		Launcher executor.Launcher
		// Mounts lists network mounts for share-path translation.
		Mounts mount.Lister
		stdin  io.Reader
		stdout io.Writer
		stderr io.Writer
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config   ConfigProvider
		Launcher executor.Launcher
		Mounts   mount.Lister
		Stdin    io.Reader
		Stdout   io.Writer
		Stderr   io.Writer
	}

	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, error)
	}

	// globalOptions holds the persistent flags of the root command.
	globalOptions struct {
		configPath  string
		verbose     bool
		node        string
		workspace   string
		defines     []string
		metricsFile string
	}

	// session is the state shared by one command invocation.
	session struct {
		cfg         *config.Config
		logger      *log.Logger
		registry    *installation.Registry
		resolver    *installation.Resolver
		metrics     *metrics.Recorder
		metricsFile string
		verbose     bool
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Stdin == nil {
		deps.Stdin = os.Stdin
	}
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.Launcher == nil {
		deps.Launcher = executor.ProcLauncher{}
	}
	if deps.Mounts == nil {
		deps.Mounts = &mount.CommandLister{}
	}

	return &App{
		Config:   deps.Config,
		Launcher: deps.Launcher,
		Mounts:   deps.Mounts,
		stdin:    deps.Stdin,
		stdout:   deps.Stdout,
		stderr:   deps.Stderr,
	}
}

func (o *globalOptions) loadOptions() config.LoadOptions {
	return config.LoadOptions{ConfigFilePath: o.configPath}
}

// newSession loads the configuration and builds the logger, registry and
// resolver for one command.
func (a *App) newSession(ctx context.Context, opts *globalOptions) (*session, error) {
	cfg, err := a.Config.Load(ctx, opts.loadOptions())
	if err != nil {
		return nil, err
	}

	verbose := opts.verbose || cfg.UI.Verbose
	logger := log.NewWithOptions(a.stderr, log.Options{
		Prefix: config.AppName,
		Level:  cfg.LogLevel.Level(),
	})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}

	registry, err := cfg.Registry()
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("load runtimes").
			WithIssue(issue.InvalidInstallationId).
			Wrap(err).
			BuildError()
	}

	metricsFile := opts.metricsFile
	if metricsFile == "" {
		metricsFile = cfg.MetricsFile
	}

	return &session{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		resolver: &installation.Resolver{
			Mounts:    mount.NewTranslator(a.Mounts, logger),
			Tokenizer: cfg.ParamTokenizer(),
		},
		metrics:     metrics.New(),
		metricsFile: metricsFile,
		verbose:     verbose,
	}, nil
}

func (s *session) executor(launcher executor.Launcher) *executor.Executor {
	return executor.New(s.registry,
		executor.WithLauncher(launcher),
		executor.WithResolver(s.resolver),
		executor.WithTokenizer(s.cfg.ParamTokenizer()),
		executor.WithMetrics(s.metrics),
	)
}

// stepContext describes the local build: workspace, node, -D parameters
// and the App's output streams.
func (s *session) stepContext(a *App, opts *globalOptions) (*executor.StepContext, error) {
	ws, err := script.NewOSWorkspace(opts.workspace)
	if err != nil {
		return nil, fmt.Errorf("open workspace: %w", err)
	}
	node, err := s.cfg.Node(opts.node)
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("select node").
			WithResource(opts.node).
			WithIssue(issue.NodeHomeUnknownId).
			Wrap(err).
			BuildError()
	}
	buildParams, err := parseDefines(opts.defines)
	if err != nil {
		return nil, err
	}

	sc := executor.NewStepContext(ws)
	sc.Node = node
	sc.BuildParameters = buildParams
	sc.IsUnix = platform.HostIsUnix()
	sc.Stdout = a.stdout
	sc.Stderr = a.stderr
	sc.Logger = s.logger
	return sc, nil
}

// flushMetrics writes the metrics file when one is configured.
func (s *session) flushMetrics() {
	if s.metricsFile == "" {
		return
	}
	if err := s.metrics.WriteTextfile(s.metricsFile); err != nil {
		s.logger.Warn("failed to write metrics", "path", s.metricsFile, "err", err)
	}
}

// parseDefines turns repeated -D KEY=VALUE flags into build parameters.
// Later definitions win.
func parseDefines(defines []string) (map[string]string, error) {
	params := make(map[string]string, len(defines))
	for _, d := range defines {
		key, value, ok := strings.Cut(d, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid build parameter %q: expected KEY=VALUE", d)
		}
		params[key] = value
	}
	return params, nil
}
