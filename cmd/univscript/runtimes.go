// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/univscript/univscript/internal/config"
	"github.com/univscript/univscript/internal/executor"
	"github.com/univscript/univscript/internal/installation"
	"github.com/univscript/univscript/internal/issue"
	"github.com/univscript/univscript/internal/macro"
	"github.com/univscript/univscript/pkg/platform"
)

// errNoConfigFile is returned by commands that need a config file on disk.
var errNoConfigFile = errors.New("no config file found")

// newRuntimesCommand creates the `univscript runtimes` command tree.
func newRuntimesCommand(app *App, global *globalOptions) *cobra.Command {
	runtimesCmd := &cobra.Command{
		Use:   "runtimes",
		Short: "Inspect configured runtime installations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	runtimesCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List configured runtimes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := app.newSession(cmd.Context(), global)
			if err != nil {
				return app.fail(err, global)
			}
			listRuntimes(app.stdout, sess.registry.All())
			return nil
		},
	})

	runtimesCmd.AddCommand(&cobra.Command{
		Use:   "show NAME",
		Short: "Show a runtime and how it resolves on the selected node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return showRuntime(cmd.Context(), app, global, args[0])
		},
	})

	runtimesCmd.AddCommand(&cobra.Command{
		Use:   "watch",
		Short: "Reload runtimes whenever the config file changes",
		Long: `Watch the config file and print the runtime list after every change.

Invalid edits are reported and the previous runtimes stay in effect.
Stop with Ctrl+C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return watchRuntimes(cmd.Context(), app, global)
		},
	})

	return runtimesCmd
}

func listRuntimes(w io.Writer, list []installation.Installation) {
	if len(list) == 0 {
		fmt.Fprintln(w, SubtitleStyle.Render("(no runtimes configured)"))
		return
	}

	width := 0
	for _, inst := range list {
		width = max(width, len(inst.Name))
	}
	for _, inst := range list {
		pad := strings.Repeat(" ", width-len(inst.Name))
		fmt.Fprintf(w, "%s%s  %s\n", CmdStyle.Render(inst.Name), pad, inst.Home)
	}
}

func showRuntime(ctx context.Context, app *App, global *globalOptions, name string) error {
	sess, err := app.newSession(ctx, global)
	if err != nil {
		return app.fail(err, global)
	}
	inst, ok := sess.registry.Get(name)
	if !ok {
		return app.fail(&executor.ConfigurationError{Runtime: name, Err: executor.ErrRuntimeNotFound}, global)
	}
	node, err := sess.cfg.Node(global.node)
	if err != nil {
		return app.fail(err, global)
	}

	w := app.stdout
	field := func(key, value string) {
		if value == "" {
			value = SubtitleStyle.Render("(none)")
		}
		fmt.Fprintf(w, "  %s: %s\n", CmdStyle.Render(key), value)
	}

	fmt.Fprintln(w, TitleStyle.Render(inst.Name))
	field("home", inst.Home)
	field("unix_executable", inst.UnixExecutable)
	field("windows_executable", inst.WindowsExecutable)
	field("check_command", inst.CheckCommand)
	field("env", inst.Env)
	field("env_unix", inst.EnvUnix)
	field("env_windows", inst.EnvWindows)

	isUnix := platform.HostIsUnix()
	resolved, err := sess.resolver.Resolve(ctx, inst, node, macro.Map(executor.HostEnv()), isUnix)
	if err != nil {
		return app.fail(issue.NewErrorContext().
			WithOperation("resolve runtime").
			WithResource(name).
			WithIssue(issue.NodeHomeUnknownId).
			Wrap(err).
			BuildError(), global)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, TitleStyle.Render("Resolved on node "+node.Name()))
	field("home", resolved.LocalHome)
	if exe, ok := resolved.Executable(); ok {
		field("executable", exe+" "+SuccessStyle.Render("✓"))
	} else {
		field("executable", resolved.ExecutablePath()+" "+ErrorStyle.Render("✗ not found"))
	}
	if inst.HasCheckCommand() {
		if cmdLine, ok := resolved.CheckCommandLine(); ok {
			field("check", strings.Join(cmdLine, " ")+" "+SuccessStyle.Render("✓"))
		} else {
			field("check", inst.CheckCommand+" "+WarningStyle.Render("(not resolvable here)"))
		}
	}
	return nil
}

func watchRuntimes(ctx context.Context, app *App, global *globalOptions) error {
	sess, err := app.newSession(ctx, global)
	if err != nil {
		return app.fail(err, global)
	}
	path, err := config.Path(global.loadOptions())
	if err != nil {
		return app.fail(err, global)
	}
	if path == "" {
		return app.fail(fmt.Errorf("%w: run 'univscript config init' first", errNoConfigFile), global)
	}

	fmt.Fprintf(app.stdout, "%s %s\n", SubtitleStyle.Render("watching"), path)
	listRuntimes(app.stdout, sess.registry.All())

	return config.Watch(ctx, path, sess.logger, func(_ context.Context, cfg *config.Config) error {
		if err := sess.registry.Replace(cfg.Installations()); err != nil {
			return err
		}
		fmt.Fprintf(app.stdout, "%s %s\n", SuccessStyle.Render("reloaded"), strings.Join(sess.registry.Names(), ", "))
		return nil
	})
}
