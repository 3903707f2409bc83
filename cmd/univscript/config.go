// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/univscript/univscript/internal/config"
)

// newConfigCommand creates the `univscript config` command tree.
// Subcommands that read configuration use the App's ConfigProvider.
func newConfigCommand(app *App, global *globalOptions) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage univscript configuration",
		Long: `Manage univscript configuration.

Configuration is stored in:
  - Linux: ~/.config/univscript/config.cue
  - macOS: ~/Library/Application Support/univscript/config.cue
  - Windows: %APPDATA%\univscript\config.cue

A config.cue in the current directory is used when none exists there.
Scalar settings can be overridden with UNIVSCRIPT_* environment variables,
for example UNIVSCRIPT_LOG_LEVEL=debug.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return showConfig(cmd.Context(), app, global)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create a default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			path, err := config.CreateDefaultConfig("")
			if err != nil {
				return app.fail(fmt.Errorf("failed to create config: %w", err), global)
			}
			fmt.Fprintf(app.stdout, "%s Configuration at %s\n", SuccessStyle.Render("✓"), path)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return showConfigPath(app.stdout, global)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output the effective configuration as CUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.Config.Load(cmd.Context(), global.loadOptions())
			if err != nil {
				return app.fail(err, global)
			}
			fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
			return nil
		},
	})

	return cfgCmd
}

func showConfig(ctx context.Context, app *App, global *globalOptions) error {
	cfg, err := app.Config.Load(ctx, global.loadOptions())
	if err != nil {
		return app.fail(err, global)
	}
	path, err := config.Path(global.loadOptions())
	if err != nil {
		return app.fail(err, global)
	}

	w := app.stdout
	keyStyle := CmdStyle
	valueStyle := SuccessStyle

	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)
	if path != "" {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), path)
	} else {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("tokenizer"), valueStyle.Render(cfg.Tokenizer.String()))
	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("log_level"), valueStyle.Render(cfg.LogLevel.String()))
	if cfg.MetricsFile != "" {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("metrics_file"), valueStyle.Render(cfg.MetricsFile))
	}
	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("ui.verbose"), valueStyle.Render(fmt.Sprintf("%v", cfg.UI.Verbose)))

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", keyStyle.Render("runtimes"))
	if len(cfg.Runtimes) == 0 {
		fmt.Fprintf(w, "  %s\n", SubtitleStyle.Render("(none configured)"))
	}
	for _, r := range cfg.Runtimes {
		fmt.Fprintf(w, "  - %s (%s)\n", valueStyle.Render(r.Name), r.Home)
	}

	if len(cfg.Nodes) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "%s:\n", keyStyle.Render("nodes"))
		for _, n := range cfg.Nodes {
			overrides := make([]string, 0, len(n.Homes))
			for _, h := range n.Homes {
				overrides = append(overrides, h.Runtime+"="+h.Home)
			}
			fmt.Fprintf(w, "  - %s %s\n", valueStyle.Render(n.Name), strings.Join(overrides, " "))
		}
	}
	return nil
}

func showConfigPath(w io.Writer, global *globalOptions) error {
	cfgDir, err := config.ConfigDir()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Config directory: %s\n", cfgDir)

	path, err := config.Path(global.loadOptions())
	if err != nil {
		return err
	}
	if path == "" {
		fmt.Fprintf(w, "Config file: %s\n", SubtitleStyle.Render("(none, using defaults)"))
	} else {
		fmt.Fprintf(w, "Config file: %s\n", path)
	}
	return nil
}
