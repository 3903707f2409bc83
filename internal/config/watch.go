// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"

	"github.com/univscript/univscript/internal/installation"
	"github.com/univscript/univscript/internal/watch"
)

// Watch reloads the config file at path each time it changes and hands the
// new configuration to onChange. A file that fails to load or validate is
// logged and skipped, so the last good configuration stays in effect.
// Watch blocks until ctx is done.
func Watch(ctx context.Context, path string, logger *log.Logger, onChange func(context.Context, *Config) error) error {
	if logger == nil {
		logger = log.Default()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("watch config: resolve %q: %w", path, err)
	}
	if !fileExists(abs) {
		return fmt.Errorf("watch config: %s is not a file", abs)
	}

	w, err := watch.New(watch.Config{
		BaseDir:  filepath.Dir(abs),
		Patterns: []string{doublestar.EscapeMeta(filepath.Base(abs))},
		Logger:   logger,
		OnChange: func(ctx context.Context, _ []string) error {
			cfg, _, err := loadWithOptions(ctx, LoadOptions{ConfigFilePath: abs})
			if err != nil {
				logger.Warn("keeping previous configuration", "path", abs, "err", err)
				return nil
			}
			logger.Info("configuration reloaded", "path", abs, "runtimes", len(cfg.Runtimes))
			return onChange(ctx, cfg)
		},
	})
	if err != nil {
		return fmt.Errorf("watch config: %w", err)
	}
	return w.Run(ctx)
}

// WatchRegistry keeps registry in sync with the config file at path.
// Each reload replaces the whole installation list atomically.
func WatchRegistry(ctx context.Context, path string, registry *installation.Registry, logger *log.Logger) error {
	return Watch(ctx, path, logger, func(_ context.Context, cfg *Config) error {
		return registry.Replace(cfg.Installations())
	})
}
