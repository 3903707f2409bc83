// SPDX-License-Identifier: MPL-2.0

package config

import "context"

type (
	// LoadOptions selects the configuration file for one invocation.
	//
	// The first existing file wins:
	//
	//  1. ConfigFilePath, set from --config. It must exist.
	//  2. config.cue under ConfigDirPath, or under ConfigDir() when empty
	//     ($XDG_CONFIG_HOME/univscript, %APPDATA%\univscript, or
	//     ~/Library/Application Support/univscript).
	//  3. config.cue in the working directory.
	//
	// With no file the built-in runtimes apply. UNIVSCRIPT_* environment
	// variables override scalar settings in every case.
	LoadOptions struct {
		ConfigFilePath string
		ConfigDirPath  string
	}

	// Provider returns the effective configuration for a set of LoadOptions.
	Provider interface {
		Load(ctx context.Context, opts LoadOptions) (*Config, error)
	}

	// CUEProvider reads config.cue files and validates them against the
	// embedded #Config schema.
	CUEProvider struct{}
)

// NewProvider returns the CUE-backed Provider used by the CLI.
func NewProvider() Provider {
	return CUEProvider{}
}

// Load returns the validated configuration selected by opts.
func (p CUEProvider) Load(ctx context.Context, opts LoadOptions) (*Config, error) {
	cfg, _, err := p.LoadSource(ctx, opts)
	return cfg, err
}

// LoadSource is Load that also reports which file was read, or "" when the
// defaults were used.
func (CUEProvider) LoadSource(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	cfg, source, err := loadWithOptions(ctx, opts)
	if err != nil {
		return nil, "", err
	}
	return cfg, source, nil
}
