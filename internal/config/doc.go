// SPDX-License-Identifier: MPL-2.0

// Package config loads the univscript configuration using Viper with CUE as
// the file format.
//
// The file lives at $XDG_CONFIG_HOME/univscript/config.cue on Linux,
// ~/Library/Application Support/univscript/config.cue on macOS and
// %APPDATA%\univscript\config.cue on Windows; ./config.cue is used when the
// directory holds none. It declares the runtime installations, per-node home
// overrides and a few process settings. Files are validated against the
// embedded schema (config_schema.cue) before they are decoded, and Watch keeps
// an installation registry in sync with the file while a command runs.
package config
