// SPDX-License-Identifier: MPL-2.0

// Package installation models configured runtime installations and resolves
// them for an execution context.
//
// An Installation is an administrator-defined record (home directory,
// per-OS executable paths, optional syntax-check command, environment
// blocks). Resolution is staged and never mutates the source record:
//
//  1. ForEnvironment expands macros in the home path.
//  2. ForNode translates the home path to the target node's view.
//  3. On Unix targets, network-share homes go through mount-point translation.
//
// The result is an immutable Resolved value that answers Executable,
// CheckCommandLine and EnvVarMap queries. The process-wide list of
// installations lives in a copy-on-write Registry.
package installation
