// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for univscript.
//
// The root command wires configuration, logging, metrics and the script
// executor into the exec, call and check commands, and exposes the runtime
// registry and config file through the runtimes and config command trees.
package cmd
