// SPDX-License-Identifier: MPL-2.0

// Package issue defines user-facing errors for univscript.
//
// ActionableError annotates a failure with the operation, the resource and
// remediation hints. Catalog entries (Issue) hold longer Markdown guidance
// that the CLI renders with glamour when an error links to one.
package issue
