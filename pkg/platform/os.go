// SPDX-License-Identifier: MPL-2.0

package platform

import "runtime"

// OS name constants for runtime.GOOS comparisons.
// Centralizes the string literals to avoid scattered magic strings.
const (
	Windows = "windows"
	Darwin  = "darwin"
	Linux   = "linux"
)

// IsUnix reports whether the given GOOS value belongs to the Unix family.
// Everything that is not Windows is treated as Unix, matching how executables
// and path separators are chosen for a runtime installation.
func IsUnix(goos string) bool {
	return goos != Windows
}

// HostIsUnix reports whether the current process runs on a Unix-family OS.
func HostIsUnix() bool {
	return IsUnix(runtime.GOOS)
}
