// SPDX-License-Identifier: MPL-2.0

// Package platform provides cross-platform compatibility utilities, such as
// the OS family of the execution target.
package platform
