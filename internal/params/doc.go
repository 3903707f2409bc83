// SPDX-License-Identifier: MPL-2.0

// Package params splits raw parameter strings into argument tokens.
//
// The default (literal) mode groups characters with single or double quotes
// and splits on whitespace without any escape processing, so Windows paths
// such as C:\tools\perl.exe survive unchanged. The posix mode honors
// backslash escapes through go-shellquote and is opt-in.
package params
