// SPDX-License-Identifier: MPL-2.0

// Package mount rewrites network-share paths into local mount points on
// Unix hosts.
//
// The translation is a best-effort heuristic over the free-form output of
// the mount(8) command: each line is split on the literal separators " on "
// and " type ", and the first entry whose network name prefixes the path
// wins. Listing failures and unmatched paths leave the input unchanged.
// The parse is known to be fragile for mount points containing those
// separators; it is kept for compatibility and deliberately not extended.
package mount

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"

	"github.com/charmbracelet/log"
)

// SharePrefix is the leading marker of a network-share (UNC/SMB) path.
const SharePrefix = "//"

var separator = regexp.MustCompile(`( on | type )`)

type (
	// Lister returns the lines of the host's mount table listing.
	Lister interface {
		List(ctx context.Context) ([]string, error)
	}

	// CommandLister lists mounts by running an external command.
	CommandLister struct {
		// Command is the listing command; defaults to "mount".
		Command string
		// Args are passed to Command.
		Args []string
	}

	// StaticLister returns a fixed listing. Useful when the mount table is
	// known in advance or captured elsewhere.
	StaticLister []string

	// Translator maps network-share home paths to local mount points.
	Translator struct {
		lister Lister
		logger *log.Logger
	}
)

// NewTranslator creates a Translator. A nil lister uses CommandLister and a
// nil logger uses the default charm logger.
func NewTranslator(lister Lister, logger *log.Logger) *Translator {
	if lister == nil {
		lister = &CommandLister{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Translator{lister: lister, logger: logger}
}

// List runs the listing command and returns its combined output split into lines.
func (l *CommandLister) List(ctx context.Context) ([]string, error) {
	name := l.Command
	if name == "" {
		name = "mount"
	}

	cmd := exec.CommandContext(ctx, name, l.Args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("failed to list mounts with %q: %w", name, err)
	}

	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read mount listing: %w", err)
	}
	return lines, nil
}

// List implements Lister.
func (s StaticLister) List(context.Context) ([]string, error) {
	return []string(s), nil
}

// Translate returns the local mount point path for home, or home unchanged
// when it is not a network share, the listing is unavailable, or no mount
// entry matches. It never fails.
func (t *Translator) Translate(ctx context.Context, home string) string {
	if !IsShare(home) {
		return home
	}

	lines, err := t.lister.List(ctx)
	if err != nil {
		t.logger.Debug("mount listing unavailable, keeping share path", "home", home, "err", err)
		return home
	}

	translated := TranslateWith(home, lines)
	if translated != home {
		t.logger.Debug("translated share path to mount point", "home", home, "local", translated)
	}
	return translated
}

// IsShare reports whether path is a network-share path.
func IsShare(path string) bool {
	return strings.HasPrefix(path, SharePrefix)
}

// TranslateWith applies the mount listing lines to home.
func TranslateWith(home string, lines []string) string {
	for _, line := range lines {
		network, local, ok := ParseLine(line)
		if !ok {
			continue
		}
		if strings.HasPrefix(home, network) {
			return local + home[len(network):]
		}
	}
	return home
}

// ParseLine splits one mount listing line into the network name and the
// local mount point. Lines without both parts, or with an empty network
// name, are rejected.
func ParseLine(line string) (network, local string, ok bool) {
	parts := separator.Split(line, -1)
	if len(parts) < 2 || parts[0] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
