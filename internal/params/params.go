// SPDX-License-Identifier: MPL-2.0

package params

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kballard/go-shellquote"
)

const (
	// ModeLiteral groups with quotes only. Backslashes are ordinary characters.
	ModeLiteral Mode = "literal"
	// ModePOSIX follows POSIX shell word splitting, including backslash escapes.
	ModePOSIX Mode = "posix"

	// placeholder is prepended to every parameter line so that the first real
	// token is treated as an argument and never as an executable.
	placeholder = "executable_placeholder"
)

// ErrInvalidMode is returned when a Mode value is not recognized.
var ErrInvalidMode = errors.New("invalid tokenizer mode")

type (
	// Mode selects the tokenization rules.
	Mode string

	// InvalidModeError is returned when a Mode value is not recognized.
	// It wraps ErrInvalidMode for errors.Is() compatibility.
	InvalidModeError struct {
		Value Mode
	}

	// Tokenizer splits parameter lines according to its Mode.
	// The zero value uses ModeLiteral.
	Tokenizer struct {
		Mode Mode
	}
)

// Error implements the error interface.
func (e *InvalidModeError) Error() string {
	return fmt.Sprintf("invalid tokenizer mode %q (valid: literal, posix)", e.Value)
}

// Unwrap returns ErrInvalidMode.
func (e *InvalidModeError) Unwrap() error { return ErrInvalidMode }

// Validate returns an error if the mode is not recognized. The empty mode is valid.
func (m Mode) Validate() error {
	switch m {
	case "", ModeLiteral, ModePOSIX:
		return nil
	default:
		return &InvalidModeError{Value: m}
	}
}

// String returns the string representation of the Mode.
func (m Mode) String() string { return string(m) }

// Parse splits a parameter line into tokens using literal mode.
// A blank line yields an empty slice.
func Parse(line string) []string {
	return Tokenizer{}.Parse(line)
}

// Parse splits a parameter line into tokens. A blank line yields an empty
// slice, never an error.
func (t Tokenizer) Parse(line string) []string {
	if strings.TrimSpace(line) == "" {
		return []string{}
	}

	tokens := t.split(placeholder + " " + line)
	if len(tokens) == 0 {
		return []string{}
	}
	return tokens[1:]
}

// ParseCommandLine splits a complete command line into its executable and
// arguments. ok is false when the line holds no tokens.
func (t Tokenizer) ParseCommandLine(line string) (exe string, args []string, ok bool) {
	tokens := t.split(line)
	if len(tokens) == 0 {
		return "", nil, false
	}
	return tokens[0], tokens[1:], true
}

func (t Tokenizer) split(line string) []string {
	if t.Mode == ModePOSIX {
		words, err := shellquote.Split(line)
		if err == nil {
			return words
		}
		// Unterminated quotes or a dangling escape: retry with literal rules.
	}
	return splitLiteral(line)
}

// splitLiteral tokenizes line the way a quote-aware command line parser
// does: runs of whitespace separate tokens, and a quoted section (single or
// double) is part of the current token with the quotes removed. An empty
// quoted section still produces a token. An unterminated quote extends to
// the end of the line.
func splitLiteral(line string) []string {
	var (
		tokens  []string
		current strings.Builder
		quote   rune
		inToken bool
	)

	for _, r := range line {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
				continue
			}
			current.WriteRune(r)
		case r == '"' || r == '\'':
			quote = r
			inToken = true
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			if inToken {
				tokens = append(tokens, current.String())
				current.Reset()
				inToken = false
			}
		default:
			current.WriteRune(r)
			inToken = true
		}
	}

	if inToken {
		tokens = append(tokens, current.String())
	}
	return tokens
}

// Join renders args as a single shell-quoted line, for log output.
func Join(args []string) string {
	return shellquote.Join(args...)
}
