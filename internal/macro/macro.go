// SPDX-License-Identifier: MPL-2.0

// Package macro substitutes $NAME and ${NAME} references in strings.
//
// Expansion is lenient and single-pass: unresolved references are kept
// verbatim and values inserted by a substitution are never expanded again.
// "$$" is an escaped dollar and becomes "$".
package macro

import (
	"maps"
	"regexp"
)

// reference matches $$, $NAME and ${NAME}. Braced names may contain dots.
var reference = regexp.MustCompile(`\$(\$|[A-Za-z0-9_]+|\{([A-Za-z0-9_.]+)\})`)

type (
	// Resolver looks up the value of a variable by name.
	Resolver interface {
		Lookup(name string) (string, bool)
	}

	// Map is a Resolver backed by a plain map.
	Map map[string]string

	// Layers is a Resolver that consults its members from last to first,
	// so later layers override earlier ones.
	Layers []Resolver

	// Func adapts a function to the Resolver interface.
	Func func(name string) (string, bool)
)

// Lookup implements Resolver.
func (m Map) Lookup(name string) (string, bool) {
	v, ok := m[name]
	return v, ok
}

// Lookup implements Resolver.
func (l Layers) Lookup(name string) (string, bool) {
	for i := len(l) - 1; i >= 0; i-- {
		if l[i] == nil {
			continue
		}
		if v, ok := l[i].Lookup(name); ok {
			return v, true
		}
	}
	return "", false
}

// Lookup implements Resolver.
func (f Func) Lookup(name string) (string, bool) { return f(name) }

// Expand replaces every resolvable variable reference in s.
func Expand(s string, vars Resolver) string {
	if vars == nil || len(s) < 2 {
		return s
	}

	return reference.ReplaceAllStringFunc(s, func(ref string) string {
		if ref == "$$" {
			return "$"
		}

		name := ref[1:]
		if name[0] == '{' {
			name = name[1 : len(name)-1]
		}
		if v, ok := vars.Lookup(name); ok {
			return v
		}
		return ref
	})
}

// ExpandAll expands each element of in and returns a new slice.
func ExpandAll(in []string, vars Resolver) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = Expand(s, vars)
	}
	return out
}

// Merge flattens the given maps into a new map. Later maps win on conflicts.
func Merge(layers ...map[string]string) map[string]string {
	size := 0
	for _, l := range layers {
		size += len(l)
	}
	merged := make(map[string]string, size)
	for _, l := range layers {
		maps.Copy(merged, l)
	}
	return merged
}
