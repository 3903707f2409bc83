// SPDX-License-Identifier: MPL-2.0

// Package command assembles the argument vector for a runtime invocation:
//
//	[executable, runtime parameters..., script path, script parameters...]
//
// Parameter strings are tokenized first and each token is expanded on its
// own, so a variable value containing spaces stays a single argument. The
// script path is passed through verbatim.
package command

import (
	"github.com/univscript/univscript/internal/macro"
	"github.com/univscript/univscript/internal/params"
)

type (
	// Input holds everything needed to build one argument vector.
	Input struct {
		// Executable is the resolved runtime executable. Empty means the
		// runtime could not be resolved.
		Executable string
		// RuntimeParameters is the raw parameter string placed before the script.
		RuntimeParameters string
		// ScriptPath is the materialized script. Empty for raw runtime calls.
		ScriptPath string
		// ScriptParameters is the raw parameter string placed after the script.
		ScriptParameters string
		// Variables resolves macros in both parameter strings.
		Variables macro.Resolver
		// BuildParameters are substituted into script parameters before Variables.
		BuildParameters macro.Resolver
	}

	// Builder turns an Input into an argument vector.
	Builder struct {
		Tokenizer params.Tokenizer
	}
)

// Build returns the argument vector. ok is false when the executable is
// missing; callers must abort without launching a process.
func (b Builder) Build(in Input) (args []string, ok bool) {
	if in.Executable == "" {
		return nil, false
	}

	runtimeTokens := b.Tokenizer.Parse(in.RuntimeParameters)
	scriptTokens := b.Tokenizer.Parse(in.ScriptParameters)

	args = make([]string, 0, 2+len(runtimeTokens)+len(scriptTokens))
	args = append(args, in.Executable)

	for _, tok := range runtimeTokens {
		args = append(args, macro.Expand(tok, in.Variables))
	}

	if in.ScriptPath != "" {
		args = append(args, in.ScriptPath)
	}

	for _, tok := range scriptTokens {
		tok = macro.Expand(tok, in.BuildParameters)
		args = append(args, macro.Expand(tok, in.Variables))
	}

	return args, true
}
