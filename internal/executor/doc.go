// SPDX-License-Identifier: MPL-2.0

// Package executor runs scripts with a configured runtime installation.
//
// An execution materializes the script, resolves the runtime for the target
// node, builds the argument vector, launches the process and waits for it.
// Temporary scripts are always removed afterwards. Failures fall into three
// classes that callers can tell apart with errors.Is/As:
//
//   - configuration errors (ConfigurationError): nothing was launched
//   - I/O errors (ErrIO): materialization, launch or wait failed
//   - execution failures (ExecutionFailureError): the process exited non-zero
//
// Steps (ScriptStringStep, ScriptFileStep, RawCallStep) are small
// configuration values that turn into a Request for the Executor. The Checker
// runs a runtime's syntax-check command against a script body.
package executor
