// SPDX-License-Identifier: MPL-2.0

// Package benchmark provides benchmarks for the univscript hot paths:
//   - CUE config loading and schema validation
//   - macro expansion and parameter tokenization
//   - argument vector building
//   - end-to-end execution with an in-memory workspace
//
// Run them with:
//
//	go test -bench=. -benchmem ./internal/benchmark/
package benchmark
