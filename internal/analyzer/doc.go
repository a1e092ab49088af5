// Package analyzer implements the twelve rule-based analyzers that turn
// cleaned advertising exports into severity-ranked findings.
//
// Every analyzer follows the same shape: resolve columns, clean numeric
// columns, compute account or group benchmarks, scan rows or groups with
// a fixed battery of threshold rules and assemble an AnalysisResult.
//
// The Registry exposes the analyzers under their tool names together
// with parameter schemas and defaults, and implements the invocation
// boundary: every failure becomes an error result, never a Go panic or
// a propagated error.
package analyzer
