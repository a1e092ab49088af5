// Package model defines the core data structures shared by the analyzers,
// the audit pipeline and the report writers.
//
// This package contains the following main types:
//   - Severity: the urgency scale of a finding
//   - Finding: one detected issue with its entity references
//   - AnalysisResult: the output of a single analyzer invocation
//   - AuditReport: every analyzer's outcome for one account directory
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. The analyzer, pipeline and report packages all need these
// types, so centralizing them prevents import cycles.
//
// All models serialize to JSON; the analyzer invocation contract and the
// saved JSON reports are both built on these encodings.
package model
