// Package pipeline runs the analyzer battery over export directories.
//
// An audit of one directory is a sequence of steps: checking which
// exports are present, running every registered analyzer, and stamping
// the finished report. Each stage is a Step that receives the current
// AuditReport and adds to it.
//
// Design decision: We keep the step pipeline even though an audit has few
// stages because:
// 1. It gives every stage the same logging and cancellation handling
// 2. Callers can insert their own steps (e.g., writing reports) without
// touching the core audit
//
// BatchProcessor audits several directories concurrently using errgroup.
// Each single audit stays sequential.
package pipeline
