package model

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// AuditReport is the result of running the analyzer battery over one
// account's export directory.
//
// Design decision: We keep every analysis entry, including skipped ones,
// rather than only successful results. A reader of the report needs to
// know which dimensions were not analyzed and why.
type AuditReport struct {
	// RunID uniquely identifies this audit run.
	RunID string `json:"run_id"`

	// DataDir is the directory the exports were read from.
	DataDir string `json:"data_dir"`

	// GeneratedAt is when the audit finished.
	GeneratedAt time.Time `json:"generated_at"`

	// ReportDays is the length of the export date range in days.
	ReportDays int `json:"report_days"`

	// Files lists every expected export and whether it was present.
	Files []FileStatus `json:"files"`

	// Analyses holds one entry per analyzer invoked, in invocation order.
	Analyses []AnalysisEntry `json:"analyses"`

	// Counts tallies findings across all successful analyses.
	Counts SeverityCounts `json:"counts"`

	// Error is set when the audit as a whole could not run.
	Error string `json:"error,omitempty"`
}

// FileStatus records whether an expected export was found.
type FileStatus struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	Found bool   `json:"found"`
}

// AnalysisEntry is one analyzer's outcome within an audit.
type AnalysisEntry struct {
	// Tool is the analyzer's tool name, e.g. "analyze_keywords".
	Tool string `json:"tool"`

	// Skipped is true when the analysis could not run.
	Skipped bool `json:"skipped"`

	// Error explains why the analysis was skipped or failed.
	Error string `json:"error,omitempty"`

	// Result is the analysis output when it succeeded.
	Result *AnalysisResult `json:"result,omitempty"`
}

// NewAuditReport creates an empty report for dataDir with a fresh run ID.
func NewAuditReport(dataDir string, reportDays int) *AuditReport {
	return &AuditReport{
		RunID:      uuid.NewString(),
		DataDir:    dataDir,
		ReportDays: reportDays,
		Files:      make([]FileStatus, 0),
		Analyses:   make([]AnalysisEntry, 0),
	}
}

// AddAnalysis appends an entry and updates the severity counters.
func (r *AuditReport) AddAnalysis(entry AnalysisEntry) {
	r.Analyses = append(r.Analyses, entry)
	if entry.Result != nil {
		for _, f := range entry.Result.Findings {
			r.Counts.Add(f.Severity)
		}
	}
}

// SkippedCount returns the number of analyses that did not produce a result.
func (r *AuditReport) SkippedCount() int {
	n := 0
	for _, a := range r.Analyses {
		if a.Result == nil {
			n++
		}
	}
	return n
}

// ToolFinding is a finding tagged with the analyzer that produced it.
type ToolFinding struct {
	Tool string `json:"tool"`
	Finding
}

// AllFindings returns every finding across analyses, ordered by severity
// (most severe first) and then by invocation order.
func (r *AuditReport) AllFindings() []ToolFinding {
	out := make([]ToolFinding, 0, r.Counts.Total())
	for _, a := range r.Analyses {
		if a.Result == nil {
			continue
		}
		for _, f := range a.Result.Findings {
			out = append(out, ToolFinding{Tool: a.Tool, Finding: f})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Severity > out[j].Severity
	})
	return out
}
