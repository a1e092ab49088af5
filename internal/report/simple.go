package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/adsaudit/internal/model"
)

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display with clear section formatting.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors because the same text is also saved as the report file.
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether severity levels with no findings are shown.
	showEmpty bool

	// verbose adds the recommendation and per-analyzer summaries.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the report in human-readable format.
func (w *SimpleWriter) Write(report *model.AuditReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	w.writeFiles(&sb, report)
	w.writeSummary(&sb, report)
	w.writeFindings(&sb, report)
	w.writeAnalyses(&sb, report)
	w.writeFooter(&sb)

	return io.WriteString(w.output, sb.String())
}

func section(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}

// writeHeader writes the report header with audit information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.AuditReport) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                      GOOGLE ADS AUDIT REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Data Directory: %s\n", report.DataDir)
	fmt.Fprintf(sb, "Run ID:         %s\n", report.RunID)
	fmt.Fprintf(sb, "Generated:      %s\n", report.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(sb, "Report Period:  %d days\n", report.ReportDays)
	fmt.Fprintf(sb, "Status:         %s\n", statusText(report))
	sb.WriteString("\n")
}

// writeFiles writes the expected-files checklist.
func (w *SimpleWriter) writeFiles(sb *strings.Builder, report *model.AuditReport) {
	if len(report.Files) == 0 && !w.showEmpty {
		return
	}

	section(sb, "EXPORT FILES")
	for _, f := range report.Files {
		mark := "[ ]"
		if f.Found {
			mark = "[x]"
		}
		fmt.Fprintf(sb, "  %s %-18s %s\n", mark, f.Name, f.Label)
	}
	fmt.Fprintf(sb, "\n  %d of %d exports found\n\n", foundCount(report), len(report.Files))
}

// writeSummary writes the severity summary section.
func (w *SimpleWriter) writeSummary(sb *strings.Builder, report *model.AuditReport) {
	section(sb, "SEVERITY SUMMARY")

	c := report.Counts
	fmt.Fprintf(sb, "  CRITICAL: %d\n", c.Critical)
	fmt.Fprintf(sb, "  HIGH:     %d\n", c.High)
	fmt.Fprintf(sb, "  MEDIUM:   %d\n", c.Medium)
	fmt.Fprintf(sb, "  LOW:      %d\n", c.Low)
	fmt.Fprintf(sb, "  INFO:     %d\n", c.Info)
	sb.WriteString("\n")
	fmt.Fprintf(sb, "  TOTAL:    %d findings\n", c.Total())
	sb.WriteString("\n")
}

// writeFindings writes all findings grouped by severity.
func (w *SimpleWriter) writeFindings(sb *strings.Builder, report *model.AuditReport) {
	if report.Counts.Total() == 0 && !w.showEmpty {
		return
	}

	section(sb, "FINDINGS")
	for _, severity := range model.AllSeverities() {
		findings := findingsBySeverity(report, severity)
		if len(findings) == 0 && !w.showEmpty {
			continue
		}
		w.writeFindingsForSeverity(sb, severity, findings)
	}
}

// writeFindingsForSeverity writes findings of a specific severity level.
func (w *SimpleWriter) writeFindingsForSeverity(sb *strings.Builder, severity model.Severity, findings []model.ToolFinding) {
	fmt.Fprintf(sb, "[%s] %s\n", w.getSeverityIndicator(severity), severity.String())

	if len(findings) == 0 {
		sb.WriteString("  No findings\n\n")
		return
	}

	for _, f := range findings {
		if entity := f.Entity(); entity != "" {
			fmt.Fprintf(sb, "  * %s: %s\n", f.Area, entity)
		} else {
			fmt.Fprintf(sb, "  * %s\n", f.Area)
		}
		fmt.Fprintf(sb, "    %s\n", f.Detail)
		if w.verbose && f.Recommendation != "" {
			fmt.Fprintf(sb, "    Recommendation: %s\n", f.Recommendation)
		}
	}
	sb.WriteString("\n")
}

// getSeverityIndicator returns a visual indicator for the severity level.
func (w *SimpleWriter) getSeverityIndicator(severity model.Severity) string {
	switch severity {
	case model.SeverityCritical:
		return "!!!"
	case model.SeverityHigh:
		return "!!"
	case model.SeverityMedium:
		return "!"
	case model.SeverityLow:
		return "-"
	case model.SeverityInfo:
		return "i"
	default:
		return "?"
	}
}

// writeAnalyses lists every analyzer outcome. Summaries are verbose only.
func (w *SimpleWriter) writeAnalyses(sb *strings.Builder, report *model.AuditReport) {
	if len(report.Analyses) == 0 {
		return
	}

	section(sb, "ANALYSES")
	for _, a := range report.Analyses {
		if a.Result == nil {
			fmt.Fprintf(sb, "  [skipped] %s: %s\n", a.Tool, a.Error)
			continue
		}
		fmt.Fprintf(sb, "  [ok]      %s (%d findings)\n", a.Tool, len(a.Result.Findings))
		if w.verbose {
			fmt.Fprintf(sb, "            %s\n", a.Result.Summary)
		}
	}
	sb.WriteString("\n")
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by adsaudit\n")
	sb.WriteString("https://github.com/nao1215/adsaudit\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
