package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/nao1215/adsaudit/internal/model"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing with account owners.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// severitySections are the finding sections in display order.
var severitySections = []struct {
	level  model.Severity
	header string
}{
	{model.SeverityCritical, "🔴 Critical"},
	{model.SeverityHigh, "🟠 High"},
	{model.SeverityMedium, "🟡 Medium"},
	{model.SeverityLow, "🔵 Low"},
	{model.SeverityInfo, "⚪ Info"},
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *model.AuditReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeFiles(md, report)
	w.writeSummary(md, report)
	w.writeFindings(md, report)
	w.writeAnalyses(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with audit information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.AuditReport) {
	md.H1("Google Ads Audit Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Data Directory", "`" + report.DataDir + "`"},
			{"Run ID", "`" + report.RunID + "`"},
			{"Generated", report.GeneratedAt.Format("2006-01-02 15:04:05 MST")},
			{"Report Period", strconv.Itoa(report.ReportDays) + " days"},
			{"Status", w.getStatusText(report)},
		},
	})
	md.PlainText("")
}

// getStatusText returns the status text based on report state.
func (w *MarkdownWriter) getStatusText(report *model.AuditReport) string {
	switch {
	case report.Error != "":
		return "❌ " + statusText(report)
	case report.SkippedCount() > 0:
		return "⚠️ " + statusText(report)
	default:
		return "✅ " + statusText(report)
	}
}

// writeFiles writes the expected-files checklist.
func (w *MarkdownWriter) writeFiles(md *markdown.Markdown, report *model.AuditReport) {
	md.H2("Export Files")
	md.PlainText("")

	if len(report.Files) == 0 {
		md.PlainText("No export checklist recorded.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(report.Files))
	for i, f := range report.Files {
		status := "❌ Missing"
		if f.Found {
			status = "✅ Found"
		}
		rows[i] = []string{"`" + f.Name + "`", f.Label, status}
	}
	md.Table(markdown.TableSet{
		Header: []string{"File", "Report", "Status"},
		Rows:   rows,
	})
	md.PlainText("")
	md.PlainTextf("%d of %d exports found.", foundCount(report), len(report.Files))
	md.PlainText("")
}

// writeSummary writes the severity summary section.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.AuditReport) {
	md.H2("Severity Summary")
	md.PlainText("")

	c := report.Counts
	md.Table(markdown.TableSet{
		Header: []string{"Severity", "Count"},
		Rows: [][]string{
			{"🔴 Critical", strconv.Itoa(c.Critical)},
			{"🟠 High", strconv.Itoa(c.High)},
			{"🟡 Medium", strconv.Itoa(c.Medium)},
			{"🔵 Low", strconv.Itoa(c.Low)},
			{"⚪ Info", strconv.Itoa(c.Info)},
			{"**Total**", "**" + strconv.Itoa(c.Total()) + "**"},
		},
	})
	md.PlainText("")

	if c.Total() > 0 {
		w.writePieChart(md, c)
	}

	w.writeAlert(md, c)
}

// writePieChart writes a mermaid pie chart for severity distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, c model.SeverityCounts) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Finding Severity Distribution"),
		piechart.WithShowData(true),
	)

	for _, s := range severitySections {
		if n := c.Get(s.level); n > 0 {
			chart.LabelAndIntValue(s.level.String(), uint64(n))
		}
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an appropriate alert based on severity counts.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, c model.SeverityCounts) {
	switch {
	case c.Critical > 0:
		md.Cautionf("%d critical finding(s) require immediate attention.", c.Critical)
	case c.High > 0:
		md.Warningf("%d high severity finding(s) are wasting budget or capping growth right now.", c.High)
	case c.Medium > 0:
		md.Importantf("%d medium severity finding(s) erode efficiency over time.", c.Medium)
	case c.Total() > 0:
		md.Note("Only low severity and informational findings detected.")
	default:
		md.Tip("No significant issues detected in the analyzed exports.")
	}
	md.PlainText("")
}

// writeFindings writes all findings grouped by severity.
func (w *MarkdownWriter) writeFindings(md *markdown.Markdown, report *model.AuditReport) {
	md.H2("Findings")
	md.PlainText("")

	if report.Counts.Total() == 0 {
		md.PlainText("No findings.")
		md.PlainText("")
		return
	}

	for _, sev := range severitySections {
		findings := findingsBySeverity(report, sev.level)
		if len(findings) == 0 {
			continue
		}
		md.H3(sev.header)
		md.PlainText("")
		w.writeFindingsTable(md, findings)
	}
}

// writeFindingsTable writes a table of findings.
func (w *MarkdownWriter) writeFindingsTable(md *markdown.Markdown, findings []model.ToolFinding) {
	rows := make([][]string, len(findings))
	for i, f := range findings {
		rows[i] = []string{
			escapeCell(f.Area),
			escapeCell(truncateString(orDash(f.Entity()), 40)),
			escapeCell(f.Detail),
			escapeCell(orDash(f.Recommendation)),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Area", "Entity", "Detail", "Recommendation"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeAnalyses writes one section per analyzer with its summary and metrics.
func (w *MarkdownWriter) writeAnalyses(md *markdown.Markdown, report *model.AuditReport) {
	md.H2("Analyses")
	md.PlainText("")

	for _, a := range report.Analyses {
		md.H3("`" + a.Tool + "`")
		md.PlainText("")
		if a.Result == nil {
			md.Warningf("Skipped: %s", a.Error)
			md.PlainText("")
			continue
		}

		md.PlainText(a.Result.Summary)
		md.PlainText("")
		if len(a.Result.Metrics) > 0 {
			md.BulletList(metricLines(a.Result.Metrics)...)
			md.PlainText("")
		}
	}
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [adsaudit](https://github.com/nao1215/adsaudit)*")
}

// metricLines renders metrics as "key: value" lines sorted by key.
func metricLines(m model.Metrics) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, len(keys))
	for i, k := range keys {
		lines[i] = fmt.Sprintf("%s: %v", k, m[k])
	}
	return lines
}

// escapeCell keeps a value on one table row.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
