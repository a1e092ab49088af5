package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/adsaudit/internal/model"
	"github.com/nao1215/adsaudit/internal/report"
	"github.com/nao1215/markdown"
	"github.com/spf13/cobra"
)

// Constants for risk direction and summary messages.
const (
	riskDirectionWorsened  = "worsened"
	riskDirectionImproved  = "improved"
	riskDirectionUnchanged = "unchanged"
)

// NewCompareCmd creates the compare command.
// This command compares two audit reports saved in JSON format.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare <previous.json> <current.json>",
		Short: "Compare two saved JSON audit reports",
		Long: `Compare displays differences between two audits of the same account.

It reads two reports written with 'adsaudit audit --json' and shows:
- New findings that appeared since the previous audit
- Resolved findings that are no longer present
- Changes in the number of findings per severity

Findings are matched by analyzer, area, entity and detail. A finding
whose numbers changed therefore shows up as resolved and new.

Examples:
  # Compare last month's audit with this month's
  adsaudit compare output/report_20250101_090000.json output/report_20250201_090000.json

  # Output the comparison as Markdown
  adsaudit compare --markdown old.json new.json`,
		Args: cobra.ExactArgs(2),
		RunE: runCompareCmd,
	}

	cmd.Flags().BoolP("json", "j", false, "Output comparison in JSON format")
	cmd.Flags().BoolP("markdown", "m", false, "Output comparison in Markdown format")
	cmd.MarkFlagsMutuallyExclusive("json", "markdown")

	return cmd
}

// runCompareCmd executes the compare command.
func runCompareCmd(cmd *cobra.Command, args []string) error {
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}

	previous, err := readReport(args[0])
	if err != nil {
		return err
	}
	current, err := readReport(args[1])
	if err != nil {
		return err
	}

	result := compareReports(previous, current)
	out := cmd.OutOrStdout()

	switch {
	case jsonOutput:
		return outputComparisonJSON(out, result)
	case markdownOutput:
		return outputComparisonMarkdown(out, result)
	default:
		return outputComparisonText(out, result)
	}
}

// readReport loads a JSON audit report from path.
func readReport(path string) (*model.AuditReport, error) {
	f, err := os.Open(path) //nolint:gosec // path is chosen by the operator
	if err != nil {
		return nil, fmt.Errorf("failed to open report: %w", err)
	}
	defer f.Close()

	r, err := report.ReadJSON(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// ComparisonResult holds the result of comparing two audits.
type ComparisonResult struct {
	// DataDir is the data directory of the current audit.
	DataDir string `json:"data_dir"`

	// PreviousAudit contains metadata about the previous audit.
	PreviousAudit AuditMetadata `json:"previous_audit"`

	// CurrentAudit contains metadata about the current audit.
	CurrentAudit AuditMetadata `json:"current_audit"`

	// NewFindings contains findings that are new in the current audit.
	NewFindings []model.ToolFinding `json:"new_findings"`

	// ResolvedFindings contains findings of the previous audit that are
	// no longer present.
	ResolvedFindings []model.ToolFinding `json:"resolved_findings"`

	// UnchangedCount is the number of findings present in both audits.
	UnchangedCount int `json:"unchanged_count"`

	// RiskChange describes the overall change in risk level.
	RiskChange RiskChange `json:"risk_change"`
}

// AuditMetadata contains metadata about an audit for comparison display.
type AuditMetadata struct {
	RunID       string               `json:"run_id"`
	GeneratedAt time.Time            `json:"generated_at"`
	Counts      model.SeverityCounts `json:"counts"`
}

// RiskChange describes the change in risk level between audits.
type RiskChange struct {
	// Direction is "improved", "worsened", or "unchanged".
	Direction string `json:"direction"`

	// Delta is the change in findings count per severity.
	Delta model.SeverityCounts `json:"delta"`
}

// compareReports compares two audit reports. New and resolved findings
// keep the severity order of their report.
func compareReports(previous, current *model.AuditReport) *ComparisonResult {
	result := &ComparisonResult{
		DataDir:          current.DataDir,
		PreviousAudit:    auditMetadata(previous),
		CurrentAudit:     auditMetadata(current),
		NewFindings:      make([]model.ToolFinding, 0),
		ResolvedFindings: make([]model.ToolFinding, 0),
	}

	prevFindings := previous.AllFindings()
	currFindings := current.AllFindings()

	// Findings are counted per key so repeated identical findings match
	// one to one.
	remaining := make(map[string]int, len(prevFindings))
	for _, f := range prevFindings {
		remaining[findingKey(f)]++
	}
	for _, f := range currFindings {
		key := findingKey(f)
		if remaining[key] > 0 {
			remaining[key]--
			result.UnchangedCount++
			continue
		}
		result.NewFindings = append(result.NewFindings, f)
	}
	for _, f := range prevFindings {
		key := findingKey(f)
		if remaining[key] > 0 {
			remaining[key]--
			result.ResolvedFindings = append(result.ResolvedFindings, f)
		}
	}

	result.RiskChange = calculateRiskChange(previous.Counts, current.Counts)
	return result
}

func auditMetadata(r *model.AuditReport) AuditMetadata {
	return AuditMetadata{
		RunID:       r.RunID,
		GeneratedAt: r.GeneratedAt,
		Counts:      r.Counts,
	}
}

// findingKey generates a key for a finding for comparison purposes.
func findingKey(f model.ToolFinding) string {
	return f.Tool + "|" + f.Area + "|" + f.Entity() + "|" + f.Detail
}

// severityWeights weigh severity changes when deciding the risk direction.
var severityWeights = map[model.Severity]int{
	model.SeverityCritical: 100,
	model.SeverityHigh:     50,
	model.SeverityMedium:   10,
	model.SeverityLow:      5,
	model.SeverityInfo:     1,
}

// calculateRiskChange calculates the change in risk between two audits.
func calculateRiskChange(previous, current model.SeverityCounts) RiskChange {
	var change RiskChange
	previousScore, currentScore := 0, 0
	for _, s := range model.AllSeverities() {
		previousScore += previous.Get(s) * severityWeights[s]
		currentScore += current.Get(s) * severityWeights[s]
	}
	change.Delta = countsDelta(previous, current)

	switch {
	case currentScore < previousScore:
		change.Direction = riskDirectionImproved
	case currentScore > previousScore:
		change.Direction = riskDirectionWorsened
	default:
		change.Direction = riskDirectionUnchanged
	}
	return change
}

// countsDelta returns current minus previous per severity.
func countsDelta(previous, current model.SeverityCounts) model.SeverityCounts {
	return model.SeverityCounts{
		Critical: current.Critical - previous.Critical,
		High:     current.High - previous.High,
		Medium:   current.Medium - previous.Medium,
		Low:      current.Low - previous.Low,
		Info:     current.Info - previous.Info,
	}
}

// outputComparisonJSON outputs the comparison result in JSON format.
func outputComparisonJSON(w io.Writer, result *ComparisonResult) error {
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// outputComparisonMarkdown outputs the comparison result in Markdown format.
func outputComparisonMarkdown(w io.Writer, result *ComparisonResult) error {
	md := markdown.NewMarkdown(w)

	md.H1("Audit Comparison: " + result.DataDir)
	md.PlainText("")
	md.H2("Summary")
	md.PlainText("")
	md.PlainTextf("**Risk Status:** %s", formatRiskDirection(result.RiskChange.Direction))
	md.PlainText("")

	prev, curr := result.PreviousAudit, result.CurrentAudit
	rows := [][]string{
		{"Date", prev.GeneratedAt.Format("2006-01-02 15:04"), curr.GeneratedAt.Format("2006-01-02 15:04"), "-"},
	}
	for _, s := range model.AllSeverities() {
		rows = append(rows, []string{
			severityTitle(s),
			strconv.Itoa(prev.Counts.Get(s)),
			strconv.Itoa(curr.Counts.Get(s)),
			formatDelta(result.RiskChange.Delta.Get(s)),
		})
	}
	rows = append(rows, []string{
		"**Total**",
		"**" + strconv.Itoa(prev.Counts.Total()) + "**",
		"**" + strconv.Itoa(curr.Counts.Total()) + "**",
		"**" + formatDelta(curr.Counts.Total()-prev.Counts.Total()) + "**",
	})
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Previous", "Current", "Change"},
		Rows:   rows,
	})
	md.PlainText("")

	if len(result.NewFindings) > 0 {
		md.H2f("New Findings (%d)", len(result.NewFindings))
		md.PlainText("")
		md.BulletList(findingLines(result.NewFindings, "", "")...)
		md.PlainText("")
	}

	if len(result.ResolvedFindings) > 0 {
		md.H2f("Resolved Findings (%d)", len(result.ResolvedFindings))
		md.PlainText("")
		md.BulletList(findingLines(result.ResolvedFindings, "~~", "~~")...)
		md.PlainText("")
	}

	if result.UnchangedCount > 0 {
		md.HorizontalRule()
		md.PlainText("")
		md.PlainTextf("*%d findings unchanged*", result.UnchangedCount)
	}

	return md.Build()
}

// findingLines renders findings as Markdown list items wrapped in open/close.
func findingLines(findings []model.ToolFinding, open, closing string) []string {
	lines := make([]string, len(findings))
	for i, f := range findings {
		line := fmt.Sprintf("**[%s]** %s: %s", f.Severity, f.Area, f.Detail)
		if e := f.Entity(); e != "" {
			line = fmt.Sprintf("**[%s]** %s (`%s`): %s", f.Severity, f.Area, e, f.Detail)
		}
		lines[i] = open + line + closing
	}
	return lines
}

// outputComparisonText outputs the comparison result in human-readable text format.
func outputComparisonText(w io.Writer, result *ComparisonResult) error {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Audit Comparison: %s\n", result.DataDir)
	sb.WriteString(strings.Repeat("=", 60) + "\n")

	fmt.Fprintf(&sb, "\nRisk Status: %s\n", formatRiskDirection(result.RiskChange.Direction))

	prev, curr := result.PreviousAudit, result.CurrentAudit
	fmt.Fprintf(&sb, "\nPrevious audit: %s\n", prev.GeneratedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&sb, "Current audit:  %s\n", curr.GeneratedAt.Format("2006-01-02 15:04:05"))

	sb.WriteString("\nFindings Summary:\n")
	fmt.Fprintf(&sb, "  %-10s  %-10s  %-10s  %-10s\n", "Severity", "Previous", "Current", "Change")
	sb.WriteString("  " + strings.Repeat("-", 45) + "\n")
	for _, s := range model.AllSeverities() {
		fmt.Fprintf(&sb, "  %-10s  %-10d  %-10d  %-10s\n", severityTitle(s),
			prev.Counts.Get(s), curr.Counts.Get(s), formatDelta(result.RiskChange.Delta.Get(s)))
	}
	sb.WriteString("  " + strings.Repeat("-", 45) + "\n")
	fmt.Fprintf(&sb, "  %-10s  %-10d  %-10d  %-10s\n", "Total",
		prev.Counts.Total(), curr.Counts.Total(), formatDelta(curr.Counts.Total()-prev.Counts.Total()))

	if len(result.NewFindings) > 0 {
		fmt.Fprintf(&sb, "\nNew Findings (%d):\n", len(result.NewFindings))
		for _, f := range result.NewFindings {
			fmt.Fprintf(&sb, "  [+] [%s] %s: %s\n", f.Severity, f.Area, f.Detail)
			if e := f.Entity(); e != "" {
				fmt.Fprintf(&sb, "      Entity: %s\n", e)
			}
		}
	}

	if len(result.ResolvedFindings) > 0 {
		fmt.Fprintf(&sb, "\nResolved Findings (%d):\n", len(result.ResolvedFindings))
		for _, f := range result.ResolvedFindings {
			fmt.Fprintf(&sb, "  [-] [%s] %s: %s\n", f.Severity, f.Area, f.Detail)
		}
	}

	if result.UnchangedCount > 0 {
		fmt.Fprintf(&sb, "\nUnchanged: %d findings\n", result.UnchangedCount)
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// severityTitle returns "Critical", "High", ... for table rows.
func severityTitle(s model.Severity) string {
	name := s.String()
	return name[:1] + strings.ToLower(name[1:])
}

// formatRiskDirection formats the risk change direction for display.
func formatRiskDirection(direction string) string {
	switch direction {
	case riskDirectionImproved:
		return "IMPROVED (risk decreased)"
	case riskDirectionWorsened:
		return "WORSENED (risk increased)"
	default:
		return "UNCHANGED"
	}
}

// formatDelta formats a numeric delta with sign for display.
func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	}
	return strconv.Itoa(delta)
}
