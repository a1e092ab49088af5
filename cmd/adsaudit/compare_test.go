package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/adsaudit/internal/model"
	"github.com/nao1215/adsaudit/internal/report"
)

// auditWith builds a report whose single analysis holds findings.
func auditWith(generated time.Time, findings ...model.Finding) *model.AuditReport {
	r := model.NewAuditReport("exports/acme", 30)
	r.GeneratedAt = generated
	res := model.NewAnalysisResult()
	for _, f := range findings {
		res.AddFinding(f)
	}
	r.AddAnalysis(model.AnalysisEntry{Tool: "analyze_keywords", Result: res})
	return r
}

var (
	lowQuality = model.Finding{
		Severity: model.SeverityHigh,
		Area:     "Low Quality Score",
		Keyword:  "running shoes",
		Detail:   "Quality Score 3 on a keyword spending $100.00.",
	}
	duplicate = model.Finding{
		Severity: model.SeverityLow,
		Area:     "Duplicate Keywords",
		Keyword:  "trail shoes",
		Detail:   "Keyword appears in 2 ad groups.",
	}
	zeroConv = model.Finding{
		Severity: model.SeverityMedium,
		Area:     "Zero Conversions",
		Keyword:  "cheap shoes",
		Detail:   "Spent $60.00 with 0 conversions.",
	}
)

// TestCompareReports tests matching of findings between two audits.
func TestCompareReports(t *testing.T) {
	t.Parallel()

	jan := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	feb := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)

	testCases := []struct {
		name          string
		previous      *model.AuditReport
		current       *model.AuditReport
		wantNew       int
		wantResolved  int
		wantUnchanged int
		wantDirection string
	}{
		{
			name:          "resolved high finding improves risk",
			previous:      auditWith(jan, lowQuality, duplicate),
			current:       auditWith(feb, duplicate),
			wantResolved:  1,
			wantUnchanged: 1,
			wantDirection: riskDirectionImproved,
		},
		{
			name:          "new finding worsens risk",
			previous:      auditWith(jan, duplicate),
			current:       auditWith(feb, duplicate, zeroConv),
			wantNew:       1,
			wantUnchanged: 1,
			wantDirection: riskDirectionWorsened,
		},
		{
			name:          "identical audits",
			previous:      auditWith(jan, lowQuality, zeroConv),
			current:       auditWith(feb, zeroConv, lowQuality),
			wantUnchanged: 2,
			wantDirection: riskDirectionUnchanged,
		},
		{
			name:          "repeated findings match one to one",
			previous:      auditWith(jan, duplicate),
			current:       auditWith(feb, duplicate, duplicate),
			wantNew:       1,
			wantUnchanged: 1,
			wantDirection: riskDirectionWorsened,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			result := compareReports(tc.previous, tc.current)
			if len(result.NewFindings) != tc.wantNew {
				t.Errorf("new = %d, want %d", len(result.NewFindings), tc.wantNew)
			}
			if len(result.ResolvedFindings) != tc.wantResolved {
				t.Errorf("resolved = %d, want %d", len(result.ResolvedFindings), tc.wantResolved)
			}
			if result.UnchangedCount != tc.wantUnchanged {
				t.Errorf("unchanged = %d, want %d", result.UnchangedCount, tc.wantUnchanged)
			}
			if result.RiskChange.Direction != tc.wantDirection {
				t.Errorf("direction = %q, want %q", result.RiskChange.Direction, tc.wantDirection)
			}
		})
	}
}

// TestCalculateRiskChange tests that severe changes outweigh many mild ones.
func TestCalculateRiskChange(t *testing.T) {
	t.Parallel()

	previous := model.SeverityCounts{High: 1}
	current := model.SeverityCounts{Low: 5, Info: 3}

	change := calculateRiskChange(previous, current)
	if change.Direction != riskDirectionImproved {
		t.Errorf("direction = %q, want %q", change.Direction, riskDirectionImproved)
	}
	want := model.SeverityCounts{High: -1, Low: 5, Info: 3}
	if change.Delta != want {
		t.Errorf("delta = %+v, want %+v", change.Delta, want)
	}
}

// TestFormatDelta tests signed delta formatting.
func TestFormatDelta(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		delta int
		want  string
	}{
		{3, "+3"},
		{-2, "-2"},
		{0, "0"},
	}

	for _, tc := range testCases {
		t.Run(tc.want, func(t *testing.T) {
			t.Parallel()
			if got := formatDelta(tc.delta); got != tc.want {
				t.Errorf("formatDelta(%d) = %q, want %q", tc.delta, got, tc.want)
			}
		})
	}
}

// TestComparisonOutputs tests the text, JSON and Markdown renderings.
func TestComparisonOutputs(t *testing.T) {
	t.Parallel()

	result := compareReports(
		auditWith(time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC), lowQuality, duplicate),
		auditWith(time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC), duplicate, zeroConv),
	)

	testCases := []struct {
		name   string
		render func(*bytes.Buffer) error
		want   []string
	}{
		{
			name:   "text",
			render: func(b *bytes.Buffer) error { return outputComparisonText(b, result) },
			want: []string{
				"Audit Comparison: exports/acme",
				"Risk Status: IMPROVED (risk decreased)",
				"New Findings (1):",
				"[+] [MEDIUM] Zero Conversions: Spent $60.00 with 0 conversions.",
				"Entity: cheap shoes",
				"[-] [HIGH] Low Quality Score",
				"Unchanged: 1 findings",
			},
		},
		{
			name:   "markdown",
			render: func(b *bytes.Buffer) error { return outputComparisonMarkdown(b, result) },
			want: []string{
				"# Audit Comparison: exports/acme",
				"**Risk Status:** IMPROVED (risk decreased)",
				"## New Findings (1)",
				"## Resolved Findings (1)",
				"~~**[HIGH]** Low Quality Score (`running shoes`)",
				"*1 findings unchanged*",
			},
		},
		{
			name:   "json",
			render: func(b *bytes.Buffer) error { return outputComparisonJSON(b, result) },
			want: []string{
				`"direction": "improved"`,
				`"unchanged_count": 1`,
				`"area": "Zero Conversions"`,
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			if err := tc.render(&buf); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for _, want := range tc.want {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("output missing %q:\n%s", want, buf.String())
				}
			}
		})
	}
}

// TestRunCompareCmd tests comparing two saved report files.
func TestRunCompareCmd(t *testing.T) {
	t.Parallel()

	save := func(t *testing.T, r *model.AuditReport) string {
		t.Helper()
		var buf bytes.Buffer
		if _, err := report.NewFullJSONWriter(&buf, "test").Write(r); err != nil {
			t.Fatalf("failed to encode report: %v", err)
		}
		path := filepath.Join(t.TempDir(), "report.json")
		if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
			t.Fatalf("failed to write report: %v", err)
		}
		return path
	}

	previous := save(t, auditWith(time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC), lowQuality))
	current := save(t, auditWith(time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)))

	t.Run("json output", func(t *testing.T) {
		t.Parallel()

		out, err := executeCommand(t, NewCompareCmd(), "--json", previous, current)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var result ComparisonResult
		if err := json.Unmarshal([]byte(out), &result); err != nil {
			t.Fatalf("invalid JSON: %v\n%s", err, out)
		}
		if len(result.ResolvedFindings) != 1 || result.ResolvedFindings[0].Area != "Low Quality Score" {
			t.Errorf("unexpected resolved findings: %+v", result.ResolvedFindings)
		}
		if result.RiskChange.Delta.High != -1 {
			t.Errorf("high delta = %d, want -1", result.RiskChange.Delta.High)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		if _, err := executeCommand(t, NewCompareCmd(), previous, filepath.Join(t.TempDir(), "none.json")); err == nil {
			t.Error("expected error for a missing report")
		}
	})

	t.Run("requires two reports", func(t *testing.T) {
		t.Parallel()

		if _, err := executeCommand(t, NewCompareCmd(), previous); err == nil {
			t.Error("expected error with one argument")
		}
	})
}
