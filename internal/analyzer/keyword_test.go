package analyzer

import (
	"context"
	"strings"
	"testing"

	"github.com/nao1215/adsaudit/internal/model"
)

// TestKeywordWasteThreshold tests the non-converting spend threshold.
func TestKeywordWasteThreshold(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		avgCPA float64
		want   float64
	}{
		{"twice the account CPA", 40, 80},
		{"floor applies to cheap accounts", 10, 30},
		{"unknown CPA", 0, 50},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := keywordWasteThreshold(tc.avgCPA); got != tc.want {
				t.Errorf("keywordWasteThreshold(%v) = %v, want %v", tc.avgCPA, got, tc.want)
			}
		})
	}
}

// TestKeywordAnalyzer tests keyword findings.
func TestKeywordAnalyzer(t *testing.T) {
	t.Parallel()

	t.Run("wasted spend and duplicates without quality score", func(t *testing.T) {
		t.Parallel()

		// Account CPA is 200 / 10 = 20, so the waste threshold is 40.
		path := writeExport(t, "keywords.csv",
			"Campaign,Ad group,Keyword,Cost,Conversions",
			"Brand,AG1,running shoes,$100.00,0",
			"Brand,AG2,Running Shoes,$25.00,0",
			"Brand,AG3,trail shoes,$75.00,10",
		)
		res, err := NewKeywordAnalyzer().Analyze(context.Background(), Input{DataPath: path})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := []string{"Wasted Spend", "Duplicate Keywords"}
		if got := areas(res.Findings); !equalStrings(got, want) {
			t.Fatalf("areas = %v, want %v", got, want)
		}
		wasted := res.Findings[0]
		if wasted.Keyword != "running shoes" || wasted.CostWasted != 100 || wasted.Severity != model.SeverityHigh {
			t.Errorf("unexpected wasted spend finding: %+v", wasted)
		}
		dup := res.Findings[1]
		if dup.Keyword != "running shoes" || !strings.Contains(dup.Detail, "2 different ad groups") {
			t.Errorf("unexpected duplicate finding: %+v", dup)
		}

		breakdown, ok := res.Extras["quality_score_breakdown"].(map[string]any)
		if !ok || len(breakdown) != 0 {
			t.Errorf("expected empty quality score breakdown, got %#v", res.Extras["quality_score_breakdown"])
		}
		if !strings.Contains(res.Summary, "Avg Quality Score: N/A") {
			t.Errorf("summary = %q", res.Summary)
		}
	})

	t.Run("quality score and match type balance", func(t *testing.T) {
		t.Parallel()

		path := writeExport(t, "keywords.csv",
			"Keyword,Match type,Cost,Conversions,Quality Score,Ad relevance",
			"shoes,Broad match,$30.00,1,2,Below average",
			"boots,Broad match,$5.00,1,5,Average",
			"sandals,Phrase match,$5.00,1,9,Above average",
		)
		res, err := NewKeywordAnalyzer().Analyze(context.Background(), Input{DataPath: path})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := []string{"Quality Score", "Ad Relevance", "Match Type Balance", "Match Type Balance"}
		if got := areas(res.Findings); !equalStrings(got, want) {
			t.Fatalf("areas = %v, want %v", got, want)
		}
		b, ok := res.Extras["quality_score_breakdown"].(QualityScoreBreakdown)
		if !ok {
			t.Fatalf("unexpected breakdown type %T", res.Extras["quality_score_breakdown"])
		}
		if b.Poor != 1 || b.Average != 1 || b.Good != 1 || b.Mean != 5.3 {
			t.Errorf("unexpected breakdown: %+v", b)
		}
	})
}
