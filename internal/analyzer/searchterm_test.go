package analyzer

import (
	"context"
	"testing"
)

// TestSearchTermAnalyzer tests harvesting and negative keyword candidates.
func TestSearchTermAnalyzer(t *testing.T) {
	t.Parallel()

	terms := []string{
		"Search term,Campaign,Ad group,Cost,Conversions,Clicks",
		"cheap shoes,Brand,AG1,$100.00,0,20",
		"free shoes,Brand,AG1,$25.00,0,5",
		"buy shoes online,Brand,AG1,$75.00,10,30",
	}

	testCases := []struct {
		name     string
		keywords []string
		want     []string
	}{
		{
			name: "converting term becomes a keyword opportunity",
			want: []string{"Keyword Opportunity", "Wasted Search Term Spend"},
		},
		{
			name: "existing keyword is not harvested",
			keywords: []string{
				"Keyword,Campaign",
				"Buy Shoes Online,Brand",
			},
			want: []string{"Wasted Search Term Spend"},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			in := Input{DataPath: writeExport(t, "search_terms.csv", terms...)}
			if tc.keywords != nil {
				in.KeywordsPath = writeExport(t, "keywords.csv", tc.keywords...)
			}
			res, err := NewSearchTermAnalyzer().Analyze(context.Background(), in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := areas(res.Findings); !equalStrings(got, tc.want) {
				t.Fatalf("areas = %v, want %v", got, tc.want)
			}

			// Account CPA is 20, so only the $100 term crosses the $30 threshold.
			last := res.Findings[len(res.Findings)-1]
			if last.SearchTerm != "cheap shoes" || last.CostWasted != 100 {
				t.Errorf("unexpected waste finding: %+v", last)
			}
			if got := res.Metrics["wasted_spend"]; got != 100.0 {
				t.Errorf("wasted_spend = %v, want 100", got)
			}
			negatives, ok := res.Extras["negative_keyword_candidates"].([]NegativeCandidate)
			if !ok || len(negatives) != 1 {
				t.Errorf("unexpected negative candidates: %#v", res.Extras["negative_keyword_candidates"])
			}
		})
	}

	t.Run("missing keywords export is ignored", func(t *testing.T) {
		t.Parallel()

		in := Input{
			DataPath:     writeExport(t, "search_terms.csv", terms...),
			KeywordsPath: "does/not/exist.csv",
		}
		res, err := NewSearchTermAnalyzer().Analyze(context.Background(), in)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(res.Findings) != 2 {
			t.Errorf("expected 2 findings, got %v", areas(res.Findings))
		}
	})
}
