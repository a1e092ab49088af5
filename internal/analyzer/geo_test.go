package analyzer

import (
	"context"
	"testing"
)

// TestGeoAnalyzer tests geographic findings and rankings.
func TestGeoAnalyzer(t *testing.T) {
	t.Parallel()

	t.Run("waste, CPA and opportunity", func(t *testing.T) {
		t.Parallel()

		// Account CPA is 500 / 20 = 25 and conversion rate 20 / 250 = 8%.
		path := writeExport(t, "geographic.csv",
			"Country/Territory,City,Cost,Conversions,Clicks",
			"United States,Austin,$100.00,10,100",
			"United States,Boston,$60.00,0,30",
			"United States,Chicago,$300.00,5,100",
			"United States,Denver,$40.00,5,20",
		)
		res, err := NewGeoAnalyzer().Analyze(context.Background(), Input{DataPath: path})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := []string{"Geographic Waste", "Geographic CPA", "Geographic Opportunity"}
		if got := areas(res.Findings); !equalStrings(got, want) {
			t.Fatalf("areas = %v, want %v", got, want)
		}
		locations := []string{res.Findings[0].Location, res.Findings[1].Location, res.Findings[2].Location}
		if !equalStrings(locations, []string{"Boston", "Chicago", "Denver"}) {
			t.Errorf("locations = %v", locations)
		}

		exclusions, _ := res.Extras["exclusion_candidates"].([]ExclusionCandidate)
		if len(exclusions) != 1 || exclusions[0].CostShare != "12.0%" || exclusions[0].CostWasted != 60 {
			t.Errorf("unexpected exclusions: %+v", exclusions)
		}

		top, _ := res.Extras["top_locations_by_conversions"].([]LocationRow)
		var topNames []string
		for _, l := range top {
			topNames = append(topNames, l.Location)
		}
		if !equalStrings(topNames, []string{"Austin", "Chicago", "Denver", "Boston"}) {
			t.Errorf("top locations = %v", topNames)
		}

		worst, _ := res.Extras["worst_locations_by_cpa"].([]LocationRow)
		var worstNames []string
		for _, l := range worst {
			worstNames = append(worstNames, l.Location)
		}
		if !equalStrings(worstNames, []string{"Chicago", "Austin", "Boston"}) {
			t.Errorf("worst locations = %v", worstNames)
		}

		if got := res.Metrics["total_wasted_spend_on_exclusions"]; got != 60.0 {
			t.Errorf("total_wasted_spend_on_exclusions = %v, want 60", got)
		}
		if got := res.Metrics["total_locations"]; got != 4 {
			t.Errorf("total_locations = %v, want 4", got)
		}
	})

	t.Run("missing location column", func(t *testing.T) {
		t.Parallel()

		path := writeExport(t, "geographic.csv",
			"Campaign,Cost",
			"Brand,10",
		)
		_, err := NewGeoAnalyzer().Analyze(context.Background(), Input{DataPath: path})
		if err == nil || err.Error() != "Could not find a location column (City/Region/Country) in geographic.csv" {
			t.Errorf("unexpected error: %v", err)
		}
	})
}
