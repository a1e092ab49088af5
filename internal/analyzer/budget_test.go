package analyzer

import (
	"context"
	"testing"

	"github.com/nao1215/adsaudit/internal/model"
)

// TestBudgetAnalyzer tests pacing findings and the projected spend.
func TestBudgetAnalyzer(t *testing.T) {
	t.Parallel()

	path := writeExport(t, "campaigns.csv",
		"Campaign,Campaign status,Cost,Budget,Search lost IS (budget),Budget type",
		"Capped,Enabled,$100.00,$10.00,20%,Standard",
		"Hot,Enabled,$97.00,$10.00,5%,Standard",
		"Idle,Enabled,$15.00,$100.00,0%,Shared",
		"Off,Paused,$0.00,$50.00,--,Standard",
	)
	res, err := NewBudgetAnalyzer().Analyze(context.Background(), Input{DataPath: path, ReportDays: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"Budget Cap", "Budget Utilization", "Budget Pacing", "Shared Budget"}
	if got := areas(res.Findings); !equalStrings(got, want) {
		t.Fatalf("areas = %v, want %v", got, want)
	}
	if res.Findings[0].Severity != model.SeverityHigh || res.Findings[0].Campaign != "Capped" {
		t.Errorf("unexpected budget cap finding: %+v", res.Findings[0])
	}
	if got := res.Findings[0].Recommendation; got != "Increase budget to approximately $13.00/day to capture missed traffic." {
		t.Errorf("recommendation = %q", got)
	}

	pacing, ok := res.Extras["pacing_table"].([]PacingRow)
	if !ok || len(pacing) != 3 {
		t.Fatalf("expected 3 pacing rows, got %#v", res.Extras["pacing_table"])
	}
	if pacing[0].UtilizationPct != "100%" {
		t.Errorf("utilization = %q, want 100%%", pacing[0].UtilizationPct)
	}
	if got := res.Metrics["projected_monthly_spend"]; got != 644.48 {
		t.Errorf("projected_monthly_spend = %v, want 644.48", got)
	}
	if got := res.Metrics["report_days"]; got != 10 {
		t.Errorf("report_days = %v, want 10", got)
	}
}
