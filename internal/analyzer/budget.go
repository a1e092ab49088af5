package analyzer

import (
	"context"
	"fmt"
	"strings"

	"github.com/nao1215/adsaudit/internal/classify"
	"github.com/nao1215/adsaudit/internal/model"
	"github.com/nao1215/adsaudit/internal/table"
)

// Budget pacing thresholds.
const (
	// daysPerMonth projects daily spend to a month.
	daysPerMonth = 30.4
	// pacingLostBudgetShare flags campaigns capped by their budget.
	pacingLostBudgetShare = 0.15
	// pacingBudgetHeadroom sizes the recommended budget over current daily spend.
	pacingBudgetHeadroom = 1.3
	// pacingOverUtilization risks mid-day budget exhaustion.
	pacingOverUtilization = 0.95
	// pacingUnderUtilization flags budgets that are mostly unspent.
	pacingUnderUtilization = 0.20
	// pacingUnderMinCost ignores campaigns that barely spent.
	pacingUnderMinCost = 10.0
)

// BudgetAnalyzer checks daily budget utilization, budget-capped
// campaigns and shared budgets, and projects monthly spend.
type BudgetAnalyzer struct{}

// NewBudgetAnalyzer creates a new BudgetAnalyzer.
func NewBudgetAnalyzer() *BudgetAnalyzer {
	return &BudgetAnalyzer{}
}

// Name returns the tool name.
func (a *BudgetAnalyzer) Name() string {
	return "analyze_budget_pacing"
}

// Description returns the tool description.
func (a *BudgetAnalyzer) Description() string {
	return "Checks daily budget utilization across campaigns, identifies campaigns limited by budget, " +
		"shared budget conflicts, and projects monthly spend. Flags over-pacing and under-pacing issues."
}

// Params returns the accepted parameters.
func (a *BudgetAnalyzer) Params() []Param {
	return []Param{dataParam(classify.TypeCampaigns), reportDaysParam()}
}

// PacingRow is one campaign in the pacing table.
type PacingRow struct {
	Campaign         string  `json:"campaign"`
	DailyAvgSpend    float64 `json:"daily_avg_spend"`
	DailyBudget      float64 `json:"daily_budget"`
	UtilizationPct   string  `json:"utilization_pct"`
	ProjectedMonthly float64 `json:"projected_monthly"`
}

// Analyze runs the pacing checks.
func (a *BudgetAnalyzer) Analyze(ctx context.Context, in Input) (*model.AnalysisResult, error) {
	t, err := table.Load(in.DataPath)
	if err != nil {
		return nil, err
	}
	f := newFrame(t)

	nameCol := f.col("Campaign", "Campaign name")
	if !nameCol.Present() {
		return nil, missingCampaignColumn()
	}
	statusCol := f.col("Campaign status", "Status")
	typeCol := f.col("Budget type")
	cost := f.currency(f.col("Cost", "Spend"))
	budget := f.currency(f.col("Budget", "Daily budget"))
	lostB := f.percent(f.col("Search lost IS (budget)", "Search Lost IS (budget)"))
	days := reportDays(in)

	totalCost := cost.sum()
	totalBudget := budget.sum()
	projectedMonthly := totalCost / days * daysPerMonth

	res := model.NewAnalysisResult()
	pacing := make([]PacingRow, 0, f.len())

	for i := 0; i < f.len(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := f.label(i, nameCol, "Unknown")
		rowCost := cost.at(i)
		rowBudget := budget.at(i)
		status := f.lower(i, statusCol)

		if rowCost == 0 && status != "enabled" {
			continue
		}

		daily := safeDivide(rowCost, days)
		hasUtil := rowBudget > 0
		util := safeDivide(daily, rowBudget)

		row := PacingRow{
			Campaign:         name,
			DailyAvgSpend:    round(daily, 2),
			DailyBudget:      round(rowBudget, 2),
			UtilizationPct:   "N/A",
			ProjectedMonthly: round(daily*daysPerMonth, 2),
		}
		if hasUtil {
			row.UtilizationPct = pct(util, 0)
		}
		pacing = append(pacing, row)

		if lb := lostB.at(i); lb > pacingLostBudgetShare {
			res.AddFinding(model.Finding{
				Severity: model.SeverityHigh,
				Area:     "Budget Cap",
				Campaign: name,
				Detail: fmt.Sprintf("Losing %s of impressions to budget limit. Daily avg spend: %s vs %s budget.",
					pct(lb, 0), money(daily), money(rowBudget)),
				Recommendation: fmt.Sprintf("Increase budget to approximately %s/day to capture missed traffic.",
					money(daily*pacingBudgetHeadroom)),
			})
		} else if hasUtil && util > pacingOverUtilization {
			res.AddFinding(model.Finding{
				Severity: model.SeverityMedium,
				Area:     "Budget Utilization",
				Campaign: name,
				Detail: fmt.Sprintf("Spending %s of daily budget (%s of %s). Risk of mid-day budget exhaustion.",
					pct(util, 0), money(daily), money(rowBudget)),
				Recommendation: "Monitor delivery schedule. Consider increasing budget or using shared budgets.",
			})
		}

		if hasUtil && util < pacingUnderUtilization && rowCost > pacingUnderMinCost {
			res.AddFinding(model.Finding{
				Severity: model.SeverityLow,
				Area:     "Budget Pacing",
				Campaign: name,
				Detail: fmt.Sprintf("Only spending %s of daily budget. Budgeted %s/day but averaging %s/day.",
					pct(util, 0), money(rowBudget), money(daily)),
				Recommendation: "Reallocate budget to better-performing campaigns or broaden targeting.",
			})
		}

		if strings.Contains(f.lower(i, typeCol), "shared") {
			res.AddFinding(model.Finding{
				Severity:       model.SeverityLow,
				Area:           "Shared Budget",
				Campaign:       name,
				Detail:         "Uses a shared budget. Shared budgets can cause some campaigns to starve others.",
				Recommendation: "Review shared budget allocation and make sure high-priority campaigns aren't being throttled.",
			})
		}
	}

	res.SetExtra("pacing_table", pacing)
	res.Metrics = model.Metrics{
		"total_spend":             round(totalCost, 2),
		"total_daily_budget":      round(totalBudget, 2),
		"projected_monthly_spend": round(projectedMonthly, 2),
		"report_days":             int(days),
	}
	res.Summary = fmt.Sprintf("Analyzed budget pacing across %d campaigns over %d days. Total spend: %s. "+
		"Total daily budget: %s. Projected monthly spend: %s. Found %d pacing issues.",
		f.len(), int(days), money(totalCost), money(totalBudget), money(projectedMonthly), len(res.Findings))
	return res, nil
}
