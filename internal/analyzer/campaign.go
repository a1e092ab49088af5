package analyzer

import (
	"context"
	"fmt"

	"github.com/nao1215/adsaudit/internal/classify"
	"github.com/nao1215/adsaudit/internal/model"
	"github.com/nao1215/adsaudit/internal/table"
)

// Campaign performance thresholds.
const (
	// campaignLostBudgetShare flags campaigns losing impression share to budget.
	campaignLostBudgetShare = 0.10
	// campaignLostRankShare flags campaigns losing impression share to ad rank.
	campaignLostRankShare = 0.20
	// campaignCPAMultiple is how far above the account CPA a campaign may sit.
	campaignCPAMultiple = 2.0
	// campaignCPAMinCost ignores CPA outliers with trivial spend.
	campaignCPAMinCost = 50.0
	// campaignBreakEvenROAS is the return below which spend is lost money.
	campaignBreakEvenROAS = 1.0
	// campaignROASMinCost ignores ROAS on trivial spend.
	campaignROASMinCost = 100.0
	// campaignLowCTR is the CTR under which ads are not resonating.
	campaignLowCTR = 0.005
	// campaignLowCTRMinImpr requires enough impressions for CTR to mean anything.
	campaignLowCTRMinImpr = 1000.0
	// campaignOverUtilization flags campaigns spending nearly all of their budget.
	campaignOverUtilization = 0.95
	// campaignUnderUtilization flags campaigns spending a small part of their budget.
	campaignUnderUtilization = 0.20
	// campaignUnderUtilizationMinCost ignores campaigns that barely spent.
	campaignUnderUtilizationMinCost = 10.0
)

// CampaignAnalyzer checks campaign-level KPIs: impression share lost to
// budget and rank, CPA and ROAS against the account, CTR, delivery and
// budget utilization.
type CampaignAnalyzer struct{}

// NewCampaignAnalyzer creates a new CampaignAnalyzer.
func NewCampaignAnalyzer() *CampaignAnalyzer {
	return &CampaignAnalyzer{}
}

// Name returns the tool name.
func (a *CampaignAnalyzer) Name() string {
	return "analyze_campaign_performance"
}

// Description returns the tool description.
func (a *CampaignAnalyzer) Description() string {
	return "Analyzes campaign-level performance including budget utilization, impression share, " +
		"ROAS, CPA, and CTR. Identifies campaigns that are budget-limited, have poor impression " +
		"share, or are underperforming against account averages. Returns findings with severity levels."
}

// Params returns the accepted parameters.
func (a *CampaignAnalyzer) Params() []Param {
	return []Param{
		dataParam(classify.TypeCampaigns),
		reportDaysParam(),
	}
}

func reportDaysParam() Param {
	return Param{
		Name:        "report_days",
		Type:        "integer",
		Description: "Number of days in the report date range",
		Default:     DefaultReportDays,
	}
}

// campaignColumns are the resolved columns of a campaigns export.
type campaignColumns struct {
	name, status, costConv                               table.Column
	cost, conv, convVal, ctr, impr, budget, lostB, lostR table.Column
}

func resolveCampaignColumns(f frame) campaignColumns {
	return campaignColumns{
		name:     f.col("Campaign", "Campaign name"),
		status:   f.col("Campaign status", "Status"),
		cost:     f.col("Cost", "Spend"),
		conv:     f.col("Conversions", "Conv."),
		convVal:  f.col("Conversion value", "Conv. value", "All conv. value"),
		ctr:      f.col("CTR"),
		impr:     f.col("Impressions", "Impr."),
		budget:   f.col("Budget", "Daily budget"),
		lostB:    f.col("Search lost IS (budget)", "Search Lost IS (budget)"),
		lostR:    f.col("Search lost IS (rank)", "Search Lost IS (rank)"),
		costConv: f.col("Cost / conv.", "Cost/conv.", "CPA"),
	}
}

func missingCampaignColumn() error {
	return &MissingColumnError{
		Column:  "Campaign",
		File:    classify.TypeCampaigns.FileName(),
		Message: "Could not find Campaign column in campaigns.csv",
	}
}

func reportDays(in Input) float64 {
	if in.ReportDays <= 0 {
		return DefaultReportDays
	}
	return float64(in.ReportDays)
}

// Analyze runs the campaign checks.
func (a *CampaignAnalyzer) Analyze(ctx context.Context, in Input) (*model.AnalysisResult, error) {
	t, err := table.Load(in.DataPath)
	if err != nil {
		return nil, err
	}
	f := newFrame(t)
	cols := resolveCampaignColumns(f)
	if !cols.name.Present() {
		return nil, missingCampaignColumn()
	}

	cost := f.currency(cols.cost)
	conv := f.number(cols.conv)
	convVal := f.currency(cols.convVal)
	ctr := f.percent(cols.ctr)
	impr := f.number(cols.impr)
	budget := f.currency(cols.budget)
	lostB := f.percent(cols.lostB)
	lostR := f.percent(cols.lostR)
	cpa := f.currency(cols.costConv)
	days := reportDays(in)

	totalCost := cost.sum()
	totalConv := conv.sum()
	avgCPA := safeDivide(totalCost, totalConv)
	avgCTR := ctr.mean()
	roas := safeDivide(convVal.sum(), totalCost)

	res := model.NewAnalysisResult()
	res.Metrics = model.Metrics{
		"total_cost":        round(totalCost, 2),
		"total_conversions": round(totalConv, 1),
		"account_avg_cpa":   round(avgCPA, 2),
		"account_avg_ctr":   round(avgCTR, 4),
		"account_roas":      round(roas, 2),
		"report_days":       int(days),
	}

	for i := 0; i < f.len(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := f.label(i, cols.name, "Unknown")
		rowCost := cost.at(i)
		rowConv := conv.at(i)
		rowImpr := impr.at(i)
		rowCTR := ctr.at(i)
		rowCPA := cpa.at(i)
		status := f.lower(i, cols.status)

		if lb := lostB.at(i); lb > campaignLostBudgetShare {
			res.AddFinding(model.Finding{
				Severity:       model.SeverityHigh,
				Area:           "Budget",
				Campaign:       name,
				Detail:         fmt.Sprintf("Losing %s of impressions due to budget cap.", pct(lb, 0)),
				Recommendation: "Increase daily budget or improve Quality Score to recapture lost impressions.",
			})
		}

		if lr := lostR.at(i); lr > campaignLostRankShare {
			res.AddFinding(model.Finding{
				Severity:       model.SeverityHigh,
				Area:           "Impression Share (Rank)",
				Campaign:       name,
				Detail:         fmt.Sprintf("Losing %s of impressions due to low ad rank.", pct(lr, 0)),
				Recommendation: "Improve Quality Score or increase bids to improve ad rank.",
			})
		}

		if avgCPA > 0 && rowCPA > avgCPA*campaignCPAMultiple && rowCost > campaignCPAMinCost {
			res.AddFinding(model.Finding{
				Severity: model.SeverityHigh,
				Area:     "CPA",
				Campaign: name,
				Detail: fmt.Sprintf("CPA of %s is %.1fx the account average of %s.",
					money(rowCPA), rowCPA/avgCPA, money(avgCPA)),
				Recommendation: "Review keyword relevance, bidding strategy, and landing page quality.",
			})
		}

		if convVal.present && rowConv > 0 {
			val := convVal.at(i)
			rowROAS := safeDivide(val, rowCost)
			if rowROAS < campaignBreakEvenROAS && rowCost > campaignROASMinCost {
				res.AddFinding(model.Finding{
					Severity: model.SeverityHigh,
					Area:     "ROAS",
					Campaign: name,
					Detail: fmt.Sprintf("ROAS of %.2f: spending more than returning. Spent %s, returned %s.",
						rowROAS, money(rowCost), money(val)),
					Recommendation: "Reduce bids, tighten targeting, or pause campaign for review.",
				})
			}
		}

		if rowCTR > 0 && rowCTR < campaignLowCTR && rowImpr > campaignLowCTRMinImpr {
			res.AddFinding(model.Finding{
				Severity: model.SeverityMedium,
				Area:     "CTR",
				Campaign: name,
				Detail: fmt.Sprintf("CTR of %s is very low with %s impressions. Ads are not resonating.",
					pct(rowCTR, 2), count(rowImpr)),
				Recommendation: "Review ad copy relevance, add more specific headlines, check keyword-to-ad alignment.",
			})
		}

		if status == "enabled" && rowImpr == 0 {
			res.AddFinding(deliveryFinding(name, rowCost))
		}

		if b := budget.at(i); b > 0 && rowCost > 0 {
			daily := rowCost / days
			util := safeDivide(daily, b)
			switch {
			case util > campaignOverUtilization:
				res.AddFinding(model.Finding{
					Severity: model.SeverityMedium,
					Area:     "Budget Utilization",
					Campaign: name,
					Detail: fmt.Sprintf("Using %s of daily budget (%s avg vs %s budget).",
						pct(util, 0), money(daily), money(b)),
					Recommendation: "Campaign is at its budget ceiling. Raise the budget if CPA is on target, or tighten targeting.",
				})
			case util < campaignUnderUtilization && rowCost > campaignUnderUtilizationMinCost:
				res.AddFinding(model.Finding{
					Severity: model.SeverityLow,
					Area:     "Budget Utilization",
					Campaign: name,
					Detail: fmt.Sprintf("Only using %s of daily budget (%s avg vs %s budget).",
						pct(util, 0), money(daily), money(b)),
					Recommendation: "Reduce budget to match actual spend, or broaden targeting to increase delivery.",
				})
			}
		}
	}

	res.Summary = fmt.Sprintf("Analyzed %d campaigns. Total spend: %s. Total conversions: %s. "+
		"Account avg CPA: %s. Found %d issues.",
		f.len(), money(totalCost), count(totalConv), money(avgCPA), len(res.Findings))
	return res, nil
}

// deliveryFinding reports an enabled entity with zero impressions. Spend
// recorded alongside zero impressions points at a data or billing fault
// rather than a targeting one, so it is escalated to HIGH.
func deliveryFinding(campaign string, cost float64) model.Finding {
	f := model.Finding{
		Severity:       model.SeverityMedium,
		Area:           "Delivery",
		Campaign:       campaign,
		Detail:         "Campaign is enabled but received zero impressions in the report period.",
		Recommendation: "Check for billing issues, policy disapprovals, targeting too narrow, or budget too low.",
	}
	if cost > 0 {
		f.Severity = model.SeverityHigh
		f.Detail = fmt.Sprintf("Campaign is enabled and recorded %s of spend but zero impressions in the report period.", money(cost))
	}
	return f
}
