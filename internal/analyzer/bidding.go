package analyzer

import (
	"context"
	"fmt"

	"github.com/nao1215/adsaudit/internal/classify"
	"github.com/nao1215/adsaudit/internal/model"
	"github.com/nao1215/adsaudit/internal/table"
)

// Bidding strategy thresholds.
const (
	// smartBiddingMinConversions is the monthly volume automated bidding needs.
	smartBiddingMinConversions = 30.0
	// smartBiddingMinCost ignores campaigns too small to matter.
	smartBiddingMinCost = 50.0
	// biddingLostRankShare flags converting campaigns losing auctions on rank.
	biddingLostRankShare = 0.25
	// biddingROASMinCost ignores ROAS on trivial spend.
	biddingROASMinCost = 100.0
	// biddingCPAMultiple is how far above the account CPA a target may sit.
	biddingCPAMultiple = 2.5
	// biddingCPAMinCost ignores CPA outliers with trivial spend.
	biddingCPAMinCost = 50.0
)

// BiddingAnalyzer reviews bidding strategy suitability from conversion
// volume, rank-limited impression share, ROAS and CPA alignment.
type BiddingAnalyzer struct{}

// NewBiddingAnalyzer creates a new BiddingAnalyzer.
func NewBiddingAnalyzer() *BiddingAnalyzer {
	return &BiddingAnalyzer{}
}

// Name returns the tool name.
func (a *BiddingAnalyzer) Name() string {
	return "analyze_bidding_strategies"
}

// Description returns the tool description.
func (a *BiddingAnalyzer) Description() string {
	return "Reviews bidding strategy suitability based on conversion volume (Smart Bidding needs 30+ conv/month), " +
		"identifies campaigns under-investing despite good performance, flags negative ROAS situations, " +
		"and highlights CPA misalignment across campaigns."
}

// Params returns the accepted parameters.
func (a *BiddingAnalyzer) Params() []Param {
	return []Param{dataParam(classify.TypeCampaigns)}
}

// SmartBiddingReadiness is a campaign without enough conversions for
// automated bidding.
type SmartBiddingReadiness struct {
	Campaign            string  `json:"campaign"`
	Conversions         float64 `json:"conversions"`
	RecommendedStrategy string  `json:"recommended_strategy"`
}

// Analyze runs the bidding checks.
func (a *BiddingAnalyzer) Analyze(ctx context.Context, in Input) (*model.AnalysisResult, error) {
	t, err := table.Load(in.DataPath)
	if err != nil {
		return nil, err
	}
	f := newFrame(t)

	nameCol := f.col("Campaign", "Campaign name")
	if !nameCol.Present() {
		return nil, missingCampaignColumn()
	}
	cost := f.currency(f.col("Cost", "Spend"))
	conv := f.number(f.col("Conversions", "Conv."))
	convVal := f.currency(f.col("Conversion value", "Conv. value"))
	lostR := f.percent(f.col("Search lost IS (rank)", "Search Lost IS (rank)"))
	cpa := f.currency(f.col("Cost / conv.", "Cost/conv."))
	impr := f.number(f.col("Impressions", "Impr."))
	convRate := f.percent(f.col("Conv. rate", "Conversion rate"))

	totalCost := cost.sum()
	totalConv := conv.sum()
	avgCPA := safeDivide(totalCost, totalConv)

	res := model.NewAnalysisResult()
	readiness := make([]SmartBiddingReadiness, 0)

	for i := 0; i < f.len(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := f.label(i, nameCol, "Unknown")
		rowCost := cost.at(i)
		rowConv := conv.at(i)
		rowVal := convVal.at(i)
		rowCPA := cpa.at(i)

		if rowConv < smartBiddingMinConversions && rowCost > smartBiddingMinCost {
			res.AddFinding(model.Finding{
				Severity: model.SeverityMedium,
				Area:     "Smart Bidding Readiness",
				Campaign: name,
				Detail: fmt.Sprintf("Only %.0f conversions in the period. Smart Bidding needs 30-50+ conversions/month to optimize effectively.",
					rowConv),
				Recommendation: "Use Manual CPC or Maximize Clicks to build conversion data before switching to Target CPA or Target ROAS.",
			})
			readiness = append(readiness, SmartBiddingReadiness{
				Campaign:            name,
				Conversions:         rowConv,
				RecommendedStrategy: "Manual CPC or Maximize Clicks (until 30+ conv/month)",
			})
		}

		if lr := lostR.at(i); lr > biddingLostRankShare && rowConv > 0 {
			cpaText := "N/A"
			if rowCPA != 0 {
				cpaText = money(rowCPA)
			}
			res.AddFinding(model.Finding{
				Severity: model.SeverityHigh,
				Area:     "Bidding - Under-Investing",
				Campaign: name,
				Detail: fmt.Sprintf("Losing %s of impressions to low ad rank despite %.0f conversions. CPA: %s.",
					pct(lr, 0), rowConv, cpaText),
				Recommendation: "Increase bids or switch to a Smart Bidding strategy to compete for more auctions.",
			})
		}

		if rowVal > 0 && rowCost > 0 {
			roas := safeDivide(rowVal, rowCost)
			if roas < campaignBreakEvenROAS && rowCost > biddingROASMinCost {
				res.AddFinding(model.Finding{
					Severity: model.SeverityHigh,
					Area:     "ROAS Below Break-Even",
					Campaign: name,
					Detail: fmt.Sprintf("ROAS is %.2f, returning less in conversion value than spent. Cost: %s, Value: %s.",
						roas, money(rowCost), money(rowVal)),
					Recommendation: "If using Target ROAS, increase the target. If Manual CPC, reduce bids on low-performing keywords.",
				})
			}
		}

		if avgCPA > 0 && rowCPA > avgCPA*biddingCPAMultiple && rowCost > biddingCPAMinCost {
			res.AddFinding(model.Finding{
				Severity: model.SeverityHigh,
				Area:     "CPA - Bidding Misalignment",
				Campaign: name,
				Detail: fmt.Sprintf("CPA %s is %.1fx the account average %s.",
					money(rowCPA), rowCPA/avgCPA, money(avgCPA)),
				Recommendation: "If using Target CPA, set a more realistic target. Review keyword quality and landing page relevance.",
			})
		}

		// Requires the conversion rate column.
		if impr.at(i) == 0 && rowCost == 0 && convRate.present {
			res.AddFinding(model.Finding{
				Severity:       model.SeverityMedium,
				Area:           "Delivery",
				Campaign:       name,
				Detail:         "Campaign has zero impressions. Possible bidding or budget issue preventing delivery.",
				Recommendation: "Check bid strategy settings, budget, and ad approval status.",
			})
		}
	}

	res.AddFinding(model.Finding{
		Severity:       model.SeverityInfo,
		Area:           "Smart Bidding Note",
		Campaign:       "All campaigns",
		Detail:         "Detailed bidding strategy types (Target CPA, Target ROAS, etc.) are not available in standard CSV exports.",
		Recommendation: "For full bidding strategy audit, export the Campaign Settings report or use the Google Ads API.",
	})

	res.SetExtra("smart_bidding_readiness", readiness)
	res.Metrics = model.Metrics{
		"account_avg_cpa":   round(avgCPA, 2),
		"total_conversions": round(totalConv, 1),
		"total_cost":        round(totalCost, 2),
	}
	res.Summary = fmt.Sprintf("Analyzed bidding effectiveness across %d campaigns. "+
		"Campaigns with insufficient Smart Bidding data (<30 conv): %d. Account avg CPA: %s. Found %d issues.",
		f.len(), len(readiness), money(avgCPA), len(res.Findings))
	return res, nil
}
