package analyzer

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/nao1215/adsaudit/internal/classify"
	"github.com/nao1215/adsaudit/internal/model"
	"github.com/nao1215/adsaudit/internal/table"
)

// Audience thresholds.
const (
	// audienceRateMultiple flags audiences converting well above average.
	audienceRateMultiple = 1.3
	// audienceNeutralAdjustment is the largest bid adjustment treated as none.
	audienceNeutralAdjustment = 0.05
	// audienceRateMinCost ignores high performers with trivial spend.
	audienceRateMinCost = 20.0
	// audienceCPAMultiple flags audiences far above account CPA.
	audienceCPAMultiple = 2.0
	// audienceCPAMinCost ignores expensive audiences with trivial spend.
	audienceCPAMinCost = 30.0
	// audienceCPADamping halves the suggested cut relative to the CPA excess.
	audienceCPADamping = 50.0
	// audienceWasteMinCost flags non-converting audiences above this spend.
	audienceWasteMinCost = 50.0
	// remarketingMinImpr is the impression count a healthy list should reach.
	remarketingMinImpr = 100.0
)

// AudienceAnalyzer checks remarketing coverage and audience bid
// adjustments against conversion rate and CPA benchmarks.
type AudienceAnalyzer struct{}

// NewAudienceAnalyzer creates a new AudienceAnalyzer.
func NewAudienceAnalyzer() *AudienceAnalyzer {
	return &AudienceAnalyzer{}
}

// Name returns the tool name.
func (a *AudienceAnalyzer) Name() string {
	return "analyze_audiences"
}

// Description returns the tool description.
func (a *AudienceAnalyzer) Description() string {
	return "Analyzes audience segment performance including remarketing lists, in-market audiences, " +
		"and demographic segments. Identifies missing remarketing setup, audiences needing positive " +
		"bid adjustments (high performers), and audiences wasting budget (should be excluded or reduced)."
}

// Params returns the accepted parameters.
func (a *AudienceAnalyzer) Params() []Param {
	return []Param{dataParam(classify.TypeAudiences)}
}

// hasRemarketing reports whether any segment is a remarketing list. The
// type column is authoritative when present; otherwise segment names are
// searched.
func hasRemarketing(f frame, audienceCol, typeCol table.Column) bool {
	for i := 0; i < f.len(); i++ {
		if typeCol.Present() {
			if containsAny(f.lower(i, typeCol), "remarketing", "retargeting") {
				return true
			}
			continue
		}
		if containsAny(f.lower(i, audienceCol), "remarketing", "retargeting", "website visitor") {
			return true
		}
	}
	return false
}

// Analyze runs the audience checks.
func (a *AudienceAnalyzer) Analyze(ctx context.Context, in Input) (*model.AnalysisResult, error) {
	t, err := table.Load(in.DataPath)
	if err != nil {
		return nil, err
	}
	f := newFrame(t)

	audienceCol := f.col("Audience segment", "Audience", "Audience name")
	if !audienceCol.Present() {
		return nil, &MissingColumnError{
			Column:  "Audience",
			File:    classify.TypeAudiences.FileName(),
			Message: "Could not find audience column in audiences.csv",
		}
	}
	campaignCol := f.col("Campaign")
	typeCol := f.col("Audience type", "Type")
	cost := f.currency(f.col("Cost", "Spend"))
	conv := f.number(f.col("Conversions", "Conv."))
	cpa := f.currency(f.col("Cost / conv.", "Cost/conv."))
	convRate := f.percent(f.col("Conv. rate", "Conversion rate"))
	bidAdj := f.percent(f.col("Bid adjustment"))
	impr := f.number(f.col("Impressions", "Impr."))

	avgCPA := safeDivide(cost.sum(), conv.sum())
	avgRate := convRate.mean()
	remarketing := hasRemarketing(f, audienceCol, typeCol)

	res := model.NewAnalysisResult()
	if !remarketing {
		res.AddFinding(model.Finding{
			Severity: model.SeverityHigh,
			Area:     "Remarketing",
			Audience: "All audiences",
			Detail:   "No remarketing audiences detected in this account.",
			Recommendation: "Set up Google Ads remarketing tags and create audience lists for website visitors, " +
				"cart abandoners, and past converters.",
		})
	}

	for i := 0; i < f.len(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		base := model.Finding{
			Audience: f.label(i, audienceCol, "Unknown"),
			Campaign: f.text(i, campaignCol),
		}
		rowCost := cost.at(i)
		rowCPA := cpa.at(i)
		rowRate := convRate.at(i)
		adj := bidAdj.at(i)

		if avgRate > 0 && rowRate > avgRate*audienceRateMultiple && math.Abs(adj) < audienceNeutralAdjustment && rowCost > audienceRateMinCost {
			ratio := rowRate / avgRate
			fd := base
			fd.Severity = model.SeverityHigh
			fd.Area = "Audience Bid Adjustment"
			fd.Detail = fmt.Sprintf("Audience conv. rate %s is %.1fx the average. No bid adjustment set.", pct(rowRate, 2), ratio)
			fd.Recommendation = fmt.Sprintf("Add a %s bid adjustment to prioritize this audience.", signedPct((ratio-1)*100))
			res.AddFinding(fd)
		}

		if avgCPA > 0 && rowCPA > avgCPA*audienceCPAMultiple && rowCost > audienceCPAMinCost && adj >= 0 {
			ratio := rowCPA / avgCPA
			fd := base
			fd.Severity = model.SeverityMedium
			fd.Area = "Audience Spend"
			fd.Detail = fmt.Sprintf("CPA %s is %.1fx the account average. Currently bidding %s.", money(rowCPA), ratio, signedPct(adj*100))
			fd.Recommendation = fmt.Sprintf("Apply a negative bid adjustment of -%.0f%% to reduce waste on this audience.",
				(ratio-1)*audienceCPADamping)
			res.AddFinding(fd)
		}

		if rowCost > audienceWasteMinCost && conv.at(i) == 0 {
			fd := base
			fd.Severity = model.SeverityMedium
			fd.Area = "Audience Waste"
			fd.CostWasted = round(rowCost, 2)
			fd.Detail = fmt.Sprintf("Spent %s with 0 conversions.", money(rowCost))
			fd.Recommendation = "Consider excluding this audience or applying a significant negative bid adjustment."
			res.AddFinding(fd)
		}

		if strings.Contains(f.lower(i, typeCol), "remarketing") && impr.at(i) < remarketingMinImpr {
			fd := base
			fd.Severity = model.SeverityLow
			fd.Area = "Remarketing List Size"
			fd.Detail = fmt.Sprintf("Remarketing audience has only %.0f impressions, the list is likely too small.", impr.at(i))
			fd.Recommendation = "Grow your remarketing list by expanding eligibility windows or adding more audience sources " +
				"(e.g., YouTube viewers, email lists)."
			res.AddFinding(fd)
		}
	}

	found := "No (CRITICAL)"
	if remarketing {
		found = "Yes"
	}
	res.Metrics = model.Metrics{
		"total_audience_segments": f.len(),
		"remarketing_configured":  remarketing,
		"avg_cpa":                 round(avgCPA, 2),
		"avg_conv_rate":           round(avgRate, 4),
	}
	res.Summary = fmt.Sprintf("Analyzed %d audience segments. Remarketing found: %s. Account avg CPA: %s. Found %d issues.",
		f.len(), found, money(avgCPA), len(res.Findings))
	return res, nil
}
