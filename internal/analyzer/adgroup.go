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

// Ad group structure thresholds.
const (
	// maxKeywordsPerAdGroup is the keyword count above which themes blur.
	maxKeywordsPerAdGroup = 20
	// adGroupWasteCPAMultiple sizes the waste threshold from account CPA.
	adGroupWasteCPAMultiple = 3.0
	// adGroupWasteFloor is the minimum waste threshold when CPA is known.
	adGroupWasteFloor = 50.0
	// adGroupWasteDefault is the waste threshold when CPA is unknown.
	adGroupWasteDefault = 75.0
	// adGroupLowCTR is the CTR under which an ad group's copy is off-theme.
	adGroupLowCTR = 0.005
	// adGroupLowCTRMinImpr requires enough impressions for CTR to mean anything.
	adGroupLowCTRMinImpr = 1000.0
	// maxAdGroupsPerCampaign is the ad group count above which a campaign is fragmented.
	maxAdGroupsPerCampaign = 50
)

// AdGroupAnalyzer checks keyword counts per ad group, single-keyword ad
// groups, non-converting spend, CTR, bids and campaign fragmentation.
type AdGroupAnalyzer struct{}

// NewAdGroupAnalyzer creates a new AdGroupAnalyzer.
func NewAdGroupAnalyzer() *AdGroupAnalyzer {
	return &AdGroupAnalyzer{}
}

// Name returns the tool name.
func (a *AdGroupAnalyzer) Name() string {
	return "analyze_ad_group_structure"
}

// Description returns the tool description.
func (a *AdGroupAnalyzer) Description() string {
	return "Analyzes ad group structural health: keyword count per ad group (flags groups with 20+ keywords), " +
		"single-keyword ad groups (SKAGs), ad groups with high spend and zero conversions, " +
		"and campaigns with an excessive number of ad groups."
}

// Params returns the accepted parameters.
func (a *AdGroupAnalyzer) Params() []Param {
	return []Param{
		dataParam(classify.TypeAdGroups),
		{
			Name:        "keywords_path",
			Type:        "string",
			Description: "Path to keywords.csv",
			File:        classify.TypeKeywords,
		},
	}
}

func adGroupWasteThreshold(avgCPA float64) float64 {
	if avgCPA > 0 {
		return math.Max(avgCPA*adGroupWasteCPAMultiple, adGroupWasteFloor)
	}
	return adGroupWasteDefault
}

func adGroupKey(campaign, adGroup string) string {
	return campaign + "|" + adGroup
}

// activeKeywordCounts counts active keywords per campaign and ad group in
// a keywords export. A missing or unusable export yields no counts.
func activeKeywordCounts(path string) map[string]int {
	out := make(map[string]int)
	if path == "" {
		return out
	}
	t, err := table.Load(path)
	if err != nil {
		return out
	}
	f := newFrame(t)
	agCol := f.col("Ad group")
	campCol := f.col("Campaign")
	statusCol := f.col("Status", "Keyword status")
	if !agCol.Present() || !campCol.Present() {
		return out
	}
	active := f.filter(func(i int) bool {
		return !containsAny(f.lower(i, statusCol), "removed", "paused")
	})
	for _, g := range f.groupBy(active, campCol, agCol) {
		out[adGroupKey(g.keys[0], g.keys[1])] = len(g.rows)
	}
	return out
}

// Analyze runs the structure checks.
func (a *AdGroupAnalyzer) Analyze(ctx context.Context, in Input) (*model.AnalysisResult, error) {
	t, err := table.Load(in.DataPath)
	if err != nil {
		return nil, err
	}
	f := newFrame(t)

	agCol := f.col("Ad group")
	if !agCol.Present() {
		return nil, &MissingColumnError{Column: "Ad group", File: classify.TypeAdGroups.FileName()}
	}
	campaignCol := f.col("Campaign")
	statusCol := f.col("Ad group status", "Status")
	maxCPCCol := f.col("Default max. CPC", "Default Max CPC", "Max CPC")
	cost := f.currency(f.col("Cost", "Spend"))
	conv := f.number(f.col("Conversions", "Conv."))
	ctr := f.percent(f.col("CTR"))
	impr := f.number(f.col("Impressions", "Impr."))
	maxCPC := f.currency(maxCPCCol)

	avgCPA := safeDivide(cost.sum(), conv.sum())
	threshold := adGroupWasteThreshold(avgCPA)
	kwCounts := activeKeywordCounts(in.KeywordsPath)

	res := model.NewAnalysisResult()
	tooMany, skags, wasted := 0, 0, 0

	for i := 0; i < f.len(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ag := f.label(i, agCol, "Unknown")
		camp := f.text(i, campaignCol)
		rowCost := cost.at(i)
		rowImpr := impr.at(i)
		rowCTR := ctr.at(i)
		base := model.Finding{Campaign: camp, AdGroup: ag}

		n, counted := kwCounts[adGroupKey(camp, ag)]
		if counted && n > maxKeywordsPerAdGroup {
			tooMany++
			fd := base
			fd.Severity = model.SeverityMedium
			fd.Area = "Ad Group Structure"
			fd.Detail = fmt.Sprintf("Ad group has %d keywords. Too many keywords hurt thematic relevance and Quality Score.", n)
			fd.Recommendation = "Split into smaller, tightly themed ad groups (aim for 5-15 keywords per ad group)."
			res.AddFinding(fd)
		}
		if counted && n == 1 {
			skags++
			fd := base
			fd.Severity = model.SeverityLow
			fd.Area = "Ad Group Structure"
			fd.Detail = "Single-keyword ad group (SKAG). While precise, these create management overhead."
			fd.Recommendation = "Consider consolidating closely related SKAGs. Ensure at least 2-3 ads are running per group."
			res.AddFinding(fd)
		}

		if rowCost > threshold && conv.at(i) == 0 {
			wasted++
			fd := base
			fd.Severity = model.SeverityHigh
			fd.Area = "Wasted Ad Group Spend"
			fd.CostWasted = round(rowCost, 2)
			fd.Detail = fmt.Sprintf("Spent %s with 0 conversions.", money(rowCost))
			fd.Recommendation = "Pause or restructure this ad group. Review keywords, ads, and landing page relevance."
			res.AddFinding(fd)
		}

		if rowCTR > 0 && rowCTR < adGroupLowCTR && rowImpr > adGroupLowCTRMinImpr {
			fd := base
			fd.Severity = model.SeverityMedium
			fd.Area = "CTR"
			fd.Detail = fmt.Sprintf("CTR of %s with %s impressions, a very low relevance signal.", pct(rowCTR, 2), count(rowImpr))
			fd.Recommendation = "Rewrite ad copy to be more specific to this ad group's keyword theme."
			res.AddFinding(fd)
		}

		if maxCPC.has(i) && maxCPC.at(i) == 0 && strings.Contains(f.lower(i, statusCol), "enabled") {
			fd := base
			fd.Severity = model.SeverityMedium
			fd.Area = "Bidding"
			fd.Detail = "Default Max CPC is $0 but ad group is enabled. Likely relying on campaign-level bidding."
			fd.Recommendation = "Set an explicit Max CPC or confirm Smart Bidding strategy is configured at campaign level."
			res.AddFinding(fd)
		}
	}

	if campaignCol.Present() {
		for _, g := range f.groupBy(f.allRows(), campaignCol) {
			n := len(f.groupBy(g.rows, agCol))
			if n > maxAdGroupsPerCampaign {
				res.AddFinding(model.Finding{
					Severity:       model.SeverityLow,
					Area:           "Account Structure",
					Campaign:       g.keys[0],
					Detail:         fmt.Sprintf("Campaign has %d ad groups. This level of fragmentation can be hard to manage.", n),
					Recommendation: "Consider consolidating similar ad groups. Aim for 10-30 ad groups per campaign.",
				})
			}
		}
	}

	res.Metrics = model.Metrics{
		"total_ad_groups":             f.len(),
		"ad_groups_too_many_keywords": tooMany,
		"single_keyword_ad_groups":    skags,
		"zero_conversion_ad_groups":   wasted,
	}
	res.Summary = fmt.Sprintf("Analyzed %d ad groups. Ad groups with 20+ keywords: %d. SKAGs: %d. "+
		"Zero-conversion wasted spend: %d ad groups. Found %d issues.",
		f.len(), tooMany, skags, wasted, len(res.Findings))
	return res, nil
}
