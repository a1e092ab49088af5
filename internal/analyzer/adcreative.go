package analyzer

import (
	"context"
	"fmt"
	"strings"

	"github.com/nao1215/adsaudit/internal/classify"
	"github.com/nao1215/adsaudit/internal/model"
	"github.com/nao1215/adsaudit/internal/table"
)

// Ad creative thresholds.
const (
	// minActiveAds is the number of active ads needed for split testing.
	minActiveAds = 2
	// peerCTRRatio flags ads whose CTR falls below this share of the group average.
	peerCTRRatio = 0.5
	// peerCTRMinImpr requires enough impressions for the CTR comparison.
	peerCTRMinImpr = 100.0
	// peerCostMultiple flags non-converting ads spending well above their peers.
	peerCostMultiple = 2.0
)

// AdCreativeAnalyzer evaluates ad strength, split-test coverage,
// underperformers relative to their ad group and landing page domains.
type AdCreativeAnalyzer struct{}

// NewAdCreativeAnalyzer creates a new AdCreativeAnalyzer.
func NewAdCreativeAnalyzer() *AdCreativeAnalyzer {
	return &AdCreativeAnalyzer{}
}

// Name returns the tool name.
func (a *AdCreativeAnalyzer) Name() string {
	return "analyze_ad_creatives"
}

// Description returns the tool description.
func (a *AdCreativeAnalyzer) Description() string {
	return "Evaluates ad creative quality: ad strength ratings (Poor/Average/Good/Excellent), " +
		"A/B test coverage (flags ad groups with only 1 active ad), underperforming ads vs " +
		"their ad group peers, and URL consistency across ads in the same ad group."
}

// Params returns the accepted parameters.
func (a *AdCreativeAnalyzer) Params() []Param {
	return []Param{dataParam(classify.TypeAds)}
}

// urlDomain returns the host part of a landing page URL, or the first
// path segment when the URL has no scheme.
func urlDomain(u string) string {
	if strings.Contains(u, "//") {
		parts := strings.Split(u, "/")
		if len(parts) > 2 {
			return parts[2]
		}
		return ""
	}
	return strings.Split(u, "/")[0]
}

// Analyze runs the creative checks.
func (a *AdCreativeAnalyzer) Analyze(ctx context.Context, in Input) (*model.AnalysisResult, error) {
	t, err := table.Load(in.DataPath)
	if err != nil {
		return nil, err
	}
	f := newFrame(t)

	adGroupCol := f.col("Ad group")
	if !adGroupCol.Present() {
		return nil, &MissingColumnError{Column: "Ad group", File: classify.TypeAds.FileName()}
	}
	campaignCol := f.col("Campaign")
	statusCol := f.col("Status", "Ad status")
	strengthCol := f.col("Ad strength", "Strength")
	urlCol := f.col("Final URL", "Final Url", "Landing page")
	cost := f.currency(f.col("Cost", "Spend"))
	conv := f.number(f.col("Conversions", "Conv."))
	ctr := f.percent(f.col("CTR"))
	impr := f.number(f.col("Impressions", "Impr."))

	active := f.allRows()
	if statusCol.Present() {
		active = f.filter(func(i int) bool {
			return containsAny(f.lower(i, statusCol), "enabled", "active")
		})
	}

	res := model.NewAnalysisResult()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	strength := make(map[string]int)
	if strengthCol.Present() {
		for _, i := range active {
			s := f.text(i, strengthCol)
			if s != "" {
				strength[s]++
			}
		}
		for _, i := range active {
			if !containsAny(f.lower(i, strengthCol), "poor", "average") {
				continue
			}
			res.AddFinding(model.Finding{
				Severity: model.SeverityMedium,
				Area:     "Ad Strength",
				AdGroup:  f.label(i, adGroupCol, "Unknown"),
				Campaign: f.text(i, campaignCol),
				Detail: fmt.Sprintf("Ad strength is '%s'. Google limits impression share for low-strength ads.",
					f.label(i, strengthCol, "Unknown")),
				Recommendation: "Add more unique headlines, pin fewer assets, improve headline diversity.",
			})
		}
	}

	if campaignCol.Present() {
		groups := f.groupBy(active, campaignCol, adGroupCol)

		for _, g := range groups {
			if len(g.rows) < minActiveAds {
				res.AddFinding(model.Finding{
					Severity:       model.SeverityHigh,
					Area:           "A/B Testing",
					Campaign:       g.keys[0],
					AdGroup:        g.keys[1],
					Detail:         "Ad group has only 1 active ad. No split testing in progress.",
					Recommendation: "Add a second RSA with different headline angles to begin testing.",
				})
			}
		}

		if ctr.present {
			for _, g := range groups {
				if len(g.rows) < minActiveAds {
					continue
				}
				res.Findings = append(res.Findings, peerFindings(g, ctr, cost, conv, impr)...)
			}
		}

		if urlCol.Present() {
			for _, g := range groups {
				domains := distinctDomains(f, g.rows, urlCol)
				if len(domains) > 1 {
					res.AddFinding(model.Finding{
						Severity: model.SeverityLow,
						Area:     "URL Inconsistency",
						Campaign: g.keys[0],
						AdGroup:  g.keys[1],
						Detail: fmt.Sprintf("Ads in this group point to different domains: [%s]. May indicate a configuration error.",
							strings.Join(domains, ", ")),
						Recommendation: "Verify all ads point to the correct domain for this ad group.",
					})
				}
			}
		}
	}

	res.SetExtra("ad_strength_breakdown", strength)
	res.Metrics = model.Metrics{
		"total_ads":         f.len(),
		"active_ads":        len(active),
		"total_cost":        round(cost.sum(), 2),
		"total_conversions": round(conv.sum(), 1),
	}
	res.Summary = fmt.Sprintf("Analyzed %d ads (%d active). Ad strength breakdown: %s. Found %d issues.",
		f.len(), len(active), formatCounts(strength), len(res.Findings))
	return res, nil
}

// peerFindings compares each ad against the averages of its ad group.
func peerFindings(g group, ctr, cost, conv, impr series) []model.Finding {
	var out []model.Finding
	avgCTR := ctr.meanOf(g.rows)
	avgCost := cost.meanOf(g.rows)
	for _, i := range g.rows {
		rowCTR := ctr.at(i)
		rowCost := cost.at(i)
		if avgCTR > 0 && rowCTR < avgCTR*peerCTRRatio && impr.at(i) > peerCTRMinImpr {
			out = append(out, model.Finding{
				Severity: model.SeverityMedium,
				Area:     "Underperforming Ad",
				Campaign: g.keys[0],
				AdGroup:  g.keys[1],
				Detail: fmt.Sprintf("Ad CTR %s is well below ad group average of %s.",
					pct(rowCTR, 2), pct(avgCTR, 2)),
				Recommendation: "Pause this ad and replace with a new variant testing a different value proposition.",
			})
		}
		if avgCost > 0 && rowCost > avgCost*peerCostMultiple && conv.at(i) == 0 {
			out = append(out, model.Finding{
				Severity:       model.SeverityMedium,
				Area:           "Expensive Non-Converting Ad",
				Campaign:       g.keys[0],
				AdGroup:        g.keys[1],
				CostWasted:     round(rowCost, 2),
				Detail:         fmt.Sprintf("Ad has spent %s (2x+ the group average) with 0 conversions.", money(rowCost)),
				Recommendation: "Pause this ad. Its messaging is not converting, try a different angle.",
			})
		}
	}
	return out
}

// distinctDomains returns the landing page domains of rows in first-seen order.
func distinctDomains(f frame, rows []int, urlCol table.Column) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, i := range rows {
		u := f.text(i, urlCol)
		if u == "" {
			continue
		}
		d := urlDomain(u)
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	return out
}
