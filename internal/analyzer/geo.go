package analyzer

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/nao1215/adsaudit/internal/classify"
	"github.com/nao1215/adsaudit/internal/model"
	"github.com/nao1215/adsaudit/internal/table"
)

// Geographic thresholds.
const (
	// geoWasteShare flags non-converting locations above this share of spend.
	geoWasteShare = 0.05
	// geoCPAMultiple flags locations far above account CPA.
	geoCPAMultiple = 2.0
	// geoRateMultiple flags locations converting well above average.
	geoRateMultiple = 1.5
	// geoOpportunityMinCost ignores high performers with trivial spend.
	geoOpportunityMinCost = 30.0
	// geoSignificantCost is the minimum spend for the worst-CPA ranking.
	geoSignificantCost = 20.0
	// geoRankingSize is the length of the best and worst location lists.
	geoRankingSize = 5
)

// GeoAnalyzer aggregates performance by the most specific location column
// and finds exclusion and bid-up candidates.
type GeoAnalyzer struct{}

// NewGeoAnalyzer creates a new GeoAnalyzer.
func NewGeoAnalyzer() *GeoAnalyzer {
	return &GeoAnalyzer{}
}

// Name returns the tool name.
func (a *GeoAnalyzer) Name() string {
	return "analyze_geographic_performance"
}

// Description returns the tool description.
func (a *GeoAnalyzer) Description() string {
	return "Analyzes performance by geographic location (country, region, city). Identifies top-performing " +
		"locations for positive bid adjustments and high-spend zero-conversion locations to exclude. " +
		"Calculates estimated savings from exclusions."
}

// Params returns the accepted parameters.
func (a *GeoAnalyzer) Params() []Param {
	return []Param{dataParam(classify.TypeGeographic)}
}

// LocationRow is one location in a ranking.
type LocationRow struct {
	Location  string  `json:"location"`
	TotalCost float64 `json:"total_cost"`
	TotalConv float64 `json:"total_conv"`
	CPA       float64 `json:"cpa"`
}

// ExclusionCandidate is a location spending without converting.
type ExclusionCandidate struct {
	Location   string  `json:"location"`
	CostWasted float64 `json:"cost_wasted"`
	CostShare  string  `json:"cost_share"`
}

// BidUpCandidate is a location converting well above average.
type BidUpCandidate struct {
	Location       string  `json:"location"`
	ConvRate       string  `json:"conv_rate"`
	CPA            float64 `json:"cpa"`
	RecommendedAdj string  `json:"recommended_adj"`
}

type locationTotals struct {
	name               string
	cost, conv, clicks float64
}

func (l locationTotals) cpa() float64 {
	return safeDivide(l.cost, l.conv)
}

func (l locationTotals) convRate() float64 {
	return safeDivide(l.conv, l.clicks)
}

func (l locationTotals) row() LocationRow {
	return LocationRow{
		Location:  l.name,
		TotalCost: round(l.cost, 2),
		TotalConv: round(l.conv, 1),
		CPA:       round(l.cpa(), 2),
	}
}

// rankLocations returns up to n locations ordered by key, highest first.
// Ties keep location order.
func rankLocations(locs []locationTotals, n int, key func(locationTotals) float64) []LocationRow {
	sorted := make([]locationTotals, len(locs))
	copy(sorted, locs)
	sort.SliceStable(sorted, func(a, b int) bool {
		return key(sorted[a]) > key(sorted[b])
	})
	out := make([]LocationRow, 0, n)
	for _, l := range sorted[:min(n, len(sorted))] {
		out = append(out, l.row())
	}
	return out
}

// Analyze runs the geographic checks.
func (a *GeoAnalyzer) Analyze(ctx context.Context, in Input) (*model.AnalysisResult, error) {
	t, err := table.Load(in.DataPath)
	if err != nil {
		return nil, err
	}
	f := newFrame(t)

	locationCol := f.col("City")
	if !locationCol.Present() {
		locationCol = f.col("Region", "State")
	}
	if !locationCol.Present() {
		locationCol = f.col("Country/Territory", "Country", "Country territory")
	}
	if !locationCol.Present() {
		return nil, &MissingColumnError{
			Column:  "Location",
			File:    classify.TypeGeographic.FileName(),
			Message: "Could not find a location column (City/Region/Country) in geographic.csv",
		}
	}
	cost := f.currency(f.col("Cost", "Spend"))
	conv := f.number(f.col("Conversions", "Conv."))
	clicks := f.number(f.col("Clicks"))
	convRate := f.percent(f.col("Conv. rate", "Conversion rate"))

	totalCost := cost.sum()
	totalConv := conv.sum()
	avgCPA := safeDivide(totalCost, totalConv)
	avgRate := safeDivide(totalConv, clicks.sum())
	if convRate.present {
		avgRate = convRate.mean()
	}

	groups := f.groupBy(f.allRows(), locationCol)
	locs := make([]locationTotals, 0, len(groups))
	for _, g := range groups {
		locs = append(locs, locationTotals{
			name:   g.keys[0],
			cost:   cost.sumOf(g.rows),
			conv:   conv.sumOf(g.rows),
			clicks: clicks.sumOf(g.rows),
		})
	}

	minCost := geoSignificantCost
	if avgCPA > 0 {
		minCost = math.Max(avgCPA*geoCPAMultiple, geoSignificantCost)
	}
	significant := make([]locationTotals, 0, len(locs))
	for _, l := range locs {
		if l.cost > minCost {
			significant = append(significant, l)
		}
	}
	top := rankLocations(locs, geoRankingSize, func(l locationTotals) float64 { return l.conv })
	worst := rankLocations(significant, geoRankingSize, locationTotals.cpa)

	res := model.NewAnalysisResult()
	exclusions := make([]ExclusionCandidate, 0)
	bidUps := make([]BidUpCandidate, 0)
	totalWaste := 0.0

	for _, l := range locs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cpa := l.cpa()
		rate := l.convRate()
		share := safeDivide(l.cost, totalCost)

		switch {
		case share > geoWasteShare && l.conv == 0:
			wasted := round(l.cost, 2)
			totalWaste += wasted
			exclusions = append(exclusions, ExclusionCandidate{
				Location:   l.name,
				CostWasted: wasted,
				CostShare:  pct(share, 1),
			})
			res.AddFinding(model.Finding{
				Severity:   model.SeverityHigh,
				Area:       "Geographic Waste",
				Location:   l.name,
				CostWasted: wasted,
				Detail: fmt.Sprintf("%s accounts for %s of spend (%s) with 0 conversions.",
					l.name, pct(share, 1), money(l.cost)),
				Recommendation: fmt.Sprintf("Exclude location '%s' from targeting. Estimated monthly savings: %s.",
					l.name, money(l.cost)),
			})
		case avgCPA > 0 && cpa > avgCPA*geoCPAMultiple && l.cost > avgCPA:
			res.AddFinding(model.Finding{
				Severity: model.SeverityMedium,
				Area:     "Geographic CPA",
				Location: l.name,
				Detail: fmt.Sprintf("%s CPA %s is %.1fx account average %s.",
					l.name, money(cpa), cpa/avgCPA, money(avgCPA)),
				Recommendation: fmt.Sprintf("Apply a negative bid adjustment for '%s' or exclude if no strategic reason to be there.",
					l.name),
			})
		case avgRate > 0 && rate > avgRate*geoRateMultiple && l.cost > geoOpportunityMinCost:
			adj := signedPct((rate/avgRate - 1) * 100)
			bidUps = append(bidUps, BidUpCandidate{
				Location:       l.name,
				ConvRate:       pct(rate, 2),
				CPA:            round(cpa, 2),
				RecommendedAdj: adj,
			})
			res.AddFinding(model.Finding{
				Severity: model.SeverityMedium,
				Area:     "Geographic Opportunity",
				Location: l.name,
				Detail: fmt.Sprintf("%s conv. rate %s is %.1fx the average. Underinvesting.",
					l.name, pct(rate, 2), rate/avgRate),
				Recommendation: fmt.Sprintf("Apply a %s bid adjustment for '%s'.", adj, l.name),
			})
		}
	}

	res.SetExtra("top_locations_by_conversions", top)
	res.SetExtra("worst_locations_by_cpa", worst)
	res.SetExtra("exclusion_candidates", exclusions)
	res.SetExtra("bid_up_candidates", bidUps)
	res.Metrics = model.Metrics{
		"total_locations":                  len(locs),
		"account_avg_cpa":                  round(avgCPA, 2),
		"total_wasted_spend_on_exclusions": round(totalWaste, 2),
	}
	res.Summary = fmt.Sprintf("Analyzed geographic performance across %d locations. Total spend: %s. "+
		"Exclusion candidates: %d (%s potential savings). Bid-up opportunities: %d. Found %d issues.",
		len(locs), money(totalCost), len(exclusions), money(totalWaste), len(bidUps), len(res.Findings))
	return res, nil
}
