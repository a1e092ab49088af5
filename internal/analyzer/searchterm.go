package analyzer

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/nao1215/adsaudit/internal/classify"
	"github.com/nao1215/adsaudit/internal/model"
	"github.com/nao1215/adsaudit/internal/table"
)

// Search term thresholds.
const (
	// harvestMinConversions is the conversions a term needs to be harvested.
	harvestMinConversions = 2.0
	// harvestMinClicks is the clicks a high-CTR term needs to be suggested.
	harvestMinClicks = 10.0
	// harvestCTRMultiple is how far above the average CTR a term must be.
	harvestCTRMultiple = 1.5
	// termWasteCPAMultiple sizes the negative keyword threshold from account CPA.
	termWasteCPAMultiple = 1.5
	// termWasteFloor is the minimum negative keyword threshold when CPA is known.
	termWasteFloor = 20.0
	// termWasteDefault is the negative keyword threshold when CPA is unknown.
	termWasteDefault = 30.0
	// irrelevantMinImpr requires enough impressions to judge relevance.
	irrelevantMinImpr = 500.0
	// irrelevantMaxCTR is the CTR under which a term is considered irrelevant.
	irrelevantMaxCTR = 0.002

	maxHarvestCandidates  = 20
	maxNegativeCandidates = 30
	maxNegativeThemes     = 10
)

// SearchTermAnalyzer finds search terms to harvest as exact match
// keywords, terms draining budget that should become negatives, and the
// common themes among those negatives.
type SearchTermAnalyzer struct{}

// NewSearchTermAnalyzer creates a new SearchTermAnalyzer.
func NewSearchTermAnalyzer() *SearchTermAnalyzer {
	return &SearchTermAnalyzer{}
}

// Name returns the tool name.
func (a *SearchTermAnalyzer) Name() string {
	return "analyze_search_terms"
}

// Description returns the tool description.
func (a *SearchTermAnalyzer) Description() string {
	return "Analyzes search term reports to find: (1) high-performing search terms to harvest as exact match " +
		"keywords, (2) irrelevant search terms draining budget that should become negative keywords, " +
		"(3) common themes for negative keyword lists. Quantifies wasted spend."
}

// Params returns the accepted parameters.
func (a *SearchTermAnalyzer) Params() []Param {
	return []Param{
		dataParam(classify.TypeSearchTerms),
		{
			Name:        "keywords_path",
			Type:        "string",
			Description: "Path to keywords.csv for cross-referencing",
			File:        classify.TypeKeywords,
		},
	}
}

// HarvestCandidate is a search term worth adding as a keyword.
type HarvestCandidate struct {
	SearchTerm     string  `json:"search_term"`
	Clicks         int     `json:"clicks"`
	Conversions    float64 `json:"conversions"`
	Cost           float64 `json:"cost"`
	Recommendation string  `json:"recommendation"`
	Campaign       string  `json:"campaign"`
	AdGroup        string  `json:"ad_group"`
}

// NegativeCandidate is a search term worth adding as a negative keyword.
type NegativeCandidate struct {
	SearchTerm  string  `json:"search_term"`
	CostWasted  float64 `json:"cost_wasted"`
	Impressions int     `json:"impressions"`
	Campaign    string  `json:"campaign"`
}

// Theme is a first word shared by several negative candidates.
type Theme struct {
	Word      string `json:"word"`
	Frequency int    `json:"frequency"`
}

func termWasteThreshold(avgCPA float64) float64 {
	if avgCPA > 0 {
		return math.Max(avgCPA*termWasteCPAMultiple, termWasteFloor)
	}
	return termWasteDefault
}

// existingKeywords loads the normalized keyword texts of a keywords export.
// A missing or unusable export yields an empty set.
func existingKeywords(path string) map[string]struct{} {
	out := make(map[string]struct{})
	if path == "" {
		return out
	}
	t, err := table.Load(path)
	if err != nil {
		return out
	}
	f := newFrame(t)
	col := f.col("Keyword", "Keyword text")
	if !col.Present() {
		return out
	}
	for i := 0; i < f.len(); i++ {
		out[f.lower(i, col)] = struct{}{}
	}
	return out
}

// Analyze runs the search term checks.
func (a *SearchTermAnalyzer) Analyze(ctx context.Context, in Input) (*model.AnalysisResult, error) {
	t, err := table.Load(in.DataPath)
	if err != nil {
		return nil, err
	}
	f := newFrame(t)

	termCol := f.col("Search term")
	if !termCol.Present() {
		return nil, &MissingColumnError{Column: "Search term", File: classify.TypeSearchTerms.FileName()}
	}
	campaignCol := f.col("Campaign")
	adGroupCol := f.col("Ad group")
	addedCol := f.col("Added / Excluded", "Match type", "Added/Excluded")
	cost := f.currency(f.col("Cost", "Spend"))
	conv := f.number(f.col("Conversions", "Conv."))
	ctr := f.percent(f.col("CTR"))
	impr := f.number(f.col("Impressions", "Impr."))
	clicks := f.number(f.col("Clicks"))
	convRate := f.percent(f.col("Conv. rate", "Conversion rate"))

	totalCost := cost.sum()
	totalConv := conv.sum()
	avgCPA := safeDivide(totalCost, totalConv)
	avgCTR := ctr.mean()
	avgConvRate := convRate.mean()

	existing := existingKeywords(in.KeywordsPath)
	added := make(map[string]struct{})
	if addedCol.Present() {
		for i := 0; i < f.len(); i++ {
			if strings.Contains(f.lower(i, addedCol), "added") {
				added[f.lower(i, termCol)] = struct{}{}
			}
		}
	}

	res := model.NewAnalysisResult()
	harvest := make([]HarvestCandidate, 0)

	for i := 0; i < f.len(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		term := f.text(i, termCol)
		key := strings.ToLower(term)
		if _, ok := added[key]; ok {
			continue
		}
		if _, ok := existing[key]; ok {
			continue
		}
		rowConv := conv.at(i)
		rowClicks := clicks.at(i)
		candidate := HarvestCandidate{
			SearchTerm:  term,
			Clicks:      int(rowClicks),
			Conversions: rowConv,
			Cost:        round(cost.at(i), 2),
			Campaign:    f.text(i, campaignCol),
			AdGroup:     f.text(i, adGroupCol),
		}

		switch {
		case rowConv >= harvestMinConversions && (avgConvRate == 0 || convRate.at(i) > avgConvRate):
			candidate.Recommendation = "Add as Exact Match keyword"
			harvest = append(harvest, candidate)
			res.AddFinding(model.Finding{
				Severity:   model.SeverityHigh,
				Area:       "Keyword Opportunity",
				SearchTerm: term,
				Campaign:   candidate.Campaign,
				AdGroup:    candidate.AdGroup,
				Detail:     fmt.Sprintf("Search term '%s' has %.0f conversions but is NOT an exact match keyword.", term, rowConv),
				Recommendation: fmt.Sprintf("Add '[%s]' as Exact Match keyword in ad group: %s",
					term, f.label(i, adGroupCol, "Unknown")),
			})
		case rowClicks >= harvestMinClicks && avgCTR > 0 && ctr.at(i) > avgCTR*harvestCTRMultiple && rowConv == 0:
			candidate.Recommendation = "Consider adding as Exact Match keyword (high CTR, needs conversion tracking)"
			harvest = append(harvest, candidate)
		}
	}

	negatives := make([]NegativeCandidate, 0)
	threshold := termWasteThreshold(avgCPA)
	for i := 0; i < f.len(); i++ {
		if strings.Contains(f.lower(i, addedCol), "excluded") {
			continue
		}
		term := f.text(i, termCol)
		rowCost := cost.at(i)
		rowImpr := impr.at(i)
		rowCTR := ctr.at(i)

		if rowCost > threshold && conv.at(i) == 0 {
			negatives = append(negatives, NegativeCandidate{
				SearchTerm:  term,
				CostWasted:  round(rowCost, 2),
				Impressions: int(rowImpr),
				Campaign:    f.text(i, campaignCol),
			})
			res.AddFinding(model.Finding{
				Severity:       model.SeverityHigh,
				Area:           "Wasted Search Term Spend",
				SearchTerm:     term,
				Campaign:       f.text(i, campaignCol),
				CostWasted:     round(rowCost, 2),
				Detail:         fmt.Sprintf("Search term '%s' wasted %s with 0 conversions.", term, money(rowCost)),
				Recommendation: fmt.Sprintf("Add as negative keyword. Monthly savings estimate: %s.", money(rowCost)),
			})
		} else if rowImpr > irrelevantMinImpr && rowCTR < irrelevantMaxCTR {
			res.AddFinding(model.Finding{
				Severity:   model.SeverityLow,
				Area:       "Irrelevant Search Term",
				SearchTerm: term,
				Campaign:   f.text(i, campaignCol),
				Detail: fmt.Sprintf("Search term '%s' has %s impressions with only %s CTR, very low relevance.",
					term, count(rowImpr), pct(rowCTR, 2)),
				Recommendation: "Consider adding as negative keyword to improve CTR and Quality Score.",
			})
		}
	}

	wasted := 0.0
	for _, n := range negatives {
		wasted += n.CostWasted
	}
	wastePct := safeDivide(wasted, totalCost) * 100

	res.SetExtra("harvest_candidates", harvest[:min(len(harvest), maxHarvestCandidates)])
	res.SetExtra("negative_keyword_candidates", negatives[:min(len(negatives), maxNegativeCandidates)])
	res.SetExtra("top_negative_themes", negativeThemes(negatives))
	res.Metrics = model.Metrics{
		"total_search_terms": f.len(),
		"total_spend":        round(totalCost, 2),
		"wasted_spend":       round(wasted, 2),
		"waste_percentage":   round(wastePct, 1),
	}
	res.Summary = fmt.Sprintf("Analyzed %d search terms. Total spend: %s. "+
		"Wasted spend (0 conversions, over threshold): %s (%.1f%% of spend). "+
		"Harvest opportunities: %d. Negative keyword candidates: %d.",
		f.len(), money(totalCost), money(wasted), wastePct, len(harvest), len(negatives))
	return res, nil
}

// negativeThemes counts the first words of negative candidates and
// returns the most frequent ones. Ties keep first-seen order.
func negativeThemes(negatives []NegativeCandidate) []Theme {
	themes := make([]Theme, 0)
	index := make(map[string]int)
	for _, n := range negatives {
		words := strings.Fields(strings.ToLower(n.SearchTerm))
		if len(words) == 0 {
			continue
		}
		if j, ok := index[words[0]]; ok {
			themes[j].Frequency++
			continue
		}
		index[words[0]] = len(themes)
		themes = append(themes, Theme{Word: words[0], Frequency: 1})
	}
	sort.SliceStable(themes, func(i, j int) bool {
		return themes[i].Frequency > themes[j].Frequency
	})
	return themes[:min(len(themes), maxNegativeThemes)]
}
