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

// Keyword thresholds.
const (
	// poorQualityScore is the highest score counted as poor.
	poorQualityScore = 3.0
	// averageQualityScore is the highest score counted as average.
	averageQualityScore = 6.0
	// poorQualityMinCost ignores low-QS keywords with trivial spend.
	poorQualityMinCost = 20.0
	// belowAverageMinCost ignores below-average ratings with trivial spend.
	belowAverageMinCost = 10.0
	// broadMatchMaxShare is the largest acceptable broad match share.
	broadMatchMaxShare = 0.60
	// keywordWasteCPAMultiple sizes the waste threshold from account CPA.
	keywordWasteCPAMultiple = 2.0
	// keywordWasteFloor is the minimum waste threshold when CPA is known.
	keywordWasteFloor = 30.0
	// keywordWasteDefault is the waste threshold when CPA is unknown.
	keywordWasteDefault = 50.0
	// bidGapMultiple flags first-page estimates far above max CPC.
	bidGapMultiple = 1.5
)

// KeywordAnalyzer checks Quality Score, match type balance, non-converting
// spend, duplicates across ad groups and first-page bid gaps.
type KeywordAnalyzer struct{}

// NewKeywordAnalyzer creates a new KeywordAnalyzer.
func NewKeywordAnalyzer() *KeywordAnalyzer {
	return &KeywordAnalyzer{}
}

// Name returns the tool name.
func (a *KeywordAnalyzer) Name() string {
	return "analyze_keywords"
}

// Description returns the tool description.
func (a *KeywordAnalyzer) Description() string {
	return "Deep keyword analysis: Quality Score distribution (poor/average/good), match type balance, " +
		"expensive non-converting keywords, duplicate keywords across ad groups, ad relevance issues, " +
		"landing page experience issues, and bid gaps vs first-page estimates."
}

// Params returns the accepted parameters.
func (a *KeywordAnalyzer) Params() []Param {
	return []Param{dataParam(classify.TypeKeywords)}
}

// QualityScoreBreakdown buckets keywords by Quality Score.
type QualityScoreBreakdown struct {
	Poor    int     `json:"poor_1_3"`
	Average int     `json:"average_4_6"`
	Good    int     `json:"good_7_10"`
	Mean    float64 `json:"avg_quality_score"`
}

// keywordWasteThreshold is the spend above which a non-converting keyword
// is reported as wasted.
func keywordWasteThreshold(avgCPA float64) float64 {
	if avgCPA > 0 {
		return math.Max(avgCPA*keywordWasteCPAMultiple, keywordWasteFloor)
	}
	return keywordWasteDefault
}

// Analyze runs the keyword checks.
func (a *KeywordAnalyzer) Analyze(ctx context.Context, in Input) (*model.AnalysisResult, error) {
	t, err := table.Load(in.DataPath)
	if err != nil {
		return nil, err
	}
	f := newFrame(t)

	nameCol := f.col("Keyword", "Keyword text")
	if !nameCol.Present() {
		return nil, &MissingColumnError{
			Column:  "Keyword",
			File:    classify.TypeKeywords.FileName(),
			Message: "Could not find Keyword column in keywords.csv",
		}
	}
	campaignCol := f.col("Campaign")
	adGroupCol := f.col("Ad group")
	matchCol := f.col("Match type")
	adRelCol := f.col("Ad relevance")
	lpCol := f.col("Landing page exp.", "Landing page experience")
	statusCol := f.col("Status", "Keyword status")

	cost := f.currency(f.col("Cost", "Spend"))
	conv := f.number(f.col("Conversions", "Conv."))
	ctr := f.percent(f.col("CTR"))
	qs := f.number(f.col("Quality Score", "Qual. score"))
	maxCPC := f.currency(f.col("Max CPC", "Max. CPC"))
	fpCPC := f.currency(f.col("First page CPC est.", "First page CPC"))

	totalCost := cost.sum()
	totalConv := conv.sum()
	avgCPA := safeDivide(totalCost, totalConv)
	avgCTR := ctr.mean()

	res := model.NewAnalysisResult()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	keywordFinding := func(i int) model.Finding {
		return model.Finding{
			Keyword:  f.label(i, nameCol, "Unknown"),
			Campaign: f.text(i, campaignCol),
			AdGroup:  f.text(i, adGroupCol),
		}
	}

	var breakdown any = map[string]any{}
	avgQSText := "N/A"
	poor := 0
	if qs.present {
		b := QualityScoreBreakdown{Mean: round(qs.mean(), 1)}
		for i := 0; i < f.len(); i++ {
			if !qs.has(i) {
				continue
			}
			switch v := qs.at(i); {
			case v <= poorQualityScore:
				b.Poor++
			case v <= averageQualityScore:
				b.Average++
			default:
				b.Good++
			}
		}
		breakdown = b
		poor = b.Poor
		avgQSText = fmt.Sprintf("%.1f", b.Mean)

		for i := 0; i < f.len(); i++ {
			if !qs.has(i) || qs.at(i) > poorQualityScore {
				continue
			}
			if c := cost.at(i); c > poorQualityMinCost {
				fd := keywordFinding(i)
				fd.Severity = model.SeverityHigh
				fd.Area = "Quality Score"
				fd.Detail = fmt.Sprintf("Quality Score %.0f/10 with %s spend. Low QS inflates your CPC by 2-4x.", qs.at(i), money(c))
				fd.Recommendation = "Improve ad relevance or landing page experience. Consider pausing if QS stays below 4."
				res.AddFinding(fd)
			}
		}
	}

	if adRelCol.Present() {
		for i := 0; i < f.len(); i++ {
			if strings.Contains(f.lower(i, adRelCol), "below") && cost.at(i) > belowAverageMinCost {
				fd := keywordFinding(i)
				fd.Severity = model.SeverityMedium
				fd.Area = "Ad Relevance"
				fd.Detail = "Ad relevance is 'Below average'. Your ads don't closely match this keyword."
				fd.Recommendation = "Create more specific ads or a dedicated ad group for this keyword theme."
				res.AddFinding(fd)
			}
		}
	}

	if lpCol.Present() {
		for i := 0; i < f.len(); i++ {
			if strings.Contains(f.lower(i, lpCol), "below") && cost.at(i) > belowAverageMinCost {
				fd := keywordFinding(i)
				fd.Severity = model.SeverityMedium
				fd.Area = "Landing Page Experience"
				fd.Detail = "Landing page experience is 'Below average'. Google sees this page as irrelevant or slow."
				fd.Recommendation = "Align landing page content with keyword intent or improve page speed."
				res.AddFinding(fd)
			}
		}
	}

	matchSummary := make(map[string]int)
	if matchCol.Present() {
		total, broad, exact := 0, 0, 0
		for i := 0; i < f.len(); i++ {
			if containsAny(f.lower(i, statusCol), "removed", "paused") {
				continue
			}
			m := f.text(i, matchCol)
			if m == "" {
				continue
			}
			matchSummary[m]++
			total++
			lm := strings.ToLower(m)
			if strings.Contains(lm, "broad") {
				broad++
			}
			if strings.Contains(lm, "exact") {
				exact++
			}
		}

		if total > 0 && float64(broad)/float64(total) > broadMatchMaxShare {
			res.AddFinding(model.Finding{
				Severity: model.SeverityMedium,
				Area:     "Match Type Balance",
				Keyword:  "All keywords",
				Detail: fmt.Sprintf("%d/%d keywords (%s) are Broad Match. High risk of irrelevant traffic.",
					broad, total, pct(float64(broad)/float64(total), 0)),
				Recommendation: "Add more Exact and Phrase match keywords. Set negative keywords to control broad match.",
			})
		}
		if exact == 0 {
			res.AddFinding(model.Finding{
				Severity:       model.SeverityMedium,
				Area:           "Match Type Balance",
				Keyword:        "All keywords",
				Detail:         "No Exact Match keywords found. Missing precision targeting.",
				Recommendation: "Add exact match versions of your top-performing keywords.",
			})
		}
	}

	if cost.present && conv.present {
		threshold := keywordWasteThreshold(avgCPA)
		for i := 0; i < f.len(); i++ {
			if c := cost.at(i); c > threshold && conv.at(i) == 0 {
				fd := keywordFinding(i)
				fd.Severity = model.SeverityHigh
				fd.Area = "Wasted Spend"
				fd.CostWasted = round(c, 2)
				fd.Detail = fmt.Sprintf("Spent %s with 0 conversions.", money(c))
				fd.Recommendation = "Pause keyword or reduce max CPC significantly. Add as negative keyword in other campaigns."
				res.AddFinding(fd)
			}
		}
	}

	if campaignCol.Present() && adGroupCol.Present() {
		for _, d := range duplicateKeywords(f, nameCol, adGroupCol) {
			res.AddFinding(model.Finding{
				Severity:       model.SeverityLow,
				Area:           "Duplicate Keywords",
				Keyword:        d.keyword,
				Detail:         fmt.Sprintf("Keyword appears in %d different ad groups. Can cause self-competition and inflated CPCs.", d.groups),
				Recommendation: "Consolidate to one ad group or use negative keywords to prevent cannibalization.",
			})
		}
	}

	if maxCPC.present && fpCPC.present {
		for i := 0; i < f.len(); i++ {
			if !maxCPC.has(i) || !fpCPC.has(i) {
				continue
			}
			mx, fp := maxCPC.at(i), fpCPC.at(i)
			if fp > mx*bidGapMultiple {
				res.AddFinding(model.Finding{
					Severity: model.SeverityLow,
					Area:     "Bid Gap",
					Keyword:  f.label(i, nameCol, "Unknown"),
					Detail: fmt.Sprintf("Max CPC %s is well below first-page estimate of %s. Likely not showing on page 1.",
						money(mx), money(fp)),
					Recommendation: fmt.Sprintf("Increase Max CPC to at least %s to compete for page 1 positions.", money(fp)),
				})
			}
		}
	}

	res.SetExtra("quality_score_breakdown", breakdown)
	res.SetExtra("match_type_distribution", matchSummary)
	res.Metrics = model.Metrics{
		"total_keywords":    f.len(),
		"total_cost":        round(totalCost, 2),
		"total_conversions": round(totalConv, 1),
		"avg_cpa":           round(avgCPA, 2),
		"avg_ctr":           round(avgCTR, 4),
	}
	res.Summary = fmt.Sprintf("Analyzed %d keywords. Total spend: %s. Avg Quality Score: %s. "+
		"Poor QS (1-3): %d keywords. Found %d issues.",
		f.len(), money(totalCost), avgQSText, poor, len(res.Findings))
	return res, nil
}

type duplicateKeyword struct {
	keyword string
	groups  int
}

// duplicateKeywords returns normalized keyword texts that appear in more
// than one distinct ad group, sorted by keyword.
func duplicateKeywords(f frame, nameCol, adGroupCol table.Column) []duplicateKeyword {
	groups := make(map[string]map[string]struct{})
	for i := 0; i < f.len(); i++ {
		kw := f.lower(i, nameCol)
		ag := f.text(i, adGroupCol)
		if ag == "" {
			continue
		}
		if groups[kw] == nil {
			groups[kw] = make(map[string]struct{})
		}
		groups[kw][ag] = struct{}{}
	}

	out := make([]duplicateKeyword, 0)
	for kw, ags := range groups {
		if len(ags) > 1 {
			out = append(out, duplicateKeyword{keyword: kw, groups: len(ags)})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].keyword < out[j].keyword
	})
	return out
}
