package analyzer

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/nao1215/adsaudit/internal/classify"
	"github.com/nao1215/adsaudit/internal/model"
	"github.com/nao1215/adsaudit/internal/table"
)

// Extension coverage thresholds.
const (
	// minSitelinks is the number of active sitelinks an account should run.
	minSitelinks = 4
	// extensionMinImpr requires enough impressions for the CTR comparison.
	extensionMinImpr = 500.0
	// extensionCTRRatio flags extensions below this share of account CTR.
	extensionCTRRatio = 0.3
)

// expectedExtensions lists the extension types every account should run,
// in reporting order.
var expectedExtensions = []string{"Sitelink", "Callout", "Call", "Structured snippet", "Image", "Lead form"}

// highImpactExtensions are reported as HIGH when missing.
var highImpactExtensions = map[string]bool{"Sitelink": true, "Callout": true}

// ExtensionAnalyzer audits ad extension coverage by type and campaign,
// sitelink count, paused extensions and CTR underperformers.
type ExtensionAnalyzer struct{}

// NewExtensionAnalyzer creates a new ExtensionAnalyzer.
func NewExtensionAnalyzer() *ExtensionAnalyzer {
	return &ExtensionAnalyzer{}
}

// Name returns the tool name.
func (a *ExtensionAnalyzer) Name() string {
	return "analyze_extensions"
}

// Description returns the tool description.
func (a *ExtensionAnalyzer) Description() string {
	return "Audits ad extension coverage: checks for presence of Sitelinks (min 4), Callouts, Call, " +
		"Structured Snippets, Image, and Lead Form extensions. Flags campaigns with no active extensions " +
		"and underperforming extensions by CTR."
}

// Params returns the accepted parameters.
func (a *ExtensionAnalyzer) Params() []Param {
	return []Param{dataParam(classify.TypeExtensions)}
}

// Analyze runs the extension checks.
func (a *ExtensionAnalyzer) Analyze(ctx context.Context, in Input) (*model.AnalysisResult, error) {
	t, err := table.Load(in.DataPath)
	if err != nil {
		return nil, err
	}
	f := newFrame(t)

	typeCol := f.col("Extension type", "Type")
	if !typeCol.Present() {
		return nil, &MissingColumnError{Column: "Extension type", File: classify.TypeExtensions.FileName()}
	}
	campaignCol := f.col("Campaign")
	statusCol := f.col("Status")
	ctr := f.percent(f.col("CTR"))
	impr := f.number(f.col("Impressions", "Impr."))

	active := f.allRows()
	if statusCol.Present() {
		active = f.filter(func(i int) bool {
			return containsAny(f.lower(i, statusCol), "enabled", "active")
		})
	}
	avgCTR := ctr.mean()

	res := model.NewAnalysisResult()

	present := presentTypes(f, active, typeCol)
	missing := make([]string, 0)
	for _, ext := range expectedExtensions {
		if hasExtensionType(present, ext) {
			continue
		}
		missing = append(missing, ext)
		sev, why := model.SeverityMedium, "improves ad real estate and CTR"
		if highImpactExtensions[ext] {
			sev, why = model.SeverityHigh, "critical for CTR improvement"
		}
		res.AddFinding(model.Finding{
			Severity:       sev,
			Area:           "Missing Extension",
			ExtensionType:  ext,
			Detail:         fmt.Sprintf("No active '%s' extensions found.", ext),
			Recommendation: fmt.Sprintf("Add %s extensions, %s.", ext, why),
		})
	}

	sitelinks := 0
	for _, i := range active {
		if strings.Contains(f.lower(i, typeCol), "sitelink") {
			sitelinks++
		}
	}
	if sitelinks < minSitelinks {
		res.AddFinding(model.Finding{
			Severity:      model.SeverityHigh,
			Area:          "Sitelink Count",
			ExtensionType: "Sitelink",
			Detail: fmt.Sprintf("Only %d active sitelinks found. Google recommends a minimum of %d.",
				sitelinks, minSitelinks),
			Recommendation: fmt.Sprintf("Add %d more sitelinks. Include links to key pages like Contact, Pricing, "+
				"About, and specific services.", minSitelinks-sitelinks),
		})
	}

	if statusCol.Present() {
		paused := make(map[string]int)
		n := 0
		for i := 0; i < f.len(); i++ {
			if !strings.Contains(f.lower(i, statusCol), "paused") {
				continue
			}
			n++
			if s := f.text(i, typeCol); s != "" {
				paused[s]++
			}
		}
		if n > 0 {
			res.AddFinding(model.Finding{
				Severity:       model.SeverityLow,
				Area:           "Paused Extensions",
				ExtensionType:  "Various",
				Detail:         fmt.Sprintf("%d paused extensions found: %s.", n, formatCounts(paused)),
				Recommendation: "Review paused extensions and re-enable or remove them to improve ad coverage.",
			})
		}
	}

	if ctr.present && avgCTR > 0 {
		for _, i := range active {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			rowCTR := ctr.at(i)
			if impr.at(i) > extensionMinImpr && rowCTR < avgCTR*extensionCTRRatio {
				ext := f.label(i, typeCol, "Unknown")
				res.AddFinding(model.Finding{
					Severity:       model.SeverityLow,
					Area:           "Underperforming Extension",
					ExtensionType:  ext,
					Detail:         fmt.Sprintf("%s CTR %s is well below account avg %s.", ext, pct(rowCTR, 2), pct(avgCTR, 2)),
					Recommendation: "Rewrite this extension with more compelling, benefit-focused copy.",
				})
			}
		}
	}

	if campaignCol.Present() {
		covered := make(map[string]bool)
		for _, i := range active {
			covered[f.text(i, campaignCol)] = true
		}
		for _, camp := range distinctValues(f, f.allRows(), campaignCol) {
			if covered[camp] {
				continue
			}
			res.AddFinding(model.Finding{
				Severity:       model.SeverityHigh,
				Area:           "Campaign Extension Coverage",
				Campaign:       camp,
				Detail:         "Campaign has no active extensions.",
				Recommendation: "Add at minimum Sitelinks and Callouts to this campaign.",
			})
		}
	}

	res.SetExtra("present_extension_types", present)
	res.SetExtra("missing_extension_types", missing)
	res.Metrics = model.Metrics{
		"total_extensions":  f.len(),
		"active_extensions": len(active),
		"sitelink_count":    sitelinks,
	}
	res.Summary = fmt.Sprintf("Analyzed %d extension entries. Active extension types: [%s]. "+
		"Missing high-impact extensions: [%s]. Found %d issues.",
		f.len(), strings.Join(present, ", "), strings.Join(missing, ", "), len(res.Findings))
	return res, nil
}

// presentTypes returns the sorted distinct extension types among rows.
func presentTypes(f frame, rows []int, typeCol table.Column) []string {
	types := distinctValues(f, rows, typeCol)
	sort.Strings(types)
	return types
}

// hasExtensionType matches ext case-insensitively as a substring of any
// present type, so "Sitelink extension" counts as a sitelink.
func hasExtensionType(present []string, ext string) bool {
	want := strings.ToLower(ext)
	for _, p := range present {
		if strings.Contains(strings.ToLower(p), want) {
			return true
		}
	}
	return false
}

// distinctValues returns the non-empty texts of a column in first-seen order.
func distinctValues(f frame, rows []int, c table.Column) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, i := range rows {
		s := f.text(i, c)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
