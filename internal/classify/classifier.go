package classify

import (
	"strings"

	"github.com/nao1215/adsaudit/internal/table"
)

// MinSignatureScore is the lowest total signature weight accepted by the
// fallback stage.
const MinSignatureScore = 5

// primaryFragment maps a first-column header fragment to a report type.
type primaryFragment struct {
	fragment string
	typ      ReportType
}

// primaryFragments are matched against the first column header in order,
// most specific first, so that "ad group" wins over "ad" and "campaign"
// is only tried once nothing narrower matched.
var primaryFragments = []primaryFragment{
	{"search term", TypeSearchTerms},
	{"keyword", TypeKeywords},
	{"ad group", TypeAdGroups},
	{"ad", TypeAds},
	{"headline", TypeAds},
	{"extension", TypeExtensions},
	{"asset type", TypeExtensions},
	{"sitelink", TypeExtensions},
	{"audience segment", TypeAudiences},
	{"audience", TypeAudiences},
	{"device", TypeDevices},
	{"hour of day", TypeTimeOfDay},
	{"hour", TypeTimeOfDay},
	{"day of week", TypeDayOfWeek},
	{"day", TypeDayOfWeek},
	{"city", TypeGeographic},
	{"region", TypeGeographic},
	{"country/territory", TypeGeographic},
	{"country", TypeGeographic},
	{"location", TypeGeographic},
	{"campaign", TypeCampaigns},
}

// weightedFragment is one entry of a type's header signature.
type weightedFragment struct {
	fragment string
	weight   int
}

// signatures weight header fragments by how specific they are to a type.
var signatures = map[ReportType][]weightedFragment{
	TypeKeywords: {
		{"quality score", 10},
		{"ad relevance", 8},
		{"landing page exp", 8},
		{"exp. ctr", 6},
		{"first page cpc", 6},
		{"keyword", 5},
		{"match type", 3},
	},
	TypeSearchTerms: {
		{"search term", 10},
		{"added/excluded", 8},
		{"added / excluded", 8},
	},
	TypeAds: {
		{"ad strength", 10},
		{"headline", 8},
		{"description", 6},
		{"final url", 4},
	},
	TypeAdGroups: {
		{"default max. cpc", 8},
		{"ad group type", 8},
		{"ad group", 4},
	},
	TypeCampaigns: {
		{"campaign type", 6},
		{"search lost is", 6},
		{"budget", 5},
		{"bid strategy", 4},
		{"campaign", 2},
	},
	TypeExtensions: {
		{"extension", 10},
		{"sitelink", 8},
		{"asset", 6},
	},
	TypeAudiences: {
		{"audience", 10},
		{"targeting setting", 6},
	},
	TypeDevices: {
		{"device", 10},
	},
	TypeTimeOfDay: {
		{"hour", 10},
	},
	TypeDayOfWeek: {
		{"day of week", 10},
	},
	TypeGeographic: {
		{"city", 8},
		{"country", 8},
		{"region", 6},
		{"location", 6},
	},
}

// Classify loads the file at path and returns its report type. Files that
// cannot be loaded, have fewer than two columns or no rows are
// TypeUnknown. Classify never fails.
func Classify(path string) ReportType {
	tbl, err := table.Load(path)
	if err != nil {
		return TypeUnknown
	}
	return ClassifyTable(tbl)
}

// ClassifyTable returns the report type of an already loaded table.
func ClassifyTable(tbl *table.Table) ReportType {
	if tbl == nil || tbl.Len() == 0 {
		return TypeUnknown
	}
	columns := tbl.Columns()
	if len(columns) < 2 {
		return TypeUnknown
	}

	if t, ok := matchPrimary(columns[0]); ok {
		return t
	}

	best, bestScore := TypeUnknown, 0
	scores := Scores(columns)
	for _, t := range Types() {
		if scores[t] > bestScore {
			best, bestScore = t, scores[t]
		}
	}
	if bestScore < MinSignatureScore {
		return TypeUnknown
	}
	return best
}

// matchPrimary matches the first column header against primaryFragments.
func matchPrimary(header string) (ReportType, bool) {
	h := table.Fold(header)
	for _, p := range primaryFragments {
		if h == p.fragment || strings.HasPrefix(h, p.fragment+" ") {
			return p.typ, true
		}
	}
	return TypeUnknown, false
}

// Scores returns each type's signature score for the given headers. A
// fragment contributes its weight once if it occurs in any header.
func Scores(columns []string) map[ReportType]int {
	folded := make([]string, len(columns))
	for i, c := range columns {
		folded[i] = table.Fold(c)
	}

	scores := make(map[ReportType]int, len(signatures))
	for _, t := range Types() {
		for _, wf := range signatures[t] {
			for _, h := range folded {
				if strings.Contains(h, wf.fragment) {
					scores[t] += wf.weight
					break
				}
			}
		}
	}
	return scores
}
