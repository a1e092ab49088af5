package model

// Finding is one detected issue. Findings are created once per violation
// and never merged or deduplicated across analyzers.
//
// Entity fields reference what the finding is about. Which ones are set
// depends on the analyzer: a keyword finding names the campaign, ad group
// and keyword; a device finding only the device.
type Finding struct {
	// Severity is the urgency level.
	Severity Severity `json:"severity"`

	// Area is a free-text category such as "Budget" or "Quality Score".
	Area string `json:"area"`

	Campaign      string `json:"campaign,omitempty"`
	AdGroup       string `json:"ad_group,omitempty"`
	Keyword       string `json:"keyword,omitempty"`
	SearchTerm    string `json:"search_term,omitempty"`
	Audience      string `json:"audience,omitempty"`
	Device        string `json:"device,omitempty"`
	Hour          string `json:"hour,omitempty"`
	Day           string `json:"day,omitempty"`
	Location      string `json:"location,omitempty"`
	ExtensionType string `json:"extension_type,omitempty"`

	// CostWasted quantifies spend lost to the issue, when measurable.
	CostWasted float64 `json:"cost_wasted,omitempty"`

	// Detail describes the issue with the actual computed numbers.
	Detail string `json:"detail"`

	// Recommendation is the suggested action.
	Recommendation string `json:"recommendation"`
}

// Entity returns the most specific entity reference, used as a short
// label when findings are listed outside their analyzer.
func (f Finding) Entity() string {
	for _, v := range []string{
		f.SearchTerm, f.Keyword, f.AdGroup, f.Audience, f.ExtensionType,
		f.Device, f.Hour, f.Day, f.Location, f.Campaign,
	} {
		if v != "" {
			return v
		}
	}
	return ""
}
