package classify

import (
	"path/filepath"
	"strings"
)

// ReportType identifies which export a table represents.
type ReportType string

// Known report types, in enumeration order. The order is also the
// tie-break order of signature scoring.
const (
	TypeCampaigns   ReportType = "campaigns"
	TypeAdGroups    ReportType = "ad_groups"
	TypeKeywords    ReportType = "keywords"
	TypeSearchTerms ReportType = "search_terms"
	TypeAds         ReportType = "ads"
	TypeExtensions  ReportType = "extensions"
	TypeAudiences   ReportType = "audiences"
	TypeDevices     ReportType = "devices"
	TypeTimeOfDay   ReportType = "time_of_day"
	TypeDayOfWeek   ReportType = "day_of_week"
	TypeGeographic  ReportType = "geographic"

	// TypeUnknown is returned when a table matches no known export.
	TypeUnknown ReportType = "unknown"
)

type typeInfo struct {
	fileName string
	label    string
}

var typeInfos = map[ReportType]typeInfo{
	TypeCampaigns:   {"campaigns.csv", "Campaign Performance"},
	TypeAdGroups:    {"ad_groups.csv", "Ad Group Structure"},
	TypeKeywords:    {"keywords.csv", "Keywords & Quality Score"},
	TypeSearchTerms: {"search_terms.csv", "Search Terms"},
	TypeAds:         {"ads.csv", "Ad Creatives"},
	TypeExtensions:  {"extensions.csv", "Ad Extensions"},
	TypeAudiences:   {"audiences.csv", "Audience Segments"},
	TypeDevices:     {"devices.csv", "Device Performance"},
	TypeTimeOfDay:   {"time_of_day.csv", "Hour of Day Performance"},
	TypeDayOfWeek:   {"day_of_week.csv", "Day of Week Performance"},
	TypeGeographic:  {"geographic.csv", "Geographic Performance"},
}

// Types returns the 11 known report types in enumeration order.
func Types() []ReportType {
	return []ReportType{
		TypeCampaigns,
		TypeAdGroups,
		TypeKeywords,
		TypeSearchTerms,
		TypeAds,
		TypeExtensions,
		TypeAudiences,
		TypeDevices,
		TypeTimeOfDay,
		TypeDayOfWeek,
		TypeGeographic,
	}
}

// Known reports whether t is one of the 11 report types.
func (t ReportType) Known() bool {
	_, ok := typeInfos[t]
	return ok
}

// FileName returns the canonical file name for t, e.g. "campaigns.csv".
// It returns "" for TypeUnknown.
func (t ReportType) FileName() string {
	return typeInfos[t].fileName
}

// Label returns the human-readable name of t.
func (t ReportType) Label() string {
	if info, ok := typeInfos[t]; ok {
		return info.label
	}
	return "Unknown"
}

// String returns the type key.
func (t ReportType) String() string {
	return string(t)
}

// ExpectedFiles returns the canonical file names in enumeration order.
func ExpectedFiles() []string {
	types := Types()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.FileName()
	}
	return out
}

// FromFileName maps a file name to its report type when it matches a
// canonical name, ignoring directory, case and extension (so
// "Campaigns.xlsx" matches campaigns).
func FromFileName(name string) (ReportType, bool) {
	base := strings.ToLower(filepath.Base(name))
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	for _, t := range Types() {
		canonical := t.FileName()
		if stem == strings.TrimSuffix(canonical, filepath.Ext(canonical)) {
			return t, true
		}
	}
	return TypeUnknown, false
}
