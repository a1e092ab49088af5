package analyzer

import (
	"context"

	"github.com/nao1215/adsaudit/internal/classify"
	"github.com/nao1215/adsaudit/internal/model"
)

// DefaultReportDays is the report date range assumed when none is given.
const DefaultReportDays = 30

// Analyzer is one heuristic check over one export (or a pair of exports).
//
// Design decision: We keep the interface small and pass every path in one
// Input value. Most analyzers need only DataPath; the few that cross-reference
// a second export read the extra field they declared in Params.
type Analyzer interface {
	// Name returns the tool name, e.g. "analyze_keywords".
	Name() string

	// Description returns a one-paragraph description for tool listings.
	Description() string

	// Params describes the accepted input parameters and their defaults.
	Params() []Param

	// Analyze runs the analysis. Errors are reported to the Registry, which
	// converts them into error results.
	Analyze(ctx context.Context, in Input) (*model.AnalysisResult, error)
}

// Input carries the resolved parameters of one invocation.
type Input struct {
	DataPath     string `json:"data_path,omitempty"`
	KeywordsPath string `json:"keywords_path,omitempty"`
	TodPath      string `json:"tod_path,omitempty"`
	DowPath      string `json:"dow_path,omitempty"`
	ReportDays   int    `json:"report_days,omitempty"`
}

// Param documents one input parameter.
type Param struct {
	// Name is the JSON key, e.g. "data_path".
	Name string

	// Type is the JSON schema type: "string" or "integer".
	Type string

	// Description is shown to tool callers.
	Description string

	// File is the export a path parameter defaults to.
	File classify.ReportType

	// Default is the default of a non-path parameter.
	Default int
}

// IsPath reports whether the parameter names an export file.
func (p Param) IsPath() bool {
	return p.Type == "string"
}

// dataParam is the common primary-export parameter.
func dataParam(t classify.ReportType) Param {
	return Param{
		Name:        "data_path",
		Type:        "string",
		Description: "Path to " + t.FileName(),
		File:        t,
	}
}
