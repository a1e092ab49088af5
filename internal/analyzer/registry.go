package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/nao1215/adsaudit/internal/model"
	"github.com/nao1215/adsaudit/internal/table"
)

// DefaultDataDir is where exports are looked up when no path is given.
const DefaultDataDir = "data"

// Registry holds the analyzers by tool name and implements the
// invocation boundary used by orchestration collaborators.
//
// Design decision: The registry owns the conversion from Go errors to
// error results. Analyzers return plain errors and the registry decides
// how each class is reported, so that all twelve analyzers degrade the
// same way.
type Registry struct {
	analyzers  []Analyzer
	byName     map[string]Analyzer
	dataDir    string
	reportDays int
	logger     *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithDataDir sets the directory default paths are resolved against.
func WithDataDir(dir string) Option {
	return func(r *Registry) {
		r.dataDir = dir
	}
}

// WithReportDays sets the default report_days parameter.
func WithReportDays(days int) Option {
	return func(r *Registry) {
		r.reportDays = days
	}
}

// WithLogger sets the logger used for invocation tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		analyzers:  make([]Analyzer, 0),
		byName:     make(map[string]Analyzer),
		dataDir:    DefaultDataDir,
		reportDays: DefaultReportDays,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// DefaultRegistry creates a registry with all built-in analyzers in their
// canonical audit order.
func DefaultRegistry(opts ...Option) *Registry {
	r := NewRegistry(opts...)
	r.Register(NewCampaignAnalyzer())
	r.Register(NewBudgetAnalyzer())
	r.Register(NewKeywordAnalyzer())
	r.Register(NewSearchTermAnalyzer())
	r.Register(NewAdCreativeAnalyzer())
	r.Register(NewAdGroupAnalyzer())
	r.Register(NewBiddingAnalyzer())
	r.Register(NewAudienceAnalyzer())
	r.Register(NewDeviceAnalyzer())
	r.Register(NewTimeAnalyzer())
	r.Register(NewExtensionAnalyzer())
	r.Register(NewGeoAnalyzer())
	return r
}

// Register adds an analyzer. A later analyzer with the same name replaces
// the earlier one.
func (r *Registry) Register(a Analyzer) {
	if _, exists := r.byName[a.Name()]; exists {
		for i, old := range r.analyzers {
			if old.Name() == a.Name() {
				r.analyzers[i] = a
			}
		}
	} else {
		r.analyzers = append(r.analyzers, a)
	}
	r.byName[a.Name()] = a
}

// Analyzers returns the registered analyzers in registration order.
func (r *Registry) Analyzers() []Analyzer {
	return append([]Analyzer(nil), r.analyzers...)
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.analyzers))
	for _, a := range r.analyzers {
		names = append(names, a.Name())
	}
	return names
}

// Lookup returns the analyzer registered under name.
func (r *Registry) Lookup(name string) (Analyzer, bool) {
	a, ok := r.byName[name]
	return a, ok
}

// Tool is the schema of one analyzer as published to callers.
type Tool struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	InputSchema Schema `json:"input_schema"`
}

// Schema is a JSON schema object describing tool parameters.
type Schema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required"`
}

// Property is one parameter in a Schema.
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Default     any    `json:"default"`
}

// Tools returns the schemas of all registered analyzers. Path defaults
// are resolved against the registry's data directory.
func (r *Registry) Tools() []Tool {
	tools := make([]Tool, 0, len(r.analyzers))
	for _, a := range r.analyzers {
		props := make(map[string]Property, len(a.Params()))
		for _, p := range a.Params() {
			prop := Property{Type: p.Type, Description: p.Description}
			if p.IsPath() {
				prop.Default = r.defaultPath(p)
			} else {
				prop.Default = r.defaultInt(p)
			}
			props[p.Name] = prop
		}
		tools = append(tools, Tool{
			Name:        a.Name(),
			Description: a.Description(),
			InputSchema: Schema{Type: "object", Properties: props, Required: []string{}},
		})
	}
	return tools
}

func (r *Registry) defaultPath(p Param) string {
	return filepath.Join(r.dataDir, p.File.FileName())
}

func (r *Registry) defaultInt(p Param) int {
	if p.Name == "report_days" && r.reportDays > 0 {
		return r.reportDays
	}
	return p.Default
}

// DefaultInput returns the input an analyzer receives when called with
// no parameters.
func (r *Registry) DefaultInput(a Analyzer) Input {
	var in Input
	for _, p := range a.Params() {
		switch p.Name {
		case "data_path":
			in.DataPath = r.defaultPath(p)
		case "keywords_path":
			in.KeywordsPath = r.defaultPath(p)
		case "tod_path":
			in.TodPath = r.defaultPath(p)
		case "dow_path":
			in.DowPath = r.defaultPath(p)
		case "report_days":
			in.ReportDays = r.defaultInt(p)
		}
	}
	return in
}

// DecodeInput parses JSON parameters for the named tool on top of its
// defaults. Keys the tool does not declare are rejected.
func (r *Registry) DecodeInput(name string, raw []byte) (Input, error) {
	a, ok := r.byName[name]
	if !ok {
		return Input{}, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	in := r.DefaultInput(a)

	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return in, nil
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keys); err != nil {
		return Input{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	declared := make(map[string]struct{}, len(a.Params()))
	for _, p := range a.Params() {
		declared[p.Name] = struct{}{}
	}
	for k := range keys {
		if _, ok := declared[k]; !ok {
			return Input{}, fmt.Errorf("%w: unexpected parameter '%s'", ErrInvalidInput, k)
		}
	}
	if err := json.Unmarshal(raw, &in); err != nil {
		return Input{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return in, nil
}

// Execute runs the named analyzer and returns its raw outcome. A panic
// inside the analyzer is recovered and returned as a *PanicError.
func (r *Registry) Execute(ctx context.Context, name string, in Input) (res *model.AnalysisResult, err error) {
	a, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	defer func() {
		if v := recover(); v != nil {
			res = nil
			err = &PanicError{Value: v}
		}
	}()
	return a.Analyze(ctx, in)
}

// Run executes the named analyzer and folds the outcome into an audit
// entry. It never fails: every error becomes a skipped entry.
func (r *Registry) Run(ctx context.Context, name string, in Input) model.AnalysisEntry {
	res, err := r.Execute(ctx, name, in)
	if err != nil {
		msg, _ := describeError(name, err)
		return model.AnalysisEntry{Tool: name, Skipped: true, Error: msg}
	}
	return model.AnalysisEntry{Tool: name, Result: res}
}

// Invoke is the string-in, string-out invocation contract: tool name and
// JSON parameters in, JSON result or JSON error object out.
func (r *Registry) Invoke(ctx context.Context, name string, raw []byte) string {
	r.logger.Debug("invoking tool", "tool", name)

	in, err := r.DecodeInput(name, raw)
	if err == nil {
		var res *model.AnalysisResult
		res, err = r.Execute(ctx, name, in)
		if err == nil {
			out, encErr := encodeIndent(res)
			if encErr == nil {
				return out
			}
			err = encErr
		}
	}

	r.logger.Debug("tool returned error", "tool", name, "error", err)
	msg, skipped := describeError(name, err)
	body := map[string]any{"error": msg}
	if skipped {
		body["skipped"] = true
	}
	out, encErr := encodeIndent(body)
	if encErr != nil {
		// Only strings and a bool: encoding cannot fail.
		return fmt.Sprintf("{\"error\": %q}", msg)
	}
	return out
}

// describeError maps an invocation error onto its user-facing message and
// whether the analysis counts as skipped.
func describeError(name string, err error) (string, bool) {
	var missing *MissingColumnError
	switch {
	case errors.Is(err, ErrUnknownTool):
		return "Unknown tool: " + name, false
	case errors.As(err, &missing):
		return missing.Error(), false
	case errors.Is(err, table.ErrNotFound):
		return fmt.Sprintf("CSV file not found: %v. This analysis will be skipped.", err), true
	case errors.Is(err, table.ErrUnreadableFile), errors.Is(err, table.ErrEmptyFile):
		return fmt.Sprintf("CSV file could not be read: %v. This analysis will be skipped.", err), true
	default:
		return fmt.Sprintf("Tool '%s' failed: %v. Skipping this analysis.", name, err), true
	}
}

// encodeIndent renders v with two-space indentation and without HTML
// escaping, so "<" and "&" in details stay readable.
func encodeIndent(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}
