package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Metrics holds an analyzer's named summary numbers. Values are float64
// except for a few flags (bool) and counts (int).
type Metrics map[string]any

// AnalysisResult is what one analyzer produces for one invocation.
//
// Extras carries analyzer-specific tables (pacing table, harvest
// candidates, per-device breakdown). In JSON they are emitted as
// top-level keys next to summary, findings and metrics.
type AnalysisResult struct {
	Summary  string
	Findings []Finding
	Metrics  Metrics
	Extras   map[string]any
}

// NewAnalysisResult returns an empty result with non-nil collections so
// that JSON output always carries "findings": [] and "metrics": {}.
func NewAnalysisResult() *AnalysisResult {
	return &AnalysisResult{
		Findings: make([]Finding, 0),
		Metrics:  make(Metrics),
		Extras:   make(map[string]any),
	}
}

// AddFinding appends a finding.
func (r *AnalysisResult) AddFinding(f Finding) {
	r.Findings = append(r.Findings, f)
}

// SetExtra records an analyzer-specific table under key.
func (r *AnalysisResult) SetExtra(key string, v any) {
	if r.Extras == nil {
		r.Extras = make(map[string]any)
	}
	r.Extras[key] = v
}

// CountBySeverity tallies the result's findings.
func (r *AnalysisResult) CountBySeverity() SeverityCounts {
	var c SeverityCounts
	for _, f := range r.Findings {
		c.Add(f.Severity)
	}
	return c
}

// reservedKeys are the fixed top-level JSON keys of a result.
var reservedKeys = map[string]struct{}{
	"summary":  {},
	"findings": {},
	"metrics":  {},
}

// MarshalJSON flattens Extras into the top-level object. encoding/json
// sorts map keys, so the output is byte-identical across runs. HTML
// escaping is off so thresholds such as "< 10%" stay readable.
func (r AnalysisResult) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Extras)+3)
	for k, v := range r.Extras {
		if _, reserved := reservedKeys[k]; reserved {
			return nil, fmt.Errorf("extra key %q collides with a reserved result key", k)
		}
		out[k] = v
	}
	findings := r.Findings
	if findings == nil {
		findings = []Finding{}
	}
	metrics := r.Metrics
	if metrics == nil {
		metrics = Metrics{}
	}
	out["summary"] = r.Summary
	out["findings"] = findings
	out["metrics"] = metrics

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(out); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// UnmarshalJSON reverses MarshalJSON. Extras are decoded generically.
func (r *AnalysisResult) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	res := NewAnalysisResult()
	if v, ok := raw["summary"]; ok {
		if err := json.Unmarshal(v, &res.Summary); err != nil {
			return fmt.Errorf("summary: %w", err)
		}
	}
	if v, ok := raw["findings"]; ok {
		if err := json.Unmarshal(v, &res.Findings); err != nil {
			return fmt.Errorf("findings: %w", err)
		}
	}
	if v, ok := raw["metrics"]; ok {
		if err := json.Unmarshal(v, &res.Metrics); err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
	}
	for k, v := range raw {
		if _, reserved := reservedKeys[k]; reserved {
			continue
		}
		var extra any
		if err := json.Unmarshal(v, &extra); err != nil {
			return fmt.Errorf("%s: %w", k, err)
		}
		res.Extras[k] = extra
	}

	*r = *res
	return nil
}
