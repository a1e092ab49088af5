package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/adsaudit/internal/classify"
	"github.com/nao1215/adsaudit/internal/model"
)

// writeExport writes an export fixture. Two footer lines are appended
// because the loader always discards them.
func writeExport(t *testing.T, name string, lines ...string) string {
	t.Helper()
	content := strings.Join(lines, "\n") + "\nTotal: Account\nReport generated by Google Ads\n"
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	return path
}

func invokeJSON(t *testing.T, r *Registry, name string, params map[string]any) map[string]any {
	t.Helper()
	raw, err := json.Marshal(params)
	if err != nil {
		t.Fatalf("failed to marshal params: %v", err)
	}
	out := r.Invoke(context.Background(), name, raw)
	var decoded map[string]any
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("invoke returned invalid JSON: %v\n%s", err, out)
	}
	return decoded
}

func areas(findings []model.Finding) []string {
	out := make([]string, 0, len(findings))
	for _, f := range findings {
		out = append(out, f.Area)
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

type fakeAnalyzer struct {
	name    string
	analyze func(ctx context.Context, in Input) (*model.AnalysisResult, error)
}

func (f *fakeAnalyzer) Name() string        { return f.name }
func (f *fakeAnalyzer) Description() string { return "fake analyzer" }
func (f *fakeAnalyzer) Params() []Param {
	return []Param{dataParam(classify.TypeDevices)}
}
func (f *fakeAnalyzer) Analyze(ctx context.Context, in Input) (*model.AnalysisResult, error) {
	return f.analyze(ctx, in)
}

// TestDefaultRegistry tests that all analyzers are registered in audit order.
func TestDefaultRegistry(t *testing.T) {
	t.Parallel()

	want := []string{
		"analyze_campaign_performance",
		"analyze_budget_pacing",
		"analyze_keywords",
		"analyze_search_terms",
		"analyze_ad_creatives",
		"analyze_ad_group_structure",
		"analyze_bidding_strategies",
		"analyze_audiences",
		"analyze_devices",
		"analyze_time_performance",
		"analyze_extensions",
		"analyze_geographic_performance",
	}
	got := DefaultRegistry().Names()
	if !equalStrings(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
}

// TestRegistryTools tests the published tool schemas and their defaults.
func TestRegistryTools(t *testing.T) {
	t.Parallel()

	r := DefaultRegistry(WithDataDir("exports"), WithReportDays(14))
	tools := r.Tools()
	if len(tools) != 12 {
		t.Fatalf("expected 12 tools, got %d", len(tools))
	}

	byName := make(map[string]Tool, len(tools))
	for _, tool := range tools {
		if tool.Description == "" {
			t.Errorf("tool %s has no description", tool.Name)
		}
		if tool.InputSchema.Type != "object" {
			t.Errorf("tool %s schema type = %q", tool.Name, tool.InputSchema.Type)
		}
		if len(tool.InputSchema.Required) != 0 {
			t.Errorf("tool %s must not require parameters", tool.Name)
		}
		byName[tool.Name] = tool
	}

	testCases := []struct {
		name  string
		tool  string
		param string
		want  any
	}{
		{"campaign data path", "analyze_campaign_performance", "data_path", filepath.Join("exports", "campaigns.csv")},
		{"campaign report days", "analyze_campaign_performance", "report_days", 14},
		{"search term keywords path", "analyze_search_terms", "keywords_path", filepath.Join("exports", "keywords.csv")},
		{"time of day path", "analyze_time_performance", "tod_path", filepath.Join("exports", "time_of_day.csv")},
		{"day of week path", "analyze_time_performance", "dow_path", filepath.Join("exports", "day_of_week.csv")},
		{"geo data path", "analyze_geographic_performance", "data_path", filepath.Join("exports", "geographic.csv")},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			prop, ok := byName[tc.tool].InputSchema.Properties[tc.param]
			if !ok {
				t.Fatalf("%s has no %s parameter", tc.tool, tc.param)
			}
			if prop.Default != tc.want {
				t.Errorf("default = %v, want %v", prop.Default, tc.want)
			}
		})
	}
}

// TestDecodeInput tests parameter decoding on top of defaults.
func TestDecodeInput(t *testing.T) {
	t.Parallel()

	r := DefaultRegistry(WithDataDir("d"))

	testCases := []struct {
		name    string
		tool    string
		raw     string
		want    Input
		wantErr error
	}{
		{
			name: "empty params use defaults",
			tool: "analyze_campaign_performance",
			raw:  "",
			want: Input{DataPath: filepath.Join("d", "campaigns.csv"), ReportDays: DefaultReportDays},
		},
		{
			name: "null params use defaults",
			tool: "analyze_devices",
			raw:  "null",
			want: Input{DataPath: filepath.Join("d", "devices.csv")},
		},
		{
			name: "explicit values override defaults",
			tool: "analyze_campaign_performance",
			raw:  `{"data_path": "/tmp/c.csv", "report_days": 7}`,
			want: Input{DataPath: "/tmp/c.csv", ReportDays: 7},
		},
		{
			name:    "undeclared parameter is rejected",
			tool:    "analyze_devices",
			raw:     `{"keywords_path": "k.csv"}`,
			wantErr: ErrInvalidInput,
		},
		{
			name:    "wrong type is rejected",
			tool:    "analyze_campaign_performance",
			raw:     `{"report_days": "thirty"}`,
			wantErr: ErrInvalidInput,
		},
		{
			name:    "unknown tool",
			tool:    "analyze_everything",
			raw:     "{}",
			wantErr: ErrUnknownTool,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := r.DecodeInput(tc.tool, []byte(tc.raw))
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}

// TestInvokeErrors tests the error objects returned at the invocation boundary.
func TestInvokeErrors(t *testing.T) {
	t.Parallel()

	noCampaign := writeExport(t, "campaigns.csv",
		"Name,Cost,Clicks",
		"Brand,10,1",
	)

	testCases := []struct {
		name        string
		tool        string
		params      map[string]any
		wantPrefix  string
		wantSkipped bool
	}{
		{
			name:       "unknown tool",
			tool:       "analyze_everything",
			params:     map[string]any{},
			wantPrefix: "Unknown tool: analyze_everything",
		},
		{
			name:        "missing file",
			tool:        "analyze_devices",
			params:      map[string]any{"data_path": filepath.Join(t.TempDir(), "devices.csv")},
			wantPrefix:  "CSV file not found: ",
			wantSkipped: true,
		},
		{
			name:       "missing identifying column",
			tool:       "analyze_campaign_performance",
			params:     map[string]any{"data_path": noCampaign},
			wantPrefix: "Could not find Campaign column in campaigns.csv",
		},
		{
			name:        "undeclared parameter",
			tool:        "analyze_devices",
			params:      map[string]any{"bogus": true},
			wantPrefix:  "Tool 'analyze_devices' failed: ",
			wantSkipped: true,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			out := invokeJSON(t, DefaultRegistry(), tc.tool, tc.params)
			msg, ok := out["error"].(string)
			if !ok {
				t.Fatalf("expected an error object, got %v", out)
			}
			if !strings.HasPrefix(msg, tc.wantPrefix) {
				t.Errorf("error = %q, want prefix %q", msg, tc.wantPrefix)
			}
			skipped, _ := out["skipped"].(bool)
			if skipped != tc.wantSkipped {
				t.Errorf("skipped = %v, want %v", skipped, tc.wantSkipped)
			}
			if _, has := out["findings"]; has {
				t.Error("error object must not carry findings")
			}
		})
	}
}

// TestInvokeIsIdempotent tests that the same input yields byte-identical output.
func TestInvokeIsIdempotent(t *testing.T) {
	t.Parallel()

	path := writeExport(t, "keywords.csv",
		"Campaign,Ad group,Keyword,Match type,Cost,Conversions,Quality Score",
		"Brand,AG1,running shoes,Broad match,$100.00,0,3",
		"Brand,AG2,running shoes,Phrase match,$25.00,0,5",
		"Brand,AG3,trail shoes,Exact match,$75.00,10,8",
	)
	r := DefaultRegistry()
	raw := []byte(`{"data_path": "` + filepath.ToSlash(path) + `"}`)

	first := r.Invoke(context.Background(), "analyze_keywords", raw)
	second := r.Invoke(context.Background(), "analyze_keywords", raw)
	if first != second {
		t.Errorf("outputs differ:\n%s\n---\n%s", first, second)
	}
	if !strings.Contains(first, "\n  \"summary\"") {
		t.Errorf("expected two-space indented output, got:\n%s", first)
	}
}

// TestRunRecoversPanics tests that a panicking analyzer becomes a skipped entry.
func TestRunRecoversPanics(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Register(&fakeAnalyzer{
		name: "fake",
		analyze: func(context.Context, Input) (*model.AnalysisResult, error) {
			panic("boom")
		},
	})

	entry := r.Run(context.Background(), "fake", Input{})
	if !entry.Skipped || entry.Result != nil {
		t.Fatalf("expected skipped entry, got %+v", entry)
	}
	if entry.Error != "Tool 'fake' failed: boom. Skipping this analysis." {
		t.Errorf("unexpected error message: %q", entry.Error)
	}

	_, err := r.Execute(context.Background(), "fake", Input{})
	var pe *PanicError
	if !errors.As(err, &pe) {
		t.Errorf("expected *PanicError, got %T", err)
	}
}

// TestRunHonorsCancellation tests that a cancelled context skips the analysis.
func TestRunHonorsCancellation(t *testing.T) {
	t.Parallel()

	called := false
	r := NewRegistry()
	r.Register(&fakeAnalyzer{
		name: "fake",
		analyze: func(context.Context, Input) (*model.AnalysisResult, error) {
			called = true
			return model.NewAnalysisResult(), nil
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	entry := r.Run(ctx, "fake", Input{})
	if !entry.Skipped {
		t.Error("expected skipped entry")
	}
	if called {
		t.Error("analyzer must not run on a cancelled context")
	}
}

// TestRegisterReplacesSameName tests that registering a name twice keeps one entry.
func TestRegisterReplacesSameName(t *testing.T) {
	t.Parallel()

	r := DefaultRegistry()
	r.Register(&fakeAnalyzer{
		name: "analyze_devices",
		analyze: func(context.Context, Input) (*model.AnalysisResult, error) {
			res := model.NewAnalysisResult()
			res.Summary = "replaced"
			return res, nil
		},
	})

	if n := len(r.Names()); n != 12 {
		t.Fatalf("expected 12 analyzers, got %d", n)
	}
	entry := r.Run(context.Background(), "analyze_devices", Input{})
	if entry.Result == nil || entry.Result.Summary != "replaced" {
		t.Errorf("expected the replacement analyzer to run, got %+v", entry)
	}
}
