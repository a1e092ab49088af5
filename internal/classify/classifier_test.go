package classify

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeExport writes a CSV with the given header and one data row, plus
// the two footer lines every export carries.
func writeExport(t *testing.T, name string, header []string) string {
	t.Helper()

	row := make([]string, len(header))
	for i := range row {
		row[i] = "x"
	}
	content := strings.Join(header, ",") + "\n" +
		strings.Join(row, ",") + "\n" +
		"Total,,\n" +
		"\n"

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	return path
}

// TestClassifyPrimaryColumn tests stage one, the first column match.
func TestClassifyPrimaryColumn(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		header []string
		want   ReportType
	}{
		{"search term wins regardless of other columns", []string{"Search term", "Campaign", "Quality Score", "Device"}, TypeSearchTerms},
		{"keyword", []string{"Keyword", "Campaign", "Cost"}, TypeKeywords},
		{"keyword status prefix", []string{"Keyword status", "Keyword", "Cost"}, TypeKeywords},
		{"ad group before ad", []string{"Ad group", "Campaign", "Cost"}, TypeAdGroups},
		{"ad status", []string{"Ad status", "Headline 1", "Cost"}, TypeAds},
		{"device", []string{"Device", "Cost", "Clicks"}, TypeDevices},
		{"hour of day", []string{"Hour of day", "Cost", "Clicks"}, TypeTimeOfDay},
		{"day of week", []string{"Day of week", "Cost", "Clicks"}, TypeDayOfWeek},
		{"country territory", []string{"Country/Territory", "Cost", "Clicks"}, TypeGeographic},
		{"case insensitive", []string{"CAMPAIGN", "Budget", "Cost"}, TypeCampaigns},
		{"audience segment", []string{"Audience segment", "Cost", "Clicks"}, TypeAudiences},
		{"extension", []string{"Extension type", "Status", "Clicks"}, TypeExtensions},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			path := writeExport(t, "upload.csv", tc.header)
			if got := Classify(path); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

// TestClassifySignatureScoring tests stage two, the weighted fallback.
func TestClassifySignatureScoring(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		header []string
		want   ReportType
	}{
		{"keywords via quality score and ad relevance", []string{"Criterion", "Quality Score", "Ad relevance", "Cost"}, TypeKeywords},
		{"ads via ad strength", []string{"Status", "Ad strength", "Final URL"}, TypeAds},
		{"campaigns via budget", []string{"Name", "Budget", "Cost"}, TypeCampaigns},
		{"below threshold", []string{"Name", "Campaign", "Cost"}, TypeUnknown},
		{"nothing recognizable", []string{"foo", "bar", "baz"}, TypeUnknown},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			path := writeExport(t, "upload.csv", tc.header)
			if got := Classify(path); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

// TestScores tests that each fragment counts once per type.
func TestScores(t *testing.T) {
	t.Parallel()

	scores := Scores([]string{"Criterion", "Quality Score", "Ad relevance"})
	if scores[TypeKeywords] != 18 {
		t.Errorf("expected keywords score 18, got %d", scores[TypeKeywords])
	}

	scores = Scores([]string{"Hour", "Hour of day"})
	if scores[TypeTimeOfDay] != 10 {
		t.Errorf("expected fragment counted once, got %d", scores[TypeTimeOfDay])
	}
}

// TestClassifyNeverFails tests the unknown fallbacks.
func TestClassifyNeverFails(t *testing.T) {
	t.Parallel()

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		if got := Classify(filepath.Join(t.TempDir(), "nope.csv")); got != TypeUnknown {
			t.Errorf("got %q, want unknown", got)
		}
	})

	t.Run("header only", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "empty.csv")
		if err := os.WriteFile(path, []byte("Device,Cost,Clicks\n"), 0600); err != nil {
			t.Fatal(err)
		}
		if got := Classify(path); got != TypeUnknown {
			t.Errorf("got %q, want unknown", got)
		}
	})

	t.Run("nil table", func(t *testing.T) {
		t.Parallel()
		if got := ClassifyTable(nil); got != TypeUnknown {
			t.Errorf("got %q, want unknown", got)
		}
	})
}

// TestReportTypeMetadata tests file names, labels and file name matching.
func TestReportTypeMetadata(t *testing.T) {
	t.Parallel()

	if len(Types()) != 11 {
		t.Fatalf("expected 11 types, got %d", len(Types()))
	}
	for _, typ := range Types() {
		if typ.FileName() == "" || typ.Label() == "Unknown" || !typ.Known() {
			t.Errorf("type %q lacks metadata", typ)
		}
	}
	if TypeUnknown.Known() || TypeUnknown.FileName() != "" {
		t.Error("unknown type must not carry a file name")
	}
	if got := TypeKeywords.Label(); got != "Keywords & Quality Score" {
		t.Errorf("unexpected label %q", got)
	}
	if files := ExpectedFiles(); files[0] != "campaigns.csv" || files[10] != "geographic.csv" {
		t.Errorf("unexpected expected files: %v", files)
	}

	testCases := []struct {
		name string
		want ReportType
		ok   bool
	}{
		{"campaigns.csv", TypeCampaigns, true},
		{"/tmp/uploads/Search_Terms.CSV", TypeSearchTerms, true},
		{"devices.xlsx", TypeDevices, true},
		{"export (3).csv", TypeUnknown, false},
	}
	for _, tc := range testCases {
		got, ok := FromFileName(tc.name)
		if got != tc.want || ok != tc.ok {
			t.Errorf("FromFileName(%q) = (%q, %v), want (%q, %v)", tc.name, got, ok, tc.want, tc.ok)
		}
	}
}
