package report

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/adsaudit/internal/model"
)

// Output formats.
const (
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
	FormatText     = "text"
)

// ErrUnknownFormat is returned for an output format no writer handles.
var ErrUnknownFormat = errors.New("unknown report format")

// Writer defines the interface for report output.
// Implementations write audit reports in various formats.
//
// Design decision: We use an interface to allow different output formats
// and destinations. This enables writing to files, stdout, or buffers
// with the same API.
type Writer interface {
	// Write outputs the report to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(report *model.AuditReport) (int, error)
}

// Formats returns the supported output formats.
func Formats() []string {
	return []string{FormatMarkdown, FormatJSON, FormatText}
}

// Extension returns the file extension, including the dot, for format.
func Extension(format string) (string, error) {
	switch strings.ToLower(format) {
	case FormatMarkdown:
		return ".md", nil
	case FormatJSON:
		return ".json", nil
	case FormatText:
		return ".txt", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// NewWriter returns the writer for format. version is embedded in JSON output.
func NewWriter(format string, output io.Writer, version string) (Writer, error) {
	switch strings.ToLower(format) {
	case FormatMarkdown:
		return NewMarkdownWriter(output), nil
	case FormatJSON:
		return NewFullJSONWriter(output, version, WithPrettyPrint()), nil
	case FormatText:
		return NewSimpleWriter(output), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// MultiWriter writes to multiple Writers simultaneously.
// This is useful for outputting to both terminal and file.
//
// Design decision: We implement this as a separate type rather than
// using io.MultiWriter because our Writer interface is different
// from io.Writer - we write reports, not raw bytes.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(report *model.AuditReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// statusText describes whether the audit ran to completion.
func statusText(report *model.AuditReport) string {
	switch {
	case report.Error != "":
		return "Error - " + report.Error
	case report.SkippedCount() > 0:
		return fmt.Sprintf("Complete (%d of %d analyses skipped)", report.SkippedCount(), len(report.Analyses))
	default:
		return "Complete"
	}
}

// foundCount returns how many expected exports were present.
func foundCount(report *model.AuditReport) int {
	n := 0
	for _, f := range report.Files {
		if f.Found {
			n++
		}
	}
	return n
}

// findingsBySeverity returns the report's findings at severity s in
// invocation order.
func findingsBySeverity(report *model.AuditReport, s model.Severity) []model.ToolFinding {
	out := make([]model.ToolFinding, 0)
	for _, f := range report.AllFindings() {
		if f.Severity == s {
			out = append(out, f)
		}
	}
	return out
}

// orDash returns s, or "-" when s is empty.
func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// truncateString truncates a string to maxLen runes with ellipsis.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
