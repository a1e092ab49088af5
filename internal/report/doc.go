// Package report renders audit reports and persists them to disk.
//
// Output formats:
//   - MarkdownWriter: shareable report with finding tables and a severity chart
//   - JSONWriter / FullJSONWriter: structured output, read back by ReadJSON for compare
//   - SimpleWriter: plain text for the terminal
//
// Report data lives in the model package; writers only render it.
// Every writer implements Writer, so a MultiWriter can send one audit to
// a file and to stdout at the same time. Save names the file after the
// audit time (report_YYYYMMDD_HHMMSS.<ext>).
package report
