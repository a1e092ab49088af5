// Package main provides the entry point for the adsaudit CLI.
//
// adsaudit audits Google Ads report exports (campaigns, keywords, search
// terms and so on). It runs a battery of rule-based analyzers over a
// directory of exports and writes a prioritized findings report.
//
// Usage:
//
//	adsaudit audit [data-dir...]
//	adsaudit analyze <tool> [json-input]
//	adsaudit classify [--organize dir] <file>...
//
// See --help for all available options.
package main

// main is the entry point for adsaudit.
func main() {
	Execute()
}
