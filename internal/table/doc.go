// Package table loads advertising-platform exports into typed tables.
//
// Exports arrive in many shapes: report-title banner rows above the
// header, semicolon or tab delimiters from non-English locales, byte-order
// marks, Latin-1 encodings and "Total" summary rows at the bottom. Load
// normalizes all of these into a Table whose cells are one of three
// variants (Missing, Number, Text).
//
// Numeric interpretation is deliberately left to the caller: analyzers
// apply CleanPercentage, CleanCurrency or CleanNumber to the columns they
// care about. The cleaners are total functions and never fail; anything
// that cannot be interpreted becomes Missing.
//
// # Usage
//
//	tbl, err := table.Load("data/campaigns.csv")
//	if err != nil {
//		return err
//	}
//	cost := tbl.FindCol("Cost", "Spend")
//	for i := range tbl.Len() {
//		v, ok := table.CleanCurrency(tbl.Value(i, cost)).Float()
//		...
//	}
package table
