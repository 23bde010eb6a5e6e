// Package report turns finished crawl results into output and into the
// process outcome.
//
// This package contains writers for different output formats:
//   - SimpleWriter: the console summary printed after the progress line
//   - JSONWriter: structured JSON for tool integration
//   - MarkdownWriter: GitHub Flavored Markdown for CI comments
//   - CSVWriter: one row per broken reference for spreadsheets
//
// Emit ties them to the crawl's correctness check: a result whose tally does
// not reconcile with its registry is never written, and a result with
// broken links is reported and then surfaced as ErrBrokenLinks.
package report
