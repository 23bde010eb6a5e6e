// Package model defines the data structures shared by the crawler, the
// report writers and the history database.
//
// This package contains the following main types:
//   - Outcome: the result of fetching one URL, consumed immediately by the crawler
//   - Result: the tally of a finished crawl, including every broken reference
//   - RunDiff: the difference between two stored results for the same site
//
// Models live in their own package so that crawler, report and database can
// share them without import cycles.
package model
