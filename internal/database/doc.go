// Package database provides SQLite-based storage for the history of link
// checks.
//
// Only finished results are stored, never crawl state: a crawl always starts
// from an empty registry, and stored runs are read back only to list them
// or to compare two runs of the same site.
//
// SQLite is used via modernc.org/sqlite, a CGO-free driver, so the binary
// cross-compiles and the history is a single file under the XDG data
// directory.
package database
