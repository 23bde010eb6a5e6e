// Package main provides the entry point for the linkcheck CLI.
//
// linkcheck crawls a static site from a start URL, checks every page and
// asset it references, and fails when any of them is broken. It is meant to
// gate a build: point it at the local build output and it serves the
// directory itself.
//
// Usage:
//
//	linkcheck check http://localhost:8080/
//	linkcheck check -r public http://127.0.0.1:4000/docs/
//
// See --help for all available options.
package main

func main() {
	Execute()
}
