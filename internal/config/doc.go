// Package config provides configuration structures and utilities for linkcheck.
// It defines the options that control a crawl (concurrency, timeouts,
// request headers), the local server used for loopback start URLs, and
// report generation preferences.
package config
