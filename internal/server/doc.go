// Package server serves a built site from a local directory so that it can
// be checked over HTTP before it is deployed.
//
// The server only binds loopback addresses. It is started before a crawl
// whose start URL points at localhost and stopped after the report has
// been written.
package server
