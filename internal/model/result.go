package model

import (
	"time"

	"github.com/google/uuid"
)

// BrokenLink is a registered URL whose fetch did not return 200 OK.
type BrokenLink struct {
	// URL is the normalized URL that failed.
	URL string `json:"url"`

	// Code is the status code or transport error code (see Outcome.Code).
	Code string `json:"code"`

	// Referrers lists every document that referenced URL, in discovery
	// order. The seed's referrer is StartReferrer.
	Referrers []string `json:"referrers"`
}

// StartReferrer is the referrer recorded for the seed URL.
const StartReferrer = "start"

// Result is the tally of one finished crawl.
//
// OK and Broken only grow while the crawl runs, and every URL in the
// registry contributes to exactly one of them, so OK+Broken must equal
// Registered once the crawl is done.
type Result struct {
	// ID uniquely identifies the run in the history database.
	ID string `json:"id"`

	// StartURL is the seed of the crawl.
	StartURL string `json:"start_url"`

	// OK counts URLs that returned 200 OK.
	OK int `json:"ok"`

	// Broken counts URLs that did not.
	Broken int `json:"broken"`

	// Registered is the number of distinct URLs in the registry at the end.
	Registered int `json:"registered"`

	// Failures lists every broken URL in the order its outcome arrived.
	Failures []BrokenLink `json:"failures"`

	// StartedAt is when the seed was registered.
	StartedAt time.Time `json:"started_at"`

	// Duration is the wall time from seeding to done.
	Duration time.Duration `json:"duration"`
}

// NewResult creates an empty tally for a crawl of startURL.
func NewResult(startURL string) *Result {
	return &Result{
		ID:        uuid.NewString(),
		StartURL:  startURL,
		Failures:  []BrokenLink{},
		StartedAt: time.Now(),
	}
}

// Failed reports whether at least one broken URL was recorded.
func (r *Result) Failed() bool {
	return r.Broken > 0
}

// Reconciles reports whether every registered URL produced exactly one
// outcome.
func (r *Result) Reconciles() bool {
	return r.OK+r.Broken == r.Registered
}

// BrokenURLs returns the URLs of all failures.
func (r *Result) BrokenURLs() []string {
	urls := make([]string, 0, len(r.Failures))
	for _, f := range r.Failures {
		urls = append(urls, f.URL)
	}
	return urls
}
