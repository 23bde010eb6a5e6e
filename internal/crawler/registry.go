package crawler

import (
	"net/url"
	"slices"
	"strings"
)

// unfetchableSchemes are reference schemes that never name a network
// resource. References using them are neither registered nor fetched.
var unfetchableSchemes = []string{"mailto", "tel", "javascript", "data"}

// Registry records every URL ever enqueued during one crawl, together with
// the documents that referenced it. It is the single source of truth for
// "already seen".
//
// A Registry is not safe for concurrent use. The Checker only touches it
// from its driver goroutine.
type Registry struct {
	referrers map[string][]string
	order     []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{referrers: make(map[string][]string)}
}

// Register records that referrer references rawURL.
//
// The first registration of a URL inserts it and returns isNew = true; the
// caller must then enqueue exactly one fetch for the returned normalized
// URL. Later registrations only append referrer and return isNew = false.
// References that cannot be fetched (mailto: and friends, unparsable URLs)
// return an empty URL and isNew = false.
func (r *Registry) Register(rawURL, referrer string) (normalized string, isNew bool) {
	normalized, ok := Normalize(rawURL)
	if !ok {
		return "", false
	}
	refs, seen := r.referrers[normalized]
	r.referrers[normalized] = append(refs, referrer)
	if seen {
		return normalized, false
	}
	r.order = append(r.order, normalized)
	return normalized, true
}

// Contains reports whether rawURL, after normalization, is registered.
func (r *Registry) Contains(rawURL string) bool {
	normalized, ok := Normalize(rawURL)
	if !ok {
		return false
	}
	_, found := r.referrers[normalized]
	return found
}

// Referrers returns the referrers of a normalized URL in discovery order.
func (r *Registry) Referrers(normalized string) []string {
	return slices.Clone(r.referrers[normalized])
}

// URLs returns every registered URL in registration order.
func (r *Registry) URLs() []string {
	return slices.Clone(r.order)
}

// Len returns the number of distinct registered URLs.
func (r *Registry) Len() int {
	return len(r.order)
}

// Normalize returns the registry key for rawURL: the URL without its
// fragment, with a lower-case host and "/" for an empty path. It returns
// false for references that can never be fetched.
func Normalize(rawURL string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", false
	}
	if slices.Contains(unfetchableSchemes, strings.ToLower(u.Scheme)) {
		return "", false
	}

	u.Fragment = ""
	u.RawFragment = ""
	u.Host = strings.ToLower(u.Host)
	if u.Host != "" && u.Path == "" && u.Opaque == "" {
		u.Path = "/"
	}
	return u.String(), true
}
