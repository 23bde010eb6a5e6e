package crawler

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/nao1215/linkcheck/internal/model"
)

// textualContentType matches content types that may contain references.
var textualContentType = regexp.MustCompile(`(?i)text|javascript|css|json|xml`)

// IsTextual reports whether a Content-Type header names a text-like
// document that is worth parsing for links.
func IsTextual(contentType string) bool {
	return textualContentType.MatchString(contentType)
}

// DocumentParser extracts the references of a fetched document, resolved
// against the document's own URL.
type DocumentParser interface {
	Links(docURL, contentType string, body []byte) ([]string, error)
}

// Verdict is the classification of one fetch outcome.
type Verdict struct {
	// Healthy is true iff the status code is exactly 200.
	Healthy bool

	// Crawlable is true when the resource is a text-like document inside
	// the crawl origin, so its links are followed.
	Crawlable bool

	// Links are the absolute references found in a crawlable document.
	Links []string
}

// Classifier labels fetch outcomes for one crawl.
type Classifier struct {
	origin string
	parser DocumentParser
}

// NewClassifier returns a classifier for a crawl seeded at origin. Only
// documents whose URL starts with origin are parsed.
func NewClassifier(origin string, parser DocumentParser) *Classifier {
	return &Classifier{origin: origin, parser: parser}
}

// Classify decides whether o is healthy and, for crawlable documents,
// extracts their links. A parse error still yields a valid verdict
// without links.
func (c *Classifier) Classify(o model.Outcome) (Verdict, error) {
	v := Verdict{
		Healthy:   o.Healthy(),
		Crawlable: c.crawlable(o),
	}
	if !v.Crawlable {
		return v, nil
	}

	links, err := c.parser.Links(o.URL, o.ContentType, o.Body)
	if err != nil {
		return v, fmt.Errorf("failed to parse %s: %w", o.URL, err)
	}
	v.Links = links
	return v, nil
}

// crawlable does not require a healthy status: a text error page served
// from the origin is still parsed.
func (c *Classifier) crawlable(o model.Outcome) bool {
	if o.Err != nil || o.StatusCode == 0 {
		return false
	}
	return IsTextual(o.ContentType) && strings.HasPrefix(o.URL, c.origin)
}
