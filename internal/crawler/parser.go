package crawler

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
)

// referenceAttrs are the attributes whose values name other resources.
var referenceAttrs = []string{"href", "src"}

// HTMLParser extracts href and src references from markup.
//
// Every text-like document goes through the same HTML parser. Stylesheets
// and scripts rarely contain markup, so they usually yield nothing.
type HTMLParser struct{}

// Links returns the union of every href and src attribute value in body,
// resolved against docURL, in document order. body is decoded to UTF-8
// using the charset named in contentType or declared in the document.
func (HTMLParser) Links(docURL, contentType string, body []byte) ([]string, error) {
	base, err := url.Parse(docURL)
	if err != nil {
		return nil, fmt.Errorf("invalid document URL: %w", err)
	}

	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to decode body: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}

	seen := make(map[string]struct{})
	links := make([]string, 0)
	doc.Find("[href], [src]").Each(func(_ int, s *goquery.Selection) {
		for _, attr := range referenceAttrs {
			value, ok := s.Attr(attr)
			if !ok {
				continue
			}
			link := resolveReference(base, value)
			if link == "" {
				continue
			}
			if _, dup := seen[link]; dup {
				continue
			}
			seen[link] = struct{}{}
			links = append(links, link)
		}
	})
	return links, nil
}

// resolveReference resolves ref against base. Empty and unparsable
// references resolve to "".
func resolveReference(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return base.ResolveReference(u).String()
}
