package crawler

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/nao1215/linkcheck/internal/model"
)

// Default fetcher settings.
const (
	defaultTimeout     = 30 * time.Second
	defaultUserAgent   = "linkcheck/1.0 (+https://github.com/nao1215/linkcheck)"
	defaultMaxBodySize = 5 * 1024 * 1024 // 5MB
)

// HTTPFetcher fetches URLs with a plain HTTP GET.
//
// Redirects are never followed: a 301 is reported as-is and therefore
// counts as broken. Bodies are only read for text-like content types.
type HTTPFetcher struct {
	client      *http.Client
	userAgent   string
	headers     map[string]string
	cookie      string
	maxBodySize int64
}

// FetcherOption configures an HTTPFetcher.
type FetcherOption func(*HTTPFetcher)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) FetcherOption {
	return func(f *HTTPFetcher) {
		f.client.Timeout = d
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) FetcherOption {
	return func(f *HTTPFetcher) {
		f.userAgent = ua
	}
}

// WithHeaders adds custom headers to every request.
func WithHeaders(headers map[string]string) FetcherOption {
	return func(f *HTTPFetcher) {
		f.headers = headers
	}
}

// WithCookie sends cookie with every request.
// Format: "name=value" or "name1=value1; name2=value2"
func WithCookie(cookie string) FetcherOption {
	return func(f *HTTPFetcher) {
		f.cookie = cookie
	}
}

// WithMaxBodySize limits how many body bytes are read from a text document.
func WithMaxBodySize(size int64) FetcherOption {
	return func(f *HTTPFetcher) {
		if size > 0 {
			f.maxBodySize = size
		}
	}
}

// WithTransport replaces the HTTP transport, mainly for tests.
func WithTransport(rt http.RoundTripper) FetcherOption {
	return func(f *HTTPFetcher) {
		f.client.Transport = rt
	}
}

// NewHTTPFetcher returns a fetcher with default settings.
func NewHTTPFetcher(opts ...FetcherOption) *HTTPFetcher {
	f := &HTTPFetcher{
		client: &http.Client{
			Timeout: defaultTimeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		userAgent:   defaultUserAgent,
		maxBodySize: defaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch performs a GET request for rawURL. Transport failures are reported
// in Outcome.Err; Fetch itself never fails.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) model.Outcome {
	start := time.Now()
	outcome := model.Outcome{URL: rawURL}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		outcome.Err = err
		return outcome
	}
	req.Header.Set("User-Agent", f.userAgent)
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}
	if f.cookie != "" {
		req.Header.Set("Cookie", f.cookie)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		outcome.Err = err
		outcome.Elapsed = time.Since(start)
		return outcome
	}
	defer resp.Body.Close()

	outcome.StatusCode = resp.StatusCode
	outcome.ContentType = resp.Header.Get("Content-Type")

	if IsTextual(outcome.ContentType) {
		// A body cut short still yields the links read so far; the status
		// line has already decided health.
		body, _ := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize)) //nolint:errcheck // partial body is usable
		outcome.Body = body
	}

	outcome.Elapsed = time.Since(start)
	return outcome
}
