package crawler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/nao1215/linkcheck/internal/model"
)

// fakePage is a canned response served by fakeSite.
type fakePage struct {
	status      int
	contentType string
	body        string
	err         error
}

// fakeSite is an in-memory Fetcher. Unknown URLs answer 404 text/plain.
// It records how often each URL was fetched and the peak number of
// concurrent fetches.
type fakeSite struct {
	pages map[string]fakePage
	delay time.Duration

	mu        sync.Mutex
	calls     map[string]int
	active    int
	maxActive int
}

func newFakeSite(pages map[string]fakePage) *fakeSite {
	return &fakeSite{pages: pages, calls: make(map[string]int)}
}

func (f *fakeSite) Fetch(ctx context.Context, rawURL string) model.Outcome {
	f.mu.Lock()
	f.calls[rawURL]++
	f.active++
	if f.active > f.maxActive {
		f.maxActive = f.active
	}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.active--
		f.mu.Unlock()
	}()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return model.Outcome{URL: rawURL, Err: ctx.Err()}
		}
	}

	page, ok := f.pages[rawURL]
	if !ok {
		page = fakePage{status: http.StatusNotFound, contentType: "text/plain"}
	}
	if page.err != nil {
		return model.Outcome{URL: rawURL, Err: page.err}
	}
	return model.Outcome{
		URL:         rawURL,
		StatusCode:  page.status,
		ContentType: page.contentType,
		Body:        []byte(page.body),
	}
}

func (f *fakeSite) callCount(rawURL string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[rawURL]
}

func (f *fakeSite) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

func (f *fakeSite) peak() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxActive
}

func htmlPage(body string) fakePage {
	return fakePage{status: http.StatusOK, contentType: "text/html; charset=utf-8", body: body}
}
