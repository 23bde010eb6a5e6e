package crawler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHTTPFetcherFetch(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/page.html", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<a href="/x">x</a>`)) //nolint:errcheck
	})
	mux.HandleFunc("/image.png", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("\x89PNG")) //nolint:errcheck
	})
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/page.html", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/headers", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte(r.UserAgent() + "|" + r.Header.Get("X-Token") + "|" + r.Header.Get("Cookie"))) //nolint:errcheck
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	})
	mux.HandleFunc("/big", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte(strings.Repeat("a", 4096))) //nolint:errcheck
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	ctx := context.Background()

	t.Run("reads text bodies", func(t *testing.T) {
		t.Parallel()

		o := NewHTTPFetcher().Fetch(ctx, server.URL+"/page.html")
		if o.Err != nil || o.StatusCode != http.StatusOK {
			t.Fatalf("unexpected outcome: %+v", o)
		}
		if string(o.Body) != `<a href="/x">x</a>` {
			t.Errorf("unexpected body %q", o.Body)
		}
		if !o.Healthy() {
			t.Error("expected healthy outcome")
		}
	})

	t.Run("skips binary bodies", func(t *testing.T) {
		t.Parallel()

		o := NewHTTPFetcher().Fetch(ctx, server.URL+"/image.png")
		if o.StatusCode != http.StatusOK || o.Body != nil {
			t.Errorf("expected 200 without body, got %d and %q", o.StatusCode, o.Body)
		}
	})

	t.Run("does not follow redirects", func(t *testing.T) {
		t.Parallel()

		o := NewHTTPFetcher().Fetch(ctx, server.URL+"/old")
		if o.StatusCode != http.StatusMovedPermanently {
			t.Errorf("expected 301, got %d", o.StatusCode)
		}
		if o.Healthy() {
			t.Error("expected redirect to be broken")
		}
	})

	t.Run("sends user agent headers and cookie", func(t *testing.T) {
		t.Parallel()

		f := NewHTTPFetcher(
			WithUserAgent("test-agent"),
			WithHeaders(map[string]string{"X-Token": "abc"}),
			WithCookie("session=1"),
		)
		o := f.Fetch(ctx, server.URL+"/headers")
		if string(o.Body) != "test-agent|abc|session=1" {
			t.Errorf("unexpected echo %q", o.Body)
		}
	})

	t.Run("times out", func(t *testing.T) {
		t.Parallel()

		o := NewHTTPFetcher(WithTimeout(50*time.Millisecond)).Fetch(ctx, server.URL+"/slow")
		if o.Err == nil {
			t.Fatal("expected timeout error")
		}
		if o.Code() != "ETIMEDOUT" {
			t.Errorf("expected ETIMEDOUT, got %q", o.Code())
		}
	})

	t.Run("caps the body size", func(t *testing.T) {
		t.Parallel()

		o := NewHTTPFetcher(WithMaxBodySize(100)).Fetch(ctx, server.URL+"/big")
		if len(o.Body) != 100 {
			t.Errorf("expected 100 bytes, got %d", len(o.Body))
		}
	})

	t.Run("reports connection failures", func(t *testing.T) {
		t.Parallel()

		closed := httptest.NewServer(http.NotFoundHandler())
		addr := closed.URL
		closed.Close()

		o := NewHTTPFetcher().Fetch(ctx, addr+"/")
		if o.Err == nil || o.Healthy() {
			t.Fatalf("expected transport failure, got %+v", o)
		}
		if o.Code() != "ECONNREFUSED" {
			t.Errorf("expected ECONNREFUSED, got %q", o.Code())
		}
	})
}
