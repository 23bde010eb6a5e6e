package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"golang.org/x/text/language"

	"github.com/nao1215/linkcheck/internal/config"
	"github.com/nao1215/linkcheck/internal/model"
)

// brokenResult returns a reconciled result with one broken link.
func brokenResult() *model.Result {
	r := model.NewResult("http://localhost:3000/index.html")
	r.OK = 3
	r.Broken = 1
	r.Registered = 4
	r.Duration = 1500 * time.Millisecond
	r.Failures = []model.BrokenLink{{
		URL:  "http://localhost:3000/missing.html",
		Code: "404",
		Referrers: []string{
			"http://localhost:3000/index.html",
			"http://localhost:3000/about.html",
		},
	}}
	return r
}

// cleanResult returns a reconciled result without failures.
func cleanResult() *model.Result {
	r := model.NewResult("http://docs.example/")
	r.OK = 2
	r.Registered = 2
	return r
}

func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes summary and failures", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(brokenResult()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := "\nLink check done\n" +
			"---------------\n" +
			"Links OK: 3\n" +
			"Links broken: 1\n" +
			"---------------\n" +
			"Code 404 for http://localhost:3000/missing.html in\n" +
			" - http://localhost:3000/index.html\n" +
			" - http://localhost:3000/about.html\n"
		if buf.String() != want {
			t.Errorf("unexpected output:\n%q\nwant:\n%q", buf.String(), want)
		}
	})

	t.Run("groups large counts", func(t *testing.T) {
		t.Parallel()

		r := cleanResult()
		r.OK = 12345
		r.Registered = 12345

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf, WithLanguage(language.English)).Write(r); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "Links OK: 12,345") {
			t.Errorf("expected grouped count, got %q", buf.String())
		}
	})

	t.Run("verbose output names the run", func(t *testing.T) {
		t.Parallel()

		r := brokenResult()
		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf, WithVerbose(true)).Write(r); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, want := range []string{"Start URL: " + r.StartURL, "Run ID: " + r.ID, "Duration: 1.5s"} {
			if !strings.Contains(buf.String(), want) {
				t.Errorf("expected %q in output", want)
			}
		}
	})

	t.Run("writes one block per result", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(brokenResult(), cleanResult()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n := strings.Count(buf.String(), "Link check done"); n != 2 {
			t.Errorf("expected 2 blocks, got %d", n)
		}
	})
}

func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("single result is an object", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithVersion("v1.2.3")).Write(brokenResult()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var got map[string]any
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if got["version"] != "v1.2.3" {
			t.Errorf("expected version, got %v", got["version"])
		}
		if got["passed"] != false {
			t.Errorf("expected passed=false, got %v", got["passed"])
		}
		if got["duration_ms"] != float64(1500) {
			t.Errorf("expected duration_ms=1500, got %v", got["duration_ms"])
		}
		failures, ok := got["failures"].([]any)
		if !ok || len(failures) != 1 {
			t.Fatalf("expected 1 failure, got %v", got["failures"])
		}
	})

	t.Run("several results are an array", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithPrettyPrint()).Write(brokenResult(), cleanResult()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var got []JSONReport
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(got) != 2 || !got[1].Passed {
			t.Errorf("unexpected reports: %+v", got)
		}
		if !strings.Contains(buf.String(), "\n  ") {
			t.Error("expected indented output")
		}
	})
}

func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("lists broken links with referrers", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(brokenResult()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out := buf.String()
		for _, want := range []string{
			"# Link Check Report",
			"## http://localhost:3000/index.html",
			"### Broken Links",
			"http://localhost:3000/missing.html",
			"http://localhost:3000/about.html",
			"[!CAUTION]",
			"mermaid",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in output:\n%s", want, out)
			}
		}
	})

	t.Run("clean run shows a tip and no table", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(cleanResult()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "[!TIP]") {
			t.Error("expected tip alert")
		}
		if strings.Contains(buf.String(), "Broken Links") {
			t.Error("expected no broken links section")
		}
	})
}

func TestFormatReferrers(t *testing.T) {
	t.Parallel()

	refs := []string{"a", "b", "c", "d", "e", "f", "g"}
	if got := formatReferrers(refs); got != "a<br>b<br>c<br>d<br>e<br>and 2 more" {
		t.Errorf("unexpected cell %q", got)
	}
	if got := formatReferrers(refs[:2]); got != "a<br>b" {
		t.Errorf("unexpected cell %q", got)
	}
}

func TestCSVWriter(t *testing.T) {
	t.Parallel()

	t.Run("one row per referrer", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewCSVWriter(&buf).Write(brokenResult(), cleanResult()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		if len(lines) != 3 {
			t.Fatalf("expected header and 2 rows, got %q", lines)
		}
		if lines[0] != "start_url,url,code,referrer" {
			t.Errorf("unexpected header %q", lines[0])
		}
		if lines[1] != "http://localhost:3000/index.html,http://localhost:3000/missing.html,404,http://localhost:3000/index.html" {
			t.Errorf("unexpected row %q", lines[1])
		}
	})

	t.Run("clean run writes only the header", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewCSVWriter(&buf).Write(cleanResult()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.TrimSpace(buf.String()) != "start_url,url,code,referrer" {
			t.Errorf("unexpected output %q", buf.String())
		}
	})
}

func TestMultiWriter(t *testing.T) {
	t.Parallel()

	var text, js bytes.Buffer
	multi := NewMultiWriter(NewSimpleWriter(&text), NewJSONWriter(&js))
	if _, err := multi.Write(brokenResult()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(text.String(), "Link check done") {
		t.Error("expected text summary")
	}
	if !json.Valid(js.Bytes()) {
		t.Error("expected valid JSON")
	}
}

func TestNewWriter(t *testing.T) {
	t.Parallel()

	for _, format := range config.Formats {
		if _, err := NewWriter(format, &bytes.Buffer{}, "dev"); err != nil {
			t.Errorf("format %q: unexpected error %v", format, err)
		}
	}
	if _, err := NewWriter("yaml", &bytes.Buffer{}, "dev"); !errors.Is(err, config.ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}
}
