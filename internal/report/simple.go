package report

import (
	"io"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/nao1215/linkcheck/internal/model"
)

// separator underlines the summary header.
const separator = "---------------"

// SimpleWriter outputs the console summary:
//
//	Link check done
//	---------------
//	Links OK: 41
//	Links broken: 1
//	---------------
//	Code 404 for http://localhost:3000/missing.html in
//	 - http://localhost:3000/index.html
type SimpleWriter struct {
	baseWriter

	printer *message.Printer

	// verbose adds the start URL, run ID and duration of each crawl.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithLanguage formats counts for the given language (e.g. 1,234 vs 1.234).
func WithLanguage(tag language.Tag) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.printer = message.NewPrinter(tag)
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		printer:    message.NewPrinter(language.English),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs one summary block per result.
func (w *SimpleWriter) Write(results ...*model.Result) (int, error) {
	var sb strings.Builder
	for _, r := range results {
		w.writeSummary(&sb, r)
		w.writeFailures(&sb, r)
	}
	return io.WriteString(w.output, sb.String())
}

func (w *SimpleWriter) writeSummary(sb *strings.Builder, r *model.Result) {
	// The progress line has no trailing newline.
	sb.WriteString("\nLink check done\n")
	if w.verbose {
		sb.WriteString(w.printer.Sprintf("Start URL: %s\n", r.StartURL))
		sb.WriteString(w.printer.Sprintf("Run ID: %s\n", r.ID))
		sb.WriteString(w.printer.Sprintf("Duration: %s\n", r.Duration.Round(time.Millisecond)))
	}
	sb.WriteString(separator + "\n")
	sb.WriteString(w.printer.Sprintf("Links OK: %d\n", r.OK))
	sb.WriteString(w.printer.Sprintf("Links broken: %d\n", r.Broken))
	sb.WriteString(separator + "\n")
}

func (w *SimpleWriter) writeFailures(sb *strings.Builder, r *model.Result) {
	for _, f := range r.Failures {
		sb.WriteString(w.printer.Sprintf("Code %s for %s in\n", f.Code, f.URL))
		for _, ref := range f.Referrers {
			sb.WriteString(" - " + ref + "\n")
		}
	}
}
