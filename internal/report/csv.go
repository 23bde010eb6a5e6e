package report

import (
	"bytes"
	"io"

	"github.com/gocarina/gocsv"

	"github.com/nao1215/linkcheck/internal/model"
)

// csvRow is one broken reference: a broken URL and one document that
// references it.
type csvRow struct {
	StartURL string `csv:"start_url"`
	URL      string `csv:"url"`
	Code     string `csv:"code"`
	Referrer string `csv:"referrer"`
}

// CSVWriter outputs one row per broken URL and referrer pair. A result
// without failures contributes no rows; the header is always written.
type CSVWriter struct {
	baseWriter
}

// NewCSVWriter creates a CSVWriter that outputs to the given writer.
func NewCSVWriter(output io.Writer) *CSVWriter {
	return &CSVWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the results as CSV.
func (w *CSVWriter) Write(results ...*model.Result) (int, error) {
	rows := make([]*csvRow, 0)
	for _, r := range results {
		for _, f := range r.Failures {
			for _, ref := range f.Referrers {
				rows = append(rows, &csvRow{
					StartURL: r.StartURL,
					URL:      f.URL,
					Code:     f.Code,
					Referrer: ref,
				})
			}
		}
	}

	var buf bytes.Buffer
	if err := gocsv.Marshal(rows, &buf); err != nil {
		return 0, err
	}
	return w.output.Write(buf.Bytes())
}
