package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/linkcheck/internal/model"
)

// JSONWriter outputs results in JSON format.
// A single result is written as an object, several as an array.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string

	// version is the linkcheck version embedded in the output.
	version string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// WithVersion records the tool version in the output.
func WithVersion(version string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.version = version
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// JSONReport wraps a result with the metadata of the run that produced it.
type JSONReport struct {
	// Version is the linkcheck version.
	Version string `json:"version,omitempty"`

	// Passed is true when no broken link was found.
	Passed bool `json:"passed"`

	// DurationMillis is Result.Duration in milliseconds.
	DurationMillis int64 `json:"duration_ms"`

	*model.Result
}

func (w *JSONWriter) newJSONReport(r *model.Result) JSONReport {
	return JSONReport{
		Version:        w.version,
		Passed:         !r.Failed(),
		DurationMillis: r.Duration.Milliseconds(),
		Result:         r,
	}
}

// Write outputs the results in JSON format.
func (w *JSONWriter) Write(results ...*model.Result) (int, error) {
	if len(results) == 1 {
		return w.writeJSON(w.newJSONReport(results[0]))
	}
	reports := make([]JSONReport, 0, len(results))
	for _, r := range results {
		reports = append(reports, w.newJSONReport(r))
	}
	return w.writeJSON(reports)
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}

	// Add trailing newline for better terminal output
	data = append(data, '\n')
	return w.output.Write(data)
}
