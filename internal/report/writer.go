package report

import (
	"fmt"
	"io"

	"github.com/nao1215/linkcheck/internal/config"
	"github.com/nao1215/linkcheck/internal/model"
)

// Writer writes crawl results in one output format.
type Writer interface {
	// Write outputs the results and returns the number of bytes written.
	Write(results ...*model.Result) (int, error)
}

// MultiWriter writes to multiple Writers in order.
// The CLI uses it to print the console summary while also writing a
// formatted report file.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the results to all configured Writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(results ...*model.Result) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(results...)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// NewWriter returns the writer for a format name from config.Formats.
func NewWriter(format string, output io.Writer, version string) (Writer, error) {
	switch format {
	case config.FormatText:
		return NewSimpleWriter(output), nil
	case config.FormatJSON:
		return NewJSONWriter(output, WithPrettyPrint(), WithVersion(version)), nil
	case config.FormatMarkdown:
		return NewMarkdownWriter(output), nil
	case config.FormatCSV:
		return NewCSVWriter(output), nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownFormat, format)
	}
}
