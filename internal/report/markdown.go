package report

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/linkcheck/internal/model"
)

// maxReferrersPerCell limits how many referrers are listed in one table
// cell; the rest are summarized as "and N more".
const maxReferrersPerCell = 5

// MarkdownWriter outputs results as GitHub Flavored Markdown, suitable for
// pull request comments and CI job summaries.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs one document covering every result.
func (w *MarkdownWriter) Write(results ...*model.Result) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Link Check Report")
	md.PlainText("")

	for _, r := range results {
		w.writeSummary(md, r)
		w.writeFailures(md, r)
	}
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeSummary writes the counts table, chart and status alert of one run.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, r *model.Result) {
	md.H2(r.StartURL)
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run ID", "`" + r.ID + "`"},
			{"Started", r.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", r.Duration.Round(time.Millisecond).String()},
			{"URLs checked", strconv.Itoa(r.Registered)},
			{"Links OK", strconv.Itoa(r.OK)},
			{"Links broken", strconv.Itoa(r.Broken)},
		},
	})
	md.PlainText("")

	if r.Broken > 0 && r.OK > 0 {
		w.writePieChart(md, r)
	}

	if r.Failed() {
		md.Cautionf("%d broken link(s) found.", r.Broken)
	} else {
		md.Tip("All links are healthy.")
	}
	md.PlainText("")
}

// writePieChart writes a mermaid pie chart of healthy vs broken URLs.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, r *model.Result) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Link Health"),
		piechart.WithShowData(true),
	)
	chart.LabelAndIntValue("OK", uint64(r.OK))         //nolint:gosec // counts are non-negative
	chart.LabelAndIntValue("Broken", uint64(r.Broken)) //nolint:gosec // counts are non-negative

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeFailures writes the broken links table of one run.
func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, r *model.Result) {
	if len(r.Failures) == 0 {
		return
	}

	md.H3("Broken Links")
	md.PlainText("")

	rows := make([][]string, 0, len(r.Failures))
	for _, f := range r.Failures {
		rows = append(rows, []string{
			"`" + f.Code + "`",
			f.URL,
			formatReferrers(f.Referrers),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Code", "URL", "Referenced from"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [linkcheck](https://github.com/nao1215/linkcheck)*")
}

// formatReferrers joins referrers for a single table cell.
func formatReferrers(refs []string) string {
	if len(refs) <= maxReferrersPerCell {
		return strings.Join(refs, "<br>")
	}
	shown := strings.Join(refs[:maxReferrersPerCell], "<br>")
	return shown + "<br>and " + strconv.Itoa(len(refs)-maxReferrersPerCell) + " more"
}
