package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/triesearch/internal/model"
)

// MarkdownWriter outputs reports as GitHub-flavored Markdown for sharing.
//
// Design decision: nao1215/markdown builds tables, alerts and mermaid
// blocks without hand-escaping pipes and fences.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *model.SearchReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeResults(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the title and the query summary table.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.SearchReport) {
	md.H1("Search Report")
	md.PlainText("")

	seeds := "-"
	if len(report.Seeds) > 0 {
		quoted := make([]string, len(report.Seeds))
		for i, s := range report.Seeds {
			quoted[i] = "`" + s + "`"
		}
		seeds = strings.Join(quoted, "<br>")
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Query", "`" + report.Query + "`"},
			{"Seeds", seeds},
			{"Pages Indexed", strconv.Itoa(report.PagesIndexed)},
			{"Words Indexed", strconv.Itoa(report.WordsIndexed)},
			{"Generated", report.GeneratedAt.Format("2006-01-02 15:04:05 MST")},
		},
	})
	md.PlainText("")
}

// writeResults writes the match table, the chart and an alert.
func (w *MarkdownWriter) writeResults(md *markdown.Markdown, report *model.SearchReport) {
	md.H2("Results")
	md.PlainText("")

	if !report.HasResults() {
		md.Note(fmt.Sprintf("No results found for '%s'.", report.Query))
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, report.TotalURLs())
	for _, res := range report.Results {
		for _, u := range res.URLs {
			rows = append(rows, []string{res.Word, u})
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Word", "URL"},
		Rows:   rows,
	})
	md.PlainText("")

	if len(report.Results) > 1 {
		w.writePieChart(md, report)
	}

	md.Tip(fmt.Sprintf("%d word(s) matched across %d page(s).",
		len(report.Results), len(report.UniqueURLs())))
	md.PlainText("")
}

// writePieChart writes a mermaid pie chart of URL counts per matched word.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, report *model.SearchReport) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Pages per Matched Word"),
		piechart.WithShowData(true),
	)

	for _, res := range report.Results {
		chart.LabelAndIntValue(res.Word, uint64(len(res.URLs)))
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainText("*Report generated by [triesearch](https://github.com/nao1215/triesearch)*")
}
