package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/triesearch/internal/model"
)

// SimpleWriter outputs a plain text table with one row per (word, URL)
// pair, for terminal display.
//
// Design decision: Plain ASCII rather than ANSI colors so the output can
// be piped to files or grep without escape codes.
type SimpleWriter struct {
	baseWriter

	// verbose adds the index summary after the table.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose adds index statistics below the results.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the report. An empty report prints a single
// "No results found" line.
func (w *SimpleWriter) Write(report *model.SearchReport) (int, error) {
	var sb strings.Builder

	if !report.HasResults() {
		fmt.Fprintf(&sb, "No results found for '%s'.\n", report.Query)
	} else {
		w.writeTable(&sb, report)
	}

	if w.verbose {
		w.writeSummary(&sb, report)
	}

	return io.WriteString(w.output, sb.String())
}

// writeTable writes the title and a two-column Word/URL table.
func (w *SimpleWriter) writeTable(sb *strings.Builder, report *model.SearchReport) {
	wordWidth := len("Word")
	urlWidth := len("URL")
	for _, res := range report.Results {
		wordWidth = max(wordWidth, len(res.Word))
		for _, u := range res.URLs {
			urlWidth = max(urlWidth, len(u))
		}
	}

	rule := "+" + strings.Repeat("-", wordWidth+2) + "+" + strings.Repeat("-", urlWidth+2) + "+\n"

	fmt.Fprintf(sb, "Wildcard Search Results for '%s'\n", report.Query)
	sb.WriteString(rule)
	fmt.Fprintf(sb, "| %-*s | %-*s |\n", wordWidth, "Word", urlWidth, "URL")
	sb.WriteString(rule)
	for _, res := range report.Results {
		for _, u := range res.URLs {
			fmt.Fprintf(sb, "| %-*s | %-*s |\n", wordWidth, res.Word, urlWidth, u)
		}
	}
	sb.WriteString(rule)
}

// writeSummary writes match and index counts.
func (w *SimpleWriter) writeSummary(sb *strings.Builder, report *model.SearchReport) {
	fmt.Fprintf(sb, "%d word(s) matched on %d page(s); index holds %d word(s) from %d page(s)\n",
		len(report.Results),
		len(report.UniqueURLs()),
		report.WordsIndexed,
		report.PagesIndexed,
	)
}
