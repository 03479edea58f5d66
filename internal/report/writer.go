package report

import (
	"io"

	"github.com/nao1215/triesearch/internal/model"
)

// Writer renders a search report.
//
// Design decision: An interface lets the CLI pick the format once and
// hand the same writer to every query, whether the destination is a
// terminal, a file or a pipe.
type Writer interface {
	// Write outputs the report and returns the number of bytes written.
	Write(report *model.SearchReport) (int, error)
}

// MultiWriter writes every report to several Writers.
// This is useful for printing to the terminal while saving to a file.
//
// Design decision: Not io.MultiWriter, because each Writer may render a
// different format for the same report.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to all configured Writers.
// Returns the total bytes written and stops on the first error.
func (m *MultiWriter) Write(report *model.SearchReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter holds the output destination shared by all writers.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}
