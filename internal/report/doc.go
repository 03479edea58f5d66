// Package report renders search results.
//
//   - SimpleWriter: a Word/URL table for the terminal
//   - JSONWriter: structured output for scripts
//   - MarkdownWriter: a shareable document with a mermaid chart
//
// All writers take a *model.SearchReport, so the CLI can pick the format
// once and reuse the writer for every query.
package report
