package model

import "time"

// SearchResult is one indexed word that matched a query and the URLs it
// occurs on, sorted.
type SearchResult struct {
	Word string   `json:"word"`
	URLs []string `json:"urls"`
}

// SearchReport is the answer to one query.
type SearchReport struct {
	// Query is the pattern as run against the index (lowercased).
	Query string `json:"query"`

	// Seeds are the start URLs the index was built from.
	Seeds []string `json:"seeds,omitempty"`

	// PagesIndexed is the number of pages in the index.
	PagesIndexed int `json:"pages_indexed"`

	// WordsIndexed is the number of distinct words in the index.
	WordsIndexed int `json:"words_indexed"`

	// Results are the matches in ascending word order.
	Results []SearchResult `json:"results"`

	// GeneratedAt is when the query ran.
	GeneratedAt time.Time `json:"generated_at"`
}

// NewSearchReport creates an empty report for query.
func NewSearchReport(query string) *SearchReport {
	return &SearchReport{
		Query:       query,
		Results:     make([]SearchResult, 0),
		GeneratedAt: time.Now(),
	}
}

// HasResults reports whether anything matched.
func (r *SearchReport) HasResults() bool {
	return len(r.Results) > 0
}

// TotalURLs returns the number of (word, URL) rows in the report.
func (r *SearchReport) TotalURLs() int {
	n := 0
	for _, res := range r.Results {
		n += len(res.URLs)
	}
	return n
}

// UniqueURLs returns the distinct URLs across all results, in first-seen order.
func (r *SearchReport) UniqueURLs() []string {
	seen := make(map[string]struct{})
	urls := make([]string, 0)
	for _, res := range r.Results {
		for _, u := range res.URLs {
			if _, ok := seen[u]; ok {
				continue
			}
			seen[u] = struct{}{}
			urls = append(urls, u)
		}
	}
	return urls
}
