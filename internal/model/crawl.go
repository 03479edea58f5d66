package model

import "time"

// CrawlResult holds the pages collected from one seed URL, in the order
// they were visited.
type CrawlResult struct {
	// Seed is the start URL.
	Seed string `json:"seed"`

	// MaxDepth is the depth bound the crawl ran with.
	MaxDepth int `json:"max_depth"`

	// Pages are the successfully fetched pages in BFS order.
	Pages []*Page `json:"pages"`

	// Skipped counts URLs that were dequeued but could not be fetched.
	Skipped int `json:"skipped"`

	// StartedAt and FinishedAt bound the crawl.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// NewCrawlResult creates an empty result for seed.
func NewCrawlResult(seed string, maxDepth int) *CrawlResult {
	return &CrawlResult{
		Seed:      seed,
		MaxDepth:  maxDepth,
		Pages:     make([]*Page, 0),
		StartedAt: time.Now(),
	}
}

// AddPage appends a visited page.
func (r *CrawlResult) AddPage(page *Page) {
	r.Pages = append(r.Pages, page)
}

// Words returns the URL to words mapping of the crawl.
func (r *CrawlResult) Words() map[string][]string {
	m := make(map[string][]string, len(r.Pages))
	for _, p := range r.Pages {
		m[p.URL] = p.Words
	}
	return m
}

// Page returns the page fetched from url, or nil.
func (r *CrawlResult) Page(url string) *Page {
	for _, p := range r.Pages {
		if p.URL == url {
			return p
		}
	}
	return nil
}

// Len returns the number of pages.
func (r *CrawlResult) Len() int {
	return len(r.Pages)
}

// Duration returns how long the crawl took, or zero if it has not finished.
func (r *CrawlResult) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
