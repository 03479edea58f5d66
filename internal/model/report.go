package model

import "time"

// IndexReport is the state threaded through the pipeline for one seed.
// Each step reads what the previous steps left and adds its own output.
//
// Design decision: One mutable struct per seed, like a scan report, keeps
// step signatures uniform and lets a failed pipeline still return whatever
// was collected before the failure.
type IndexReport struct {
	// Seed is the start URL of the crawl.
	Seed string `json:"seed"`

	// RunID is the page store run identifier, or 0 when nothing was stored.
	RunID int64 `json:"run_id,omitempty"`

	// Crawl is the crawl output. Nil until the crawl step has run.
	Crawl *CrawlResult `json:"crawl,omitempty"`

	// WordsIndexed is the number of word occurrences fed to the index.
	WordsIndexed int `json:"words_indexed"`

	// DateStarted is when the pipeline started.
	DateStarted time.Time `json:"date_started"`

	// PerformedSteps lists the steps that ran, in order.
	PerformedSteps []string `json:"performed_steps,omitempty"`

	// Cancelled is true if the context ended before all steps ran.
	Cancelled bool `json:"cancelled"`

	// Error is the step failure, if any.
	Error error `json:"-"`

	// ErrorMessage is Error as a string for serialization.
	ErrorMessage string `json:"error,omitempty"` //nolint:tagliatelle // error is conventional
}

// NewIndexReport creates a report for seed.
func NewIndexReport(seed string) *IndexReport {
	return &IndexReport{
		Seed:        seed,
		DateStarted: time.Now(),
	}
}

// Pages returns the crawled pages, or nil before the crawl step.
func (r *IndexReport) Pages() []*Page {
	if r.Crawl == nil {
		return nil
	}
	return r.Crawl.Pages
}

// SetError records err on the report.
func (r *IndexReport) SetError(err error) {
	r.Error = err
	if err != nil {
		r.ErrorMessage = err.Error()
	}
}
