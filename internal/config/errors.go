package config

import "errors"

// Configuration validation errors returned by Config.Validate.
//
// Design decision: Package-level sentinels so callers can use errors.Is;
// none of the messages need dynamic values.
var (
	// ErrNoTarget is returned when no seed URL is given and the index is not
	// loaded from the page store.
	ErrNoTarget = errors.New("no target specified: provide a seed URL or use --from-db")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidDepth is returned when the crawl depth is negative.
	ErrInvalidDepth = errors.New("invalid crawl depth: must be non-negative")

	// ErrInvalidMaxPages is returned when the page limit is not positive.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be positive")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidCrawlDelay is returned when the crawl delay is negative.
	ErrInvalidCrawlDelay = errors.New("invalid crawl delay: must be non-negative")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidMinWordLength is returned when the minimum word length is negative.
	ErrInvalidMinWordLength = errors.New("invalid min word length: must be non-negative")

	// ErrConflictingTransports is returned when both --tor and --proxy are set.
	ErrConflictingTransports = errors.New("conflicting transports: --tor and --proxy cannot be used together")
)
