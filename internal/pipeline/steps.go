package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/nao1215/triesearch/internal/config"
	"github.com/nao1215/triesearch/internal/crawler"
	"github.com/nao1215/triesearch/internal/index"
	"github.com/nao1215/triesearch/internal/model"
	"github.com/nao1215/triesearch/internal/transport"
)

// ErrNoCrawlResult is returned by steps that need the crawl output when the
// crawl step has not run.
var ErrNoCrawlResult = errors.New("no crawl result in report")

// CrawlStep crawls the report's seed with a fresh Spider.
type CrawlStep struct {
	// client performs the requests; it decides the transport.
	client *http.Client

	maxDepth       int
	maxPages       int
	delay          time.Duration
	userAgent      string
	maxBodySize    int64
	allowedDomains []string
	ignorePatterns []string
	followPatterns []string
	followImages   bool

	logger *slog.Logger
}

// CrawlStepOption configures a CrawlStep.
type CrawlStepOption func(*CrawlStep)

// WithCrawlMaxDepth sets the maximum crawl depth.
func WithCrawlMaxDepth(depth int) CrawlStepOption {
	return func(s *CrawlStep) {
		s.maxDepth = depth
	}
}

// WithCrawlMaxPages sets the maximum pages to crawl.
func WithCrawlMaxPages(maxPages int) CrawlStepOption {
	return func(s *CrawlStep) {
		s.maxPages = maxPages
	}
}

// WithCrawlDelay sets the delay between requests.
func WithCrawlDelay(d time.Duration) CrawlStepOption {
	return func(s *CrawlStep) {
		s.delay = d
	}
}

// WithCrawlLogger sets a custom logger for the crawl step.
func WithCrawlLogger(logger *slog.Logger) CrawlStepOption {
	return func(s *CrawlStep) {
		s.logger = logger
	}
}

// WithCrawlAllowedDomains restricts crawling to URLs with these prefixes.
func WithCrawlAllowedDomains(prefixes []string) CrawlStepOption {
	return func(s *CrawlStep) {
		s.allowedDomains = prefixes
	}
}

// WithCrawlIgnorePatterns sets URL path patterns to skip during crawling.
func WithCrawlIgnorePatterns(patterns []string) CrawlStepOption {
	return func(s *CrawlStep) {
		s.ignorePatterns = patterns
	}
}

// WithCrawlFollowPatterns sets URL path patterns to follow during crawling.
func WithCrawlFollowPatterns(patterns []string) CrawlStepOption {
	return func(s *CrawlStep) {
		s.followPatterns = patterns
	}
}

// WithCrawlFollowImages enables indexing of EXIF text in linked images.
func WithCrawlFollowImages(follow bool) CrawlStepOption {
	return func(s *CrawlStep) {
		s.followImages = follow
	}
}

// WithCrawlUserAgent sets the User-Agent header for HTTP requests.
func WithCrawlUserAgent(userAgent string) CrawlStepOption {
	return func(s *CrawlStep) {
		s.userAgent = userAgent
	}
}

// WithCrawlMaxBodySize sets the maximum response body size in bytes.
func WithCrawlMaxBodySize(maxBodySize int64) CrawlStepOption {
	return func(s *CrawlStep) {
		s.maxBodySize = maxBodySize
	}
}

// NewCrawlStep creates a new crawling step.
func NewCrawlStep(client *http.Client, opts ...CrawlStepOption) *CrawlStep {
	s := &CrawlStep{
		client:      client,
		maxDepth:    config.DefaultCrawlDepth,
		maxPages:    config.DefaultMaxPages,
		delay:       config.DefaultCrawlDelay,
		userAgent:   config.DefaultUserAgent,
		maxBodySize: config.DefaultMaxBodySize,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *CrawlStep) Name() string {
	return "crawl"
}

// Do crawls report.Seed. A cancelled crawl keeps its partial result and is
// not treated as a step failure; the pipeline notices the context before
// the next step.
func (s *CrawlStep) Do(ctx context.Context, report *model.IndexReport) error {
	spiderOpts := []crawler.SpiderOption{
		crawler.WithMaxDepth(s.maxDepth),
		crawler.WithMaxPages(s.maxPages),
		crawler.WithDelay(s.delay),
		crawler.WithSpiderUserAgent(s.userAgent),
		crawler.WithSpiderMaxBodySize(s.maxBodySize),
		crawler.WithFollowImages(s.followImages),
		crawler.WithSpiderLogger(s.logger),
	}
	if len(s.allowedDomains) > 0 {
		spiderOpts = append(spiderOpts, crawler.WithAllowedDomains(s.allowedDomains))
	}
	if len(s.ignorePatterns) > 0 {
		spiderOpts = append(spiderOpts, crawler.WithIgnorePatterns(s.ignorePatterns))
	}
	if len(s.followPatterns) > 0 {
		spiderOpts = append(spiderOpts, crawler.WithFollowPatterns(s.followPatterns))
	}

	spider := crawler.NewSpider(s.client, spiderOpts...)

	result, err := spider.Crawl(ctx, report.Seed)
	if result == nil {
		return err
	}
	report.Crawl = result
	if err != nil {
		s.logger.Warn("crawl completed with error", "seed", report.Seed, "error", err)
	}

	stats := spider.Stats()
	s.logger.Info("crawl completed",
		"seed", report.Seed,
		"pages_visited", stats.PagesVisited,
		"urls_seen", stats.URLsSeen,
		"skipped", stats.Skipped,
	)

	return nil
}

// CrawlSaver stores a crawl result and returns its run ID.
// *database.PageStore satisfies it.
type CrawlSaver interface {
	SaveCrawl(ctx context.Context, result *model.CrawlResult) (int64, error)
}

// StoreStep saves the crawled pages so the index can be rebuilt later
// without crawling.
type StoreStep struct {
	store  CrawlSaver
	logger *slog.Logger
}

// StoreStepOption configures a StoreStep.
type StoreStepOption func(*StoreStep)

// WithStoreLogger sets a custom logger for the store step.
func WithStoreLogger(logger *slog.Logger) StoreStepOption {
	return func(s *StoreStep) {
		s.logger = logger
	}
}

// NewStoreStep creates a step that saves crawl results to store.
func NewStoreStep(store CrawlSaver, opts ...StoreStepOption) *StoreStep {
	s := &StoreStep{
		store:  store,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *StoreStep) Name() string {
	return "store"
}

// Do saves report.Crawl and records the run ID.
func (s *StoreStep) Do(ctx context.Context, report *model.IndexReport) error {
	if report.Crawl == nil {
		return ErrNoCrawlResult
	}

	runID, err := s.store.SaveCrawl(ctx, report.Crawl)
	if err != nil {
		return err
	}
	report.RunID = runID

	s.logger.Debug("crawl stored",
		"seed", report.Seed,
		"run_id", runID,
		"pages", report.Crawl.Len(),
	)
	return nil
}

// IndexStep feeds the crawled pages into a Builder.
//
// The builder is not safe for concurrent use. Use IndexStep only in a
// pipeline that runs on one goroutine at a time; BatchProcessor.BuildIndex
// indexes batch results itself.
type IndexStep struct {
	builder *index.Builder
}

// NewIndexStep creates a step that indexes into builder.
func NewIndexStep(builder *index.Builder) *IndexStep {
	return &IndexStep{builder: builder}
}

// Name returns the step name.
func (s *IndexStep) Name() string {
	return "index"
}

// Do indexes report.Crawl and records the number of indexed occurrences.
func (s *IndexStep) Do(_ context.Context, report *model.IndexReport) error {
	if report.Crawl == nil {
		return ErrNoCrawlResult
	}
	report.WordsIndexed = indexResult(s.builder, report.Crawl)
	return nil
}

// indexResult adds result to builder and returns how many word
// occurrences were indexed.
func indexResult(builder *index.Builder, result *model.CrawlResult) int {
	before := builder.Stats().Occurrences
	builder.AddResult(result)
	return builder.Stats().Occurrences - before
}

// DefaultPipelineConfig holds configuration for the default pipeline.
type DefaultPipelineConfig struct {
	CrawlDepth     int
	CrawlMaxPages  int
	CrawlDelay     time.Duration
	UserAgent      string
	MaxBodySize    int64
	AllowedDomains []string
	FollowImages   bool

	// Cookie and Headers are sent with every request of the crawl.
	Cookie  string
	Headers map[string]string

	IgnorePatterns []string
	FollowPatterns []string

	// Store, if set, adds a StoreStep.
	Store CrawlSaver

	// Builder, if set, adds an IndexStep.
	Builder *index.Builder
}

// DefaultPipelineOption configures a DefaultPipelineConfig.
type DefaultPipelineOption func(*DefaultPipelineConfig)

// WithPipelineCrawlDepth sets the crawl depth for the pipeline.
func WithPipelineCrawlDepth(depth int) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.CrawlDepth = depth
	}
}

// WithPipelineCrawlMaxPages sets the maximum pages to crawl.
func WithPipelineCrawlMaxPages(maxPages int) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.CrawlMaxPages = maxPages
	}
}

// WithPipelineCrawlDelay sets the delay between HTTP requests.
func WithPipelineCrawlDelay(delay time.Duration) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.CrawlDelay = delay
	}
}

// WithPipelineUserAgent sets the User-Agent header for HTTP requests.
func WithPipelineUserAgent(userAgent string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.UserAgent = userAgent
	}
}

// WithPipelineMaxBodySize sets the maximum response body size in bytes.
func WithPipelineMaxBodySize(maxBodySize int64) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.MaxBodySize = maxBodySize
	}
}

// WithPipelineAllowedDomains restricts crawling to URLs with these prefixes.
func WithPipelineAllowedDomains(prefixes []string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.AllowedDomains = prefixes
	}
}

// WithPipelineFollowImages enables indexing of EXIF text in linked images.
func WithPipelineFollowImages(follow bool) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.FollowImages = follow
	}
}

// WithPipelineCookie sets the cookie for HTTP requests.
func WithPipelineCookie(cookie string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Cookie = cookie
	}
}

// WithPipelineHeaders sets additional HTTP headers.
func WithPipelineHeaders(headers map[string]string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Headers = headers
	}
}

// WithPipelineIgnorePatterns sets URL patterns to skip during crawling.
func WithPipelineIgnorePatterns(patterns []string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.IgnorePatterns = patterns
	}
}

// WithPipelineFollowPatterns sets URL patterns to follow during crawling.
func WithPipelineFollowPatterns(patterns []string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.FollowPatterns = patterns
	}
}

// WithPipelineStore adds a StoreStep saving to store.
func WithPipelineStore(store CrawlSaver) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Store = store
	}
}

// WithPipelineBuilder adds an IndexStep feeding builder.
func WithPipelineBuilder(builder *index.Builder) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Builder = builder
	}
}

// DefaultPipeline creates the crawl → store → index pipeline for one seed.
// The store and index steps are only added when configured.
//
// The first parameter accepts pipeline options (WithLogger, etc).
// The variadic parameter accepts config options (WithPipelineCrawlDepth, etc).
func DefaultPipeline(client *transport.Client, pipelineOpts []Option, configOpts ...DefaultPipelineOption) *Pipeline {
	p := New(pipelineOpts...)

	cfg := &DefaultPipelineConfig{
		CrawlDepth:    config.DefaultCrawlDepth,
		CrawlMaxPages: config.DefaultMaxPages,
		CrawlDelay:    config.DefaultCrawlDelay,
		UserAgent:     config.DefaultUserAgent,
		MaxBodySize:   config.DefaultMaxBodySize,
	}
	for _, opt := range configOpts {
		opt(cfg)
	}

	httpClient := client.HTTPClientWithConfig(cfg.Cookie, cfg.Headers)

	p.AddStep(NewCrawlStep(httpClient,
		WithCrawlMaxDepth(cfg.CrawlDepth),
		WithCrawlMaxPages(cfg.CrawlMaxPages),
		WithCrawlDelay(cfg.CrawlDelay),
		WithCrawlUserAgent(cfg.UserAgent),
		WithCrawlMaxBodySize(cfg.MaxBodySize),
		WithCrawlAllowedDomains(cfg.AllowedDomains),
		WithCrawlIgnorePatterns(cfg.IgnorePatterns),
		WithCrawlFollowPatterns(cfg.FollowPatterns),
		WithCrawlFollowImages(cfg.FollowImages),
		WithCrawlLogger(p.logger),
	))

	if cfg.Store != nil {
		p.AddStep(NewStoreStep(cfg.Store, WithStoreLogger(p.logger)))
	}
	if cfg.Builder != nil {
		p.AddStep(NewIndexStep(cfg.Builder))
	}

	return p
}
