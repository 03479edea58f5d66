package crawler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/nao1215/triesearch/internal/model"
)

// ErrInvalidStartURL is returned when the seed URL cannot be crawled.
var ErrInvalidStartURL = errors.New("invalid start URL")

// Spider crawls a site breadth-first and collects the words of every page.
//
// A URL is visited only if its depth is within the limit, it has not been
// visited by this Spider before, it uses http or https, it passes the
// ignore/follow patterns and it starts with one of the allowed prefixes.
// Without an allow-list the seed's host is the only allowed host.
//
// The visited set belongs to the Spider. Two Spiders never share state, and
// Reset starts a Spider over.
type Spider struct {
	// client performs the requests. It decides direct vs proxied transport.
	client *http.Client

	// maxDepth limits how many links away from the seed to go.
	// 0 means only the seed, 1 means the seed and the pages it links to.
	maxDepth int

	// maxPages limits the total number of pages fetched by one Crawl.
	maxPages int

	// delay is the time to wait between requests.
	delay time.Duration

	// userAgent is the User-Agent header to use.
	userAgent string

	// maxBodySize limits the size of response bodies to read.
	maxBodySize int64

	// allowedPrefixes are URL prefixes a link must start with to be crawled.
	allowedPrefixes []string

	// ignorePatterns are URL path patterns to skip.
	ignorePatterns []string

	// followPatterns, if set, are the only URL path patterns crawled.
	followPatterns []string

	// followImages enqueues <img src> targets so their EXIF text is indexed.
	followImages bool

	logger *slog.Logger

	// visited tracks normalized URLs already dequeued.
	visited map[string]bool

	mutex sync.Mutex

	// pageCount tracks pages fetched since the last Reset.
	pageCount int

	// skipped tracks URLs that failed to fetch since the last Reset.
	skipped int
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithMaxDepth sets the maximum crawl depth.
func WithMaxDepth(depth int) SpiderOption {
	return func(s *Spider) {
		s.maxDepth = depth
	}
}

// WithMaxPages sets the maximum number of pages fetched per crawl.
func WithMaxPages(maxPages int) SpiderOption {
	return func(s *Spider) {
		s.maxPages = maxPages
	}
}

// WithDelay sets the delay between requests.
func WithDelay(d time.Duration) SpiderOption {
	return func(s *Spider) {
		s.delay = d
	}
}

// WithSpiderUserAgent sets a custom User-Agent header.
func WithSpiderUserAgent(ua string) SpiderOption {
	return func(s *Spider) {
		s.userAgent = ua
	}
}

// WithSpiderMaxBodySize sets the maximum response body size.
// Values below 1 keep the default.
func WithSpiderMaxBodySize(size int64) SpiderOption {
	return func(s *Spider) {
		if size > 0 {
			s.maxBodySize = size
		}
	}
}

// WithAllowedDomains restricts crawling to URLs starting with one of the
// given prefixes, e.g. "https://example.com".
func WithAllowedDomains(prefixes []string) SpiderOption {
	return func(s *Spider) {
		s.allowedPrefixes = prefixes
	}
}

// WithIgnorePatterns sets URL path patterns to skip during crawling.
// Patterns use glob syntax (e.g., "/admin/*", "*.pdf", "/logout*").
func WithIgnorePatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.ignorePatterns = patterns
	}
}

// WithFollowPatterns sets URL path patterns to follow during crawling.
// If set, only URLs matching at least one pattern are crawled.
func WithFollowPatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.followPatterns = patterns
	}
}

// WithFollowImages makes the spider fetch linked images and index the text
// stored in their EXIF metadata.
func WithFollowImages(follow bool) SpiderOption {
	return func(s *Spider) {
		s.followImages = follow
	}
}

// WithSpiderLogger sets the logger for per-URL debug output.
func WithSpiderLogger(logger *slog.Logger) SpiderOption {
	return func(s *Spider) {
		s.logger = logger
	}
}

// NewSpider creates a new Spider with the given HTTP client.
//
// Design decision: The client is injected so the transport package decides
// between a direct connection, a SOCKS5 proxy and an embedded Tor daemon,
// and tests can point the spider at an httptest server.
func NewSpider(client *http.Client, opts ...SpiderOption) *Spider {
	s := &Spider{
		client:      client,
		maxDepth:    1,
		maxPages:    100,
		userAgent:   "triesearch/1.0 (+https://github.com/nao1215/triesearch)",
		maxBodySize: model.MaxPageSize,
		visited:     make(map[string]bool),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}

	return s
}

// Crawl visits the site breadth-first from startURL and returns the pages
// in visiting order. Fetch failures are skipped. On cancellation the pages
// collected so far are returned along with the context error.
func (s *Spider) Crawl(ctx context.Context, startURL string) (*model.CrawlResult, error) {
	start, err := parseStartURL(startURL)
	if err != nil {
		return nil, err
	}

	result := model.NewCrawlResult(start.String(), s.maxDepth)
	defer func() { result.FinishedAt = time.Now() }()

	queue := []queueItem{{url: start.String(), depth: 0}}
	fetched := 0

	for len(queue) > 0 && fetched < s.maxPages {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		item := queue[0]
		queue = queue[1:]

		if !s.isCrawlable(start, item.url, item.depth) {
			continue
		}
		s.markVisited(item.url)

		page, links, err := s.fetchPage(ctx, item.url)
		if err != nil {
			s.logger.Debug("skipping page", "url", item.url, "error", err)
			s.mutex.Lock()
			s.skipped++
			s.mutex.Unlock()
			result.Skipped++
			continue
		}
		page.Depth = item.depth

		result.AddPage(page)
		fetched++
		s.mutex.Lock()
		s.pageCount++
		s.mutex.Unlock()

		if item.depth < s.maxDepth {
			for _, link := range links {
				if s.isCrawlable(start, link, item.depth+1) {
					queue = append(queue, queueItem{url: link, depth: item.depth + 1})
				}
			}
		}

		if s.delay > 0 && len(queue) > 0 {
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			case <-time.After(s.delay):
			}
		}
	}

	return result, nil
}

// queueItem represents an item in the crawl queue.
type queueItem struct {
	url   string
	depth int
}

// parseStartURL validates the seed. A missing scheme defaults to https,
// or http for .onion hosts which are reached through Tor without TLS.
func parseStartURL(startURL string) (*url.URL, error) {
	raw := strings.TrimSpace(startURL)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidStartURL)
	}
	if !strings.Contains(raw, "://") {
		scheme := "https://"
		host, _, _ := strings.Cut(raw, "/")
		if strings.HasSuffix(strings.ToLower(host), ".onion") {
			scheme = "http://"
		}
		raw = scheme + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidStartURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidStartURL, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidStartURL)
	}
	return u, nil
}

// isCrawlable applies every admission rule to a URL about to be queued or
// dequeued.
func (s *Spider) isCrawlable(start *url.URL, target string, depth int) bool {
	if depth > s.maxDepth || s.isVisited(target) {
		return false
	}

	u, err := url.Parse(target)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}

	if !s.isAllowed(start, u, target) {
		return false
	}

	return s.shouldCrawl(u)
}

// isAllowed checks the allow-list, or the seed host when there is none.
func (s *Spider) isAllowed(start, u *url.URL, target string) bool {
	if len(s.allowedPrefixes) == 0 {
		return strings.EqualFold(u.Host, start.Host)
	}
	for _, prefix := range s.allowedPrefixes {
		if strings.HasPrefix(target, prefix) {
			return true
		}
	}
	return false
}

// fetchPage fetches a single URL and extracts its words and links.
func (s *Spider) fetchPage(ctx context.Context, pageURL string) (*model.Page, []string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, nil, err
	}

	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/*;q=0.8,*/*;q=0.7")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBodySize))
	if err != nil {
		return nil, nil, err
	}

	page := &model.Page{
		URL:         pageURL,
		StatusCode:  resp.StatusCode,
		Headers:     resp.Header,
		ContentType: resp.Header.Get("Content-Type"),
		Raw:         body,
		FetchedAt:   time.Now(),
	}
	page.TruncateRaw()
	page.ComputeHash()

	var links []string
	switch {
	case page.IsHTML():
		parser, err := NewParser(pageURL)
		if err != nil {
			return nil, nil, err
		}
		parsed, err := parser.Parse(bytes.NewReader(body))
		if err != nil {
			return nil, nil, err
		}
		page.Title = parsed.Title
		page.Words = parsed.Words()
		page.Links = parsed.Links
		links = parsed.Links
		if s.followImages {
			links = append(links, parsed.Images...)
		}
	case page.IsImage():
		page.Words = ExtractEXIFWords(body)
	case strings.HasPrefix(page.ContentType, "text/"):
		page.Words = strings.Fields(string(body))
	}

	if page.Words == nil {
		page.Words = []string{}
	}

	return page, links, nil
}

// isVisited checks if a URL has been visited.
func (s *Spider) isVisited(pageURL string) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.visited[normalizeURL(pageURL)]
}

// markVisited marks a URL as visited.
func (s *Spider) markVisited(pageURL string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.visited[normalizeURL(pageURL)] = true
}

// normalizeURL normalizes a URL for deduplication: the fragment is dropped,
// scheme and host are lowercased and an empty path becomes "/".
func normalizeURL(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return pageURL
	}

	u.Fragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if u.Path == "" {
		u.Path = "/"
	}

	return u.String()
}

// Reset clears the spider's state, allowing it to crawl visited URLs again.
func (s *Spider) Reset() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.visited = make(map[string]bool)
	s.pageCount = 0
	s.skipped = 0
}

// Stats returns current crawl statistics.
func (s *Spider) Stats() SpiderStats {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return SpiderStats{
		PagesVisited: s.pageCount,
		URLsSeen:     len(s.visited),
		Skipped:      s.skipped,
	}
}

// SpiderStats contains crawl statistics.
type SpiderStats struct {
	// PagesVisited is the number of pages successfully fetched.
	PagesVisited int

	// URLsSeen is the number of unique URLs dequeued.
	URLsSeen int

	// Skipped is the number of URLs that failed to fetch.
	Skipped int
}

// shouldCrawl checks a URL against the ignore and follow patterns.
// Ignore wins; with follow patterns set, one of them must match.
func (s *Spider) shouldCrawl(u *url.URL) bool {
	path := u.Path
	if path == "" {
		path = "/"
	}

	for _, pattern := range s.ignorePatterns {
		if matchPattern(pattern, path) {
			return false
		}
	}

	if len(s.followPatterns) == 0 {
		return true
	}
	for _, pattern := range s.followPatterns {
		if matchPattern(pattern, path) {
			return true
		}
	}
	return false
}

// matchPattern checks if a path matches a glob pattern.
//
// Examples:
//   - "/admin/*" matches "/admin", "/admin/dashboard"
//   - "*.pdf" matches "/docs/file.pdf"
//   - "/api/v?" matches "/api/v1", "/api/v2"
func matchPattern(pattern, path string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
		if strings.HasPrefix(path, prefix+"/") || path == prefix {
			return true
		}
	}

	if ext, ok := strings.CutPrefix(pattern, "*"); ok && strings.HasPrefix(ext, ".") {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}

	if matched, err := filepath.Match(pattern, path); err == nil && matched {
		return true
	}

	if strings.Contains(pattern, "*") && !strings.Contains(pattern, "/") {
		if matched, err := filepath.Match(pattern, filepath.Base(path)); err == nil && matched {
			return true
		}
	}

	return false
}

// CrawlSite crawls startURL to depth with a fresh Spider and returns the
// words of every visited page keyed by URL.
func CrawlSite(ctx context.Context, client *http.Client, startURL string, depth int, opts ...SpiderOption) (map[string][]string, error) {
	opts = append(opts, WithMaxDepth(depth))
	result, err := NewSpider(client, opts...).Crawl(ctx, startURL)
	if err != nil {
		return nil, err
	}
	return result.Words(), nil
}
