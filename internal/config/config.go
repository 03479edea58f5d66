package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// DefaultTorProxyAddress is the standard Tor SOCKS5 proxy address.
	DefaultTorProxyAddress = "127.0.0.1:9050"

	// DefaultTimeout bounds a single HTTP request.
	DefaultTimeout = 30 * time.Second

	// DefaultCrawlDepth follows the links of the seed page but not theirs.
	DefaultCrawlDepth = 1

	// DefaultBatchSize is the number of seeds crawled concurrently.
	DefaultBatchSize = 4

	// DefaultMaxPages is the maximum number of pages fetched per seed.
	DefaultMaxPages = 100

	// AppName is the application name used for XDG directory paths.
	AppName = "triesearch"

	// DefaultCrawlDelay is the delay between requests to the same seed.
	DefaultCrawlDelay = 0 * time.Second

	// DefaultUserAgent identifies triesearch in HTTP requests.
	DefaultUserAgent = "triesearch/1.0 (+https://github.com/nao1215/triesearch)"

	// DefaultMaxBodySize limits the maximum response body size to read.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultTorStartupTimeout is the maximum time to wait for the embedded
	// Tor daemon to bootstrap.
	DefaultTorStartupTimeout = 3 * time.Minute
)

// Config holds all configuration options for triesearch.
// It is populated from CLI flags and the optional YAML file and passed
// down explicitly; nothing reads global state.
//
// Design decision: A single flat struct. The option count is small enough
// that nesting would add indirection without making anything clearer.
type Config struct {
	// Seeds are the start URLs to crawl.
	Seeds []string

	// Timeout is the per-request timeout.
	Timeout time.Duration

	// CrawlDepth is the maximum number of links followed from a seed.
	// Depth 0 fetches only the seed.
	CrawlDepth int

	// MaxPages is the maximum number of pages fetched per seed.
	MaxPages int

	// BatchSize is the number of seeds crawled concurrently.
	BatchSize int

	// CrawlDelay is the delay between requests of one seed's crawl.
	CrawlDelay time.Duration

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	MaxBodySize int64

	// AllowedDomains are URL prefixes a link must start with to be crawled.
	// Empty means each seed may only crawl its own host.
	AllowedDomains []string

	// FollowImages enables indexing of EXIF text in linked images.
	FollowImages bool

	// StopWords are never indexed.
	StopWords []string

	// MinWordLength skips shorter words when indexing. 0 indexes everything.
	MinWordLength int

	// ProxyAddress is an external SOCKS5 proxy in "host:port" format.
	// Empty means direct connections unless UseTor is set.
	ProxyAddress string

	// UseTor starts an embedded Tor daemon and crawls through it.
	UseTor bool

	// TorStartupTimeout is the maximum time to wait for the embedded Tor
	// daemon to bootstrap.
	TorStartupTimeout time.Duration

	// InsecureTLS disables certificate verification.
	InsecureTLS bool

	// Verbose enables debug log output.
	Verbose bool

	// ConfigFilePath is the path to the configuration file. If empty, the
	// current directory and then the home directory are searched.
	ConfigFilePath string

	// SiteConfigs holds the loaded configuration file, or nil.
	SiteConfigs *File

	// JSONReport selects JSON search output. Mutually exclusive with
	// MarkdownReport.
	JSONReport bool

	// MarkdownReport selects Markdown search output.
	MarkdownReport bool

	// ReportFile is the output file for search results. Empty means stdout.
	ReportFile string

	// DBDir is the directory of the page store.
	// Defaults to the XDG data directory (~/.local/share/triesearch on Linux).
	DBDir string

	// SaveToDB stores crawled pages in the page store.
	SaveToDB bool

	// FromDB builds the index from the latest stored runs instead of crawling.
	FromDB bool

	// RunIDs selects stored runs by ID instead of the latest run per seed.
	// Setting it implies FromDB.
	RunIDs []int64
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Timeout:           DefaultTimeout,
		CrawlDepth:        DefaultCrawlDepth,
		MaxPages:          DefaultMaxPages,
		BatchSize:         DefaultBatchSize,
		CrawlDelay:        DefaultCrawlDelay,
		UserAgent:         DefaultUserAgent,
		MaxBodySize:       DefaultMaxBodySize,
		TorStartupTimeout: DefaultTorStartupTimeout,
		DBDir:             XDGDataDir(),
	}
}

// ApplyFile merges the global lists of a configuration file into c and
// keeps f for per-site lookups. Flag values take precedence: file lists are
// appended, never replacing what flags set.
func (c *Config) ApplyFile(f *File) {
	if f == nil {
		return
	}
	c.SiteConfigs = f
	c.AllowedDomains = appendUnique(c.AllowedDomains, f.AllowedDomains...)
	c.StopWords = appendUnique(c.StopWords, f.StopWords...)
}

// SiteConfig returns the merged configuration for seed, or the zero value
// when no file is loaded.
func (c *Config) SiteConfig(seed string) SiteConfig {
	if c.SiteConfigs == nil {
		return SiteConfig{}
	}
	return c.SiteConfigs.GetSiteConfigForURL(seed)
}

func appendUnique(dst []string, values ...string) []string {
	seen := make(map[string]struct{}, len(dst))
	for _, v := range dst {
		seen[v] = struct{}{}
	}
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		dst = append(dst, v)
	}
	return dst
}

// XDGDataDir returns the XDG data directory for triesearch.
// On Linux: ~/.local/share/triesearch
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for triesearch.
// On Linux: ~/.config/triesearch
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGCacheDir returns the XDG cache directory for triesearch.
// On Linux: ~/.cache/triesearch
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// Validate checks if the configuration is valid and returns the first
// problem found.
//
// Design decision: Validation happens once after flag parsing so bad input
// fails before any network activity.
func (c *Config) Validate() error {
	if len(c.Seeds) == 0 && !c.FromDB {
		return ErrNoTarget
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.CrawlDepth < 0 {
		return ErrInvalidDepth
	}

	if c.MaxPages <= 0 {
		return ErrInvalidMaxPages
	}

	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	if c.CrawlDelay < 0 {
		return ErrInvalidCrawlDelay
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	if c.MinWordLength < 0 {
		return ErrInvalidMinWordLength
	}

	if c.UseTor && c.ProxyAddress != "" {
		return ErrConflictingTransports
	}

	return nil
}
