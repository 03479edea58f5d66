package config

import (
	"net/url"
	"strings"
)

// SiteConfig holds crawl settings for a single host.
type SiteConfig struct {
	// Cookie is an HTTP cookie to send, e.g. "name1=value1; name2=value2".
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are custom HTTP headers to include in requests to this site.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Depth overrides the global crawl depth. Zero keeps the global value.
	Depth int `yaml:"depth,omitempty"`

	// IgnorePatterns are URL path glob patterns to skip.
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty"`

	// FollowPatterns, if set, are the only URL path glob patterns crawled.
	FollowPatterns []string `yaml:"followPatterns,omitempty"`
}

// File represents the structure of the .triesearch configuration file.
type File struct {
	// AllowedDomains are URL prefixes crawling is restricted to.
	AllowedDomains []string `yaml:"allowedDomains,omitempty"`

	// StopWords are never indexed.
	StopWords []string `yaml:"stopWords,omitempty"`

	// Sites maps host names (e.g. "example.com") to their configuration.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults applies to every site unless overridden in Sites.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the configuration for host merged over Defaults.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := cf.Defaults
	if len(cf.Defaults.Headers) > 0 {
		result.Headers = make(map[string]string, len(cf.Defaults.Headers))
		for k, v := range cf.Defaults.Headers {
			result.Headers[k] = v
		}
	}

	siteConfig, ok := cf.Sites[strings.ToLower(host)]
	if !ok {
		return result
	}

	if siteConfig.Cookie != "" {
		result.Cookie = siteConfig.Cookie
	}
	if siteConfig.Depth != 0 {
		result.Depth = siteConfig.Depth
	}
	if len(siteConfig.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string)
		}
		for k, v := range siteConfig.Headers {
			result.Headers[k] = v
		}
	}
	if len(siteConfig.IgnorePatterns) > 0 {
		result.IgnorePatterns = siteConfig.IgnorePatterns
	}
	if len(siteConfig.FollowPatterns) > 0 {
		result.FollowPatterns = siteConfig.FollowPatterns
	}

	return result
}

// GetSiteConfigForURL looks up the configuration by the host of rawURL.
// A value without a scheme is treated as a bare host.
func (cf *File) GetSiteConfigForURL(rawURL string) SiteConfig {
	host := rawURL
	if strings.Contains(rawURL, "://") {
		if u, err := url.Parse(rawURL); err == nil {
			host = u.Hostname()
		}
	} else if i := strings.IndexAny(host, ":/"); i >= 0 {
		host = host[:i]
	}
	return cf.GetSiteConfig(host)
}
