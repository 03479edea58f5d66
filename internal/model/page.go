package model

import (
	"encoding/hex"
	"strings"
	"time"

	"golang.org/x/crypto/sha3"
)

// Page represents a crawled page and the words found on it.
//
// Words keeps the original spelling and document order; normalization is
// left to the index so the same page can be re-indexed with other rules.
type Page struct {
	// URL is the address the page was fetched from.
	URL string `json:"url"`

	// Depth is the number of links followed from the seed to reach the page.
	Depth int `json:"depth"`

	// StatusCode is the HTTP response status code.
	StatusCode int `json:"status_code"`

	// Headers contains the HTTP response headers.
	Headers map[string][]string `json:"headers,omitempty"`

	// ContentType is the MIME type of the response, without parameters.
	ContentType string `json:"content_type"`

	// Title is the HTML <title>, or empty for non-HTML content.
	Title string `json:"title,omitempty"`

	// Words are the whitespace-separated tokens of the page's visible text.
	// For images they come from the EXIF text tags.
	Words []string `json:"words"`

	// Links are the absolute URLs of every <a href> on the page.
	Links []string `json:"links,omitempty"`

	// Raw contains the response body, capped at MaxPageSize.
	Raw []byte `json:"-"`

	// Hash is the SHA3-256 digest of Raw in hex.
	Hash string `json:"hash"`

	// FetchedAt is when the response was received.
	FetchedAt time.Time `json:"fetched_at"`
}

// MaxPageSize is the maximum size of raw page content kept in memory.
const MaxPageSize = 5 * 1024 * 1024 // 5 MB

// ComputeHash sets Hash from Raw. Empty content yields an empty hash.
func (p *Page) ComputeHash() {
	if len(p.Raw) == 0 {
		p.Hash = ""
		return
	}

	sum := sha3.Sum256(p.Raw)
	p.Hash = hex.EncodeToString(sum[:])
}

// GetHeader returns the first value of the named header, or "".
func (p *Page) GetHeader(name string) string {
	if values, ok := p.Headers[name]; ok && len(values) > 0 {
		return values[0]
	}
	return ""
}

// IsHTML reports whether the page content type is HTML.
func (p *Page) IsHTML() bool {
	ct := mediaType(p.ContentType)
	return ct == "text/html" || ct == "application/xhtml+xml"
}

// IsImage reports whether the page content type is an image.
func (p *Page) IsImage() bool {
	return strings.HasPrefix(mediaType(p.ContentType), "image/")
}

// TruncateRaw caps Raw at MaxPageSize.
func (p *Page) TruncateRaw() {
	if len(p.Raw) > MaxPageSize {
		p.Raw = p.Raw[:MaxPageSize]
	}
}

// WordCount returns the number of words on the page.
func (p *Page) WordCount() int {
	return len(p.Words)
}

// mediaType strips parameters such as "; charset=utf-8" and lowercases.
func mediaType(contentType string) string {
	ct, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(ct))
}
