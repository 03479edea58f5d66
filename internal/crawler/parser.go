package crawler

import (
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// Parser extracts the title, visible text and links of an HTML page.
//
// Design decision: We use golang.org/x/net/html rather than regex because it
// copes with the malformed markup common on the web and gives us a tree to
// walk, so script and style bodies can be skipped as whole subtrees.
type Parser struct {
	// baseURL is the URL of the page being parsed, used for resolving relative URLs.
	baseURL *url.URL
}

// ParseResult contains everything extracted from one HTML page.
type ParseResult struct {
	// Title is the page title from the <title> tag.
	Title string

	// Text is the visible text of the page. Text nodes are joined with a
	// single space so adjacent elements never glue words together.
	Text string

	// Links contains every resolved <a href>, in document order.
	Links []string

	// InternalLinks are links to the same host as the page.
	InternalLinks []string

	// ExternalLinks are links to other hosts.
	ExternalLinks []string

	// Images contains resolved <img src> URLs.
	Images []string

	// MetaTags maps <meta name|property> to content.
	MetaTags map[string]string
}

// Words splits Text on whitespace.
func (r *ParseResult) Words() []string {
	return strings.Fields(r.Text)
}

// invisible lists elements whose text is never rendered.
var invisible = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
}

// NewParser creates a parser that resolves links against baseURL.
func NewParser(baseURL string) (*Parser, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	return &Parser{baseURL: u}, nil
}

// Parse parses HTML content.
func (p *Parser) Parse(content io.Reader) (*ParseResult, error) {
	doc, err := html.Parse(content)
	if err != nil {
		return nil, err
	}

	result := &ParseResult{
		Links:         make([]string, 0),
		InternalLinks: make([]string, 0),
		ExternalLinks: make([]string, 0),
		Images:        make([]string, 0),
		MetaTags:      make(map[string]string),
	}

	var text strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			if invisible[n.Data] {
				return
			}
			p.processElement(n, result)
		case html.TextNode:
			if s := strings.TrimSpace(n.Data); s != "" {
				if text.Len() > 0 {
					text.WriteByte(' ')
				}
				text.WriteString(s)
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(doc)
	result.Text = text.String()

	return result, nil
}

// processElement handles HTML element nodes.
func (p *Parser) processElement(n *html.Node, result *ParseResult) {
	switch n.Data {
	case "title":
		if n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
			result.Title = strings.TrimSpace(n.FirstChild.Data)
		}

	case "a":
		if href := getAttr(n, "href"); href != "" {
			if resolved := p.resolveURL(href); resolved != "" {
				result.Links = append(result.Links, resolved)
				p.classifyLink(resolved, result)
			}
		}

	case "img":
		if src := getAttr(n, "src"); src != "" {
			if resolved := p.resolveURL(src); resolved != "" {
				result.Images = append(result.Images, resolved)
			}
		}

	case "meta":
		name := getAttr(n, "name")
		if name == "" {
			name = getAttr(n, "property")
		}
		if content := getAttr(n, "content"); name != "" && content != "" {
			result.MetaTags[strings.ToLower(name)] = content
		}
	}
}

// resolveURL resolves href against the base URL. Non-navigational schemes
// and bare fragments yield "". The fragment of the result is dropped.
func (p *Parser) resolveURL(href string) string {
	href = strings.TrimSpace(href)
	if href == "" || href == "#" ||
		strings.HasPrefix(href, "javascript:") ||
		strings.HasPrefix(href, "mailto:") ||
		strings.HasPrefix(href, "tel:") ||
		strings.HasPrefix(href, "data:") {
		return ""
	}

	u, err := url.Parse(href)
	if err != nil {
		return ""
	}

	resolved := p.baseURL.ResolveReference(u)
	resolved.Fragment = ""
	return resolved.String()
}

// classifyLink sorts a resolved link into internal or external.
func (p *Parser) classifyLink(link string, result *ParseResult) {
	u, err := url.Parse(link)
	if err != nil {
		return
	}

	if u.Host == "" || strings.EqualFold(u.Host, p.baseURL.Host) {
		result.InternalLinks = append(result.InternalLinks, link)
		return
	}
	result.ExternalLinks = append(result.ExternalLinks, link)
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
