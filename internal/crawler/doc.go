// Package crawler fetches pages breadth-first and extracts their words.
//
// # Architecture
//
// The Spider owns the crawl: a FIFO queue of (url, depth) pairs, the set of
// URLs it has already visited, and the admission rules (depth bound,
// allow-listed prefixes, ignore/follow patterns, page limit). The Parser
// turns HTML into a title, visible text and resolved links. Images are
// indexed through the text tags of their EXIF metadata.
//
// Design decision: The crawler is written against net/http plus
// golang.org/x/net/html rather than a crawling framework because the
// admission rules are small and exact, and the transport (direct, SOCKS5 or
// embedded Tor) is chosen outside this package.
//
// # Usage
//
//	spider := crawler.NewSpider(httpClient,
//		crawler.WithMaxDepth(1),
//		crawler.WithAllowedDomains([]string{"https://example.com"}),
//	)
//	result, err := spider.Crawl(ctx, "https://example.com")
//
// # Politeness
//
//   - Delays between requests (WithDelay)
//   - Bounded page count per crawl (WithMaxPages)
//   - Bounded body size (WithSpiderMaxBodySize)
//   - A descriptive User-Agent
package crawler
