// Package main provides the entry point for the triesearch CLI.
//
// triesearch crawls web sites (or .onion services through Tor), builds an
// in-memory word index on a 27-way trie and answers exact and
// single-character wildcard queries against it.
//
// Usage:
//
//	triesearch crawl https://example.com
//	triesearch search --url https://example.com "c*t"
//	triesearch shell --from-db
//
// See --help for all available options.
package main

func main() {
	Execute()
}
