// Package model defines the data structures shared by the triesearch packages.
//
// This package contains the following main types:
//   - Page: A crawled page and the words extracted from it
//   - CrawlResult: The pages collected from one seed URL
//   - IndexReport: The state carried through the crawl/store/index pipeline
//   - SearchReport: The answer to one query against the index
//
// Design decision: Models live in their own package so that crawler, database,
// pipeline and report can exchange them without import cycles.
package model
