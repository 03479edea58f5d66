// Package pipeline runs the per-seed steps that turn a start URL into
// indexed words: crawl, store and index.
//
// Each step receives a *model.IndexReport and adds its output to it. A
// BatchProcessor runs one pipeline per seed concurrently with errgroup.
//
// The trie behind the index is not safe for concurrent use, so the index
// step must only run where a single goroutine owns the builder.
// BatchProcessor.BuildIndex crawls concurrently and feeds the builder from
// the calling goroutine.
package pipeline
