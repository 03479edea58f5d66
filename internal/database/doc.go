// Package database provides SQLite-based storage for crawled pages.
//
// The PageStore keeps, per crawl run, the URL, metadata and word list of
// every fetched page. A stored run can be fed back into the index builder so
// searches run without touching the network again. The trie itself is never
// stored; it is rebuilt in memory from the pages.
//
// Design decision: SQLite via modernc.org/sqlite is CGO-free and keeps the
// whole store in one file under the XDG data directory.
package database
