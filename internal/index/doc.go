// Package index turns crawled pages into a word index backed by a trie.
//
// Every word of every page is normalized (lowercased) and stored as a key of
// a trie.Trie[URLSet]; the value is the set of URLs the word occurs on.
// Because the trie folds every non-letter onto one slot, "b2b" and "b_b"
// share an entry, and results report the folded spelling.
//
// # Usage
//
//	b := index.NewBuilder(index.WithStopWords([]string{"the", "a"}))
//	b.AddPages(result.Pages)
//	idx := b.Index()
//	results := idx.Search("c*t")
//
// A Builder is not safe for concurrent use. Crawl in parallel if needed,
// then feed the pages from a single goroutine.
package index
