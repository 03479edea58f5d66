package index

import (
	"fmt"
	"strings"

	"github.com/nao1215/triesearch/internal/model"
	"github.com/nao1215/triesearch/internal/trie"
)

// Index answers queries against a built word trie.
type Index struct {
	trie  *trie.Trie[URLSet]
	pages int
	seeds []string
}

// Lookup returns the URLs a single word occurs on.
// It fails with trie.ErrKeyNotFound if the word was never indexed.
func (i *Index) Lookup(word string) (URLSet, error) {
	set, err := i.trie.Get(Normalize(word))
	if err != nil {
		return nil, fmt.Errorf("lookup %q: %w", word, err)
	}
	return set, nil
}

// Search runs a wildcard query and returns the matching words with their
// sorted URLs, in ascending word order. The pattern is trimmed and
// lowercased first; without '*' it behaves like Lookup.
func (i *Index) Search(pattern string) []model.SearchResult {
	entries := i.trie.WildcardSearch(Normalize(strings.TrimSpace(pattern)))
	results := make([]model.SearchResult, 0, len(entries))
	for _, e := range entries {
		results = append(results, model.SearchResult{
			Word: e.Key,
			URLs: e.Value.Sorted(),
		})
	}
	return results
}

// Report runs Search and wraps the results with index statistics.
func (i *Index) Report(pattern string) *model.SearchReport {
	report := model.NewSearchReport(Normalize(strings.TrimSpace(pattern)))
	report.Seeds = i.seeds
	report.PagesIndexed = i.pages
	report.WordsIndexed = i.trie.Len()
	report.Results = i.Search(pattern)
	return report
}

// Words returns every indexed word in ascending order.
func (i *Index) Words() []string {
	return i.trie.Keys()
}

// Len returns the number of distinct indexed words.
func (i *Index) Len() int {
	return i.trie.Len()
}

// Pages returns the number of pages the index was built from.
func (i *Index) Pages() int {
	return i.pages
}
