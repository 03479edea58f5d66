package index

import (
	"errors"
	"log/slog"
	"unicode/utf8"

	"github.com/nao1215/triesearch/internal/model"
	"github.com/nao1215/triesearch/internal/trie"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Normalize returns the form a word is indexed under.
// Words are lowercased and otherwise kept as split; punctuation stays.
func Normalize(word string) string {
	return cases.Lower(language.Und).String(word)
}

// Builder accumulates (url, words) pairs into a trie.
type Builder struct {
	trie      *trie.Trie[URLSet]
	caser     cases.Caser
	stopWords map[string]struct{}
	minLength int
	logger    *slog.Logger

	pages   int
	words   int
	skipped int
	seeds   []string
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithLogger sets the logger used for per-page debug output.
func WithLogger(logger *slog.Logger) BuilderOption {
	return func(b *Builder) {
		b.logger = logger
	}
}

// WithStopWords sets words that are never indexed. Stop words are compared
// by their folded trie key, so "b2b" also stops "b#b".
func WithStopWords(words []string) BuilderOption {
	return func(b *Builder) {
		for _, w := range words {
			b.stopWords[trie.Fold(w)] = struct{}{}
		}
	}
}

// WithMinWordLength skips words shorter than n characters.
// The default of 0 indexes every word.
func WithMinWordLength(n int) BuilderOption {
	return func(b *Builder) {
		if n > 0 {
			b.minLength = n
		}
	}
}

// NewBuilder returns an empty Builder.
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{
		trie:      trie.New[URLSet](),
		caser:     cases.Lower(language.Und),
		stopWords: make(map[string]struct{}),
	}

	for _, opt := range opts {
		opt(b)
	}

	if b.logger == nil {
		b.logger = slog.Default()
	}

	return b
}

// Add indexes words as occurring on url. Each word's URL set is read,
// extended and written back, so repeated words and repeated pages merge.
func (b *Builder) Add(url string, words []string) {
	added := 0
	for _, w := range words {
		word := b.caser.String(w)
		if !b.accept(word) {
			b.skipped++
			continue
		}

		set, err := b.trie.Get(word)
		if errors.Is(err, trie.ErrKeyNotFound) {
			set = make(URLSet)
		}
		set.Add(url)
		b.trie.Set(word, set)
		added++
	}

	b.pages++
	b.words += added
	b.logger.Debug("page indexed",
		"url", url,
		"words", added,
	)
}

// AddPages indexes every page.
func (b *Builder) AddPages(pages []*model.Page) {
	for _, p := range pages {
		b.Add(p.URL, p.Words)
	}
}

// AddResult indexes a crawl result and remembers its seed.
func (b *Builder) AddResult(result *model.CrawlResult) {
	if result == nil {
		return
	}
	b.seeds = append(b.seeds, result.Seed)
	b.AddPages(result.Pages)
}

// Trie returns the underlying trie. It keeps growing if more pages are added.
func (b *Builder) Trie() *trie.Trie[URLSet] {
	return b.trie
}

// Index returns a query view over everything added so far.
func (b *Builder) Index() *Index {
	return &Index{
		trie:  b.trie,
		pages: b.pages,
		seeds: append([]string(nil), b.seeds...),
	}
}

// Stats returns counters for what has been added.
func (b *Builder) Stats() Stats {
	return Stats{
		Pages:         b.pages,
		Occurrences:   b.words,
		DistinctWords: b.trie.Len(),
		Skipped:       b.skipped,
	}
}

// Stats contains builder counters.
type Stats struct {
	// Pages is the number of Add calls.
	Pages int
	// Occurrences is the number of indexed word occurrences.
	Occurrences int
	// DistinctWords is the number of trie keys.
	DistinctWords int
	// Skipped counts words dropped as stop words or too short.
	Skipped int
}

func (b *Builder) accept(word string) bool {
	if b.minLength > 0 && utf8.RuneCountInString(word) < b.minLength {
		return false
	}
	_, stop := b.stopWords[trie.Fold(word)]
	return !stop
}
