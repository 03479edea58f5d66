package index

import (
	"encoding/json"
	"slices"
)

// URLSet is a set of page URLs.
type URLSet map[string]struct{}

// NewURLSet returns a set holding urls.
func NewURLSet(urls ...string) URLSet {
	s := make(URLSet, len(urls))
	for _, u := range urls {
		s.Add(u)
	}
	return s
}

// Add inserts url. Adding an existing URL is a no-op.
func (s URLSet) Add(url string) {
	s[url] = struct{}{}
}

// Has reports whether url is in the set.
func (s URLSet) Has(url string) bool {
	_, ok := s[url]
	return ok
}

// Len returns the number of URLs.
func (s URLSet) Len() int {
	return len(s)
}

// Sorted returns the URLs in ascending order.
func (s URLSet) Sorted() []string {
	urls := make([]string, 0, len(s))
	for u := range s {
		urls = append(urls, u)
	}
	slices.Sort(urls)
	return urls
}

// MarshalJSON encodes the set as a sorted array.
func (s URLSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

// UnmarshalJSON decodes an array of URLs.
func (s *URLSet) UnmarshalJSON(data []byte) error {
	var urls []string
	if err := json.Unmarshal(data, &urls); err != nil {
		return err
	}
	*s = NewURLSet(urls...)
	return nil
}
