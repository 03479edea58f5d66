// Package trie provides a 27-way character trie used as an ordered,
// mutable associative container keyed by string.
//
// # Alphabet
//
// Every character of a key is folded to a slot before it is stored:
//
//   - 'a'..'z' and 'A'..'Z' map to slots 0..25
//   - every other character (digits, punctuation, '_', whitespace,
//     non-ASCII) maps to the catch-all slot 26
//
// The folding is many-to-one. "Cat", "cat" and "CAT" are the same key, and
// so are "a1" and "a#". Keys returned by iteration and wildcard search are
// spelled canonically: lowercase letters and '_' for the catch-all slot.
//
// # Operations
//
//	t := trie.New[int]()
//	t.Set("apple", 1)
//	v, err := t.Get("apple")            // 1, nil
//	_, err = t.Get("app")               // errors.Is(err, trie.ErrKeyNotFound)
//	for k, v := range t.All() { ... }   // ascending order
//	t.WildcardSearch("a**le")           // '*' matches exactly one slot
//
// A Trie is not safe for concurrent use. Callers that share one between
// goroutines must serialize access themselves.
package trie
