package trie

import "iter"

// frame is a pending visit in the explicit-stack traversals below. The
// node sits at depth and was reached through the slot character char; the
// root has depth 0.
type frame[V any] struct {
	n     *node[V]
	depth int
	char  byte
}

// enter moves the traversal's shared key buffer onto f. Frames only record
// their depth, so the buffer is truncated rather than copied per frame.
func enter[V any](buf []byte, f frame[V]) []byte {
	if f.depth == 0 {
		return buf[:0]
	}
	return append(buf[:f.depth-1], f.char)
}

// All returns an iterator over every key holding a value, in ascending
// order over the alphabet a..z then '_'. A key is yielded before any longer
// key it prefixes. Each call starts a fresh traversal.
//
// The trie must not be modified while the iterator is running.
func (t *Trie[V]) All() iter.Seq2[string, V] {
	return func(yield func(string, V) bool) {
		var buf []byte
		stack := []frame[V]{{n: t.root}}
		for len(stack) > 0 {
			f := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			buf = enter(buf, f)

			if f.n.hasValue && !yield(string(buf), f.n.value) {
				return
			}
			// Push in descending slot order so the smallest slot pops first.
			for i := Fanout - 1; i >= 0; i-- {
				if c := f.n.children[i]; c != nil {
					stack = append(stack, frame[V]{n: c, depth: f.depth + 1, char: SlotChar(i)})
				}
			}
		}
	}
}

// Entries materializes All into a slice.
func (t *Trie[V]) Entries() []Entry[V] {
	entries := make([]Entry[V], 0, t.size)
	for k, v := range t.All() {
		entries = append(entries, Entry[V]{Key: k, Value: v})
	}
	return entries
}

// Keys returns every key in ascending order.
func (t *Trie[V]) Keys() []string {
	keys := make([]string, 0, t.size)
	for k := range t.All() {
		keys = append(keys, k)
	}
	return keys
}

// WildcardSearch returns every entry whose folded key has exactly the
// pattern's length and matches it position by position. A '*' matches any
// single slot; every other character matches its own slot. Results are in
// ascending key order. There is no prefix matching: "ca*" never matches
// "cats". A pattern without '*' behaves like an existence check for that
// one key.
func (t *Trie[V]) WildcardSearch(pattern string) []Entry[V] {
	runes := []rune(pattern)
	results := make([]Entry[V], 0)

	buf := make([]byte, 0, len(runes))
	stack := []frame[V]{{n: t.root}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		buf = enter(buf, f)

		if f.depth == len(runes) {
			if f.n.hasValue {
				results = append(results, Entry[V]{Key: string(buf), Value: f.n.value})
			}
			continue
		}

		if runes[f.depth] == Wildcard {
			for i := Fanout - 1; i >= 0; i-- {
				if c := f.n.children[i]; c != nil {
					stack = append(stack, frame[V]{n: c, depth: f.depth + 1, char: SlotChar(i)})
				}
			}
			continue
		}

		i := Slot(runes[f.depth])
		if c := f.n.children[i]; c != nil {
			stack = append(stack, frame[V]{n: c, depth: f.depth + 1, char: SlotChar(i)})
		}
	}

	return results
}
