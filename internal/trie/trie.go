package trie

import "fmt"

// node is a single trie vertex. hasValue distinguishes "no value" from a
// stored zero value (including a nil pointer, slice or map).
type node[V any] struct {
	children [Fanout]*node[V]
	value    V
	hasValue bool
}

// isEmpty reports whether the node has neither a value nor any child,
// i.e. whether it may be pruned.
func (n *node[V]) isEmpty() bool {
	if n.hasValue {
		return false
	}
	for _, c := range n.children {
		if c != nil {
			return false
		}
	}
	return true
}

// Trie is a 27-way character trie mapping folded string keys to values.
// The zero value is not usable; create one with New.
type Trie[V any] struct {
	root *node[V]
	size int
}

// Entry is a key/value pair produced by All, Entries and WildcardSearch.
// Key is the canonical spelling (see Fold).
type Entry[V any] struct {
	Key   string `json:"key"`
	Value V      `json:"value"`
}

// New returns an empty Trie.
func New[V any]() *Trie[V] {
	return &Trie[V]{root: &node[V]{}}
}

// find walks the folded path of key and returns the terminal node,
// or nil if some step is missing.
func (t *Trie[V]) find(key string) *node[V] {
	curr := t.root
	for _, r := range key {
		curr = curr.children[Slot(r)]
		if curr == nil {
			return nil
		}
	}
	return curr
}

// Get returns the value stored under key.
// It fails with ErrKeyNotFound when the key was never set, was deleted,
// or is only a prefix of other keys.
func (t *Trie[V]) Get(key string) (V, error) {
	n := t.find(key)
	if n == nil || !n.hasValue {
		var zero V
		return zero, notFound(key)
	}
	return n.value, nil
}

// Set stores value under key, overwriting any previous value.
// Missing nodes along the path are created; Len grows only when the key
// did not already hold a value.
func (t *Trie[V]) Set(key string, value V) {
	curr := t.root
	for _, r := range key {
		i := Slot(r)
		if curr.children[i] == nil {
			curr.children[i] = &node[V]{}
		}
		curr = curr.children[i]
	}

	if !curr.hasValue {
		t.size++
	}
	curr.value = value
	curr.hasValue = true
}

// pathStep records a parent and the slot leading to the next node.
type pathStep[V any] struct {
	parent *node[V]
	slot   int
}

// Delete removes the value stored under key and prunes every node on the
// path that is left with no value and no children. Pruning stops at the
// first ancestor that is still needed by another key.
// It fails with ErrKeyNotFound, without mutating the trie, when the key
// holds no value.
func (t *Trie[V]) Delete(key string) error {
	path := make([]pathStep[V], 0, len(key))
	curr := t.root
	for _, r := range key {
		i := Slot(r)
		next := curr.children[i]
		if next == nil {
			return notFound(key)
		}
		path = append(path, pathStep[V]{parent: curr, slot: i})
		curr = next
	}

	if !curr.hasValue {
		return notFound(key)
	}

	var zero V
	curr.value = zero
	curr.hasValue = false
	t.size--

	for i := len(path) - 1; i >= 0; i-- {
		if !curr.isEmpty() {
			break
		}
		step := path[i]
		step.parent.children[step.slot] = nil
		curr = step.parent
	}

	return nil
}

// Contains reports whether key holds a value.
func (t *Trie[V]) Contains(key string) bool {
	n := t.find(key)
	return n != nil && n.hasValue
}

// Len returns the number of keys holding a value.
func (t *Trie[V]) Len() int {
	return t.size
}

// String implements fmt.Stringer.
func (t *Trie[V]) String() string {
	return fmt.Sprintf("trie(size=%d)", t.size)
}
