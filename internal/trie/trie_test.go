package trie

import (
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// TestSlot verifies the character folding used for every key.
func TestSlot(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   rune
		want int
	}{
		{name: "lowercase a", in: 'a', want: 0},
		{name: "lowercase b", in: 'b', want: 1},
		{name: "lowercase z", in: 'z', want: 25},
		{name: "uppercase A", in: 'A', want: 0},
		{name: "uppercase B", in: 'B', want: 1},
		{name: "uppercase Z", in: 'Z', want: 25},
		{name: "digit", in: '1', want: 26},
		{name: "hash", in: '#', want: 26},
		{name: "underscore", in: '_', want: 26},
		{name: "space", in: ' ', want: 26},
		{name: "non-ASCII letter", in: 'é', want: 26},
		{name: "character before a", in: '`', want: 26},
		{name: "character after Z", in: '[', want: 26},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Slot(tt.in); got != tt.want {
				t.Errorf("Slot(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

// TestFold verifies the canonical spelling of keys.
func TestFold(t *testing.T) {
	t.Parallel()

	if got := Fold("Hello, World!"); got != "hello__world_" {
		t.Errorf("Fold() = %q, want %q", got, "hello__world_")
	}
	if got := Fold(""); got != "" {
		t.Errorf("Fold(\"\") = %q, want empty", got)
	}
}

// TestTrieSetGet covers the basic round trip and prefix behavior.
func TestTrieSetGet(t *testing.T) {
	t.Parallel()

	t.Run("simple", func(t *testing.T) {
		t.Parallel()
		tr := New[int]()
		tr.Set("a", 1)
		got, err := tr.Get("a")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != 1 {
			t.Errorf("expected 1, got %d", got)
		}
	})

	t.Run("longer key", func(t *testing.T) {
		t.Parallel()
		tr := New[int]()
		tr.Set("abc", 1)
		got, err := tr.Get("abc")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != 1 {
			t.Errorf("expected 1, got %d", got)
		}
	})

	t.Run("empty key is a valid key", func(t *testing.T) {
		t.Parallel()
		tr := New[int]()
		tr.Set("", 7)
		got, err := tr.Get("")
		if err != nil || got != 7 {
			t.Errorf("expected (7, nil), got (%d, %v)", got, err)
		}
		if tr.Len() != 1 {
			t.Errorf("expected size 1, got %d", tr.Len())
		}
	})

	t.Run("prefixes are not retrievable", func(t *testing.T) {
		t.Parallel()
		tr := New[int]()
		tr.Set("abc", 1)
		for _, k := range []string{"a", "ab", ""} {
			if _, err := tr.Get(k); !errors.Is(err, ErrKeyNotFound) {
				t.Errorf("Get(%q): expected ErrKeyNotFound, got %v", k, err)
			}
		}
	})

	t.Run("nil value is stored and retrievable", func(t *testing.T) {
		t.Parallel()
		tr := New[*int]()
		tr.Set("will_be_none", nil)
		got, err := tr.Get("will_be_none")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != nil {
			t.Errorf("expected nil, got %v", got)
		}
		if !tr.Contains("will_be_none") {
			t.Error("expected key with nil value to be contained")
		}
		if tr.Len() != 1 {
			t.Errorf("expected size 1, got %d", tr.Len())
		}
	})

	t.Run("shared prefix set first", func(t *testing.T) {
		t.Parallel()
		tr := New[int]()
		tr.Set("ab", 1)
		tr.Set("abc", 2)
		assertGet(t, tr, "ab", 1)
		assertGet(t, tr, "abc", 2)
	})

	t.Run("shared prefix set last", func(t *testing.T) {
		t.Parallel()
		tr := New[int]()
		tr.Set("abc", 2)
		tr.Set("ab", 1)
		assertGet(t, tr, "ab", 1)
		assertGet(t, tr, "abc", 2)
	})

	t.Run("overwrite", func(t *testing.T) {
		t.Parallel()
		tr := New[int]()
		tr.Set("abc", 1)
		tr.Set("abc", 2)
		assertGet(t, tr, "abc", 2)
		if tr.Len() != 1 {
			t.Errorf("expected size 1 after overwrite, got %d", tr.Len())
		}
	})

	t.Run("case folding shares a key", func(t *testing.T) {
		t.Parallel()
		tr := New[string]()
		tr.Set("Cat", "first")
		tr.Set("cAT", "second")
		assertGet(t, tr, "CAT", "second")
	})

	t.Run("non-letters collide in the catch-all slot", func(t *testing.T) {
		t.Parallel()
		tr := New[int]()
		tr.Set("a1", 1)
		tr.Set("a#", 2)
		if tr.Len() != 1 {
			t.Errorf("expected size 1, got %d", tr.Len())
		}
		assertGet(t, tr, "a_", 2)
		assertGet(t, tr, "a1", 2)
	})

	t.Run("get on empty trie", func(t *testing.T) {
		t.Parallel()
		tr := New[int]()
		_, err := tr.Get("a")
		if !errors.Is(err, ErrKeyNotFound) {
			t.Errorf("expected ErrKeyNotFound, got %v", err)
		}
		var keyErr *KeyError
		if !errors.As(err, &keyErr) {
			t.Fatalf("expected *KeyError, got %T", err)
		}
		if keyErr.Key != "a" {
			t.Errorf("expected key %q in error, got %v", "a", keyErr.Key)
		}
	})
}

// TestTrieLen verifies that Len counts distinct folded keys.
func TestTrieLen(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		keys string
		want int
	}{
		{name: "empty", keys: "", want: 0},
		{name: "alphabet", keys: "abcdefghijklmnopqrstuvwxyz", want: 26},
		{name: "case insensitive", keys: "abcdeABCDE", want: 5},
		{name: "special characters", keys: "*%#./?_", want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tr := New[string]()
			for _, r := range tt.keys {
				tr.Set(string(r), string(r))
			}
			if tr.Len() != tt.want {
				t.Errorf("expected size %d, got %d", tt.want, tr.Len())
			}
		})
	}

	t.Run("basic", func(t *testing.T) {
		t.Parallel()
		tr := New[int]()
		if tr.Len() != 0 {
			t.Errorf("expected 0, got %d", tr.Len())
		}
		tr.Set("abc", 1)
		if tr.Len() != 1 {
			t.Errorf("expected 1, got %d", tr.Len())
		}
	})
}

// TestTrieDelete covers value removal and node pruning.
func TestTrieDelete(t *testing.T) {
	t.Parallel()

	t.Run("delete one of two siblings", func(t *testing.T) {
		t.Parallel()
		tr := New[int]()
		tr.Set("a", 1)
		tr.Set("b", 1)
		if err := tr.Delete("b"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !tr.Contains("a") {
			t.Error("expected a to remain")
		}
		if tr.Contains("b") {
			t.Error("expected b to be gone")
		}
		if tr.Len() != 1 {
			t.Errorf("expected size 1, got %d", tr.Len())
		}
	})

	t.Run("delete missing key", func(t *testing.T) {
		t.Parallel()
		tr := New[int]()
		if err := tr.Delete("b"); !errors.Is(err, ErrKeyNotFound) {
			t.Errorf("expected ErrKeyNotFound, got %v", err)
		}
	})

	t.Run("delete pure prefix fails without mutation", func(t *testing.T) {
		t.Parallel()
		tr := New[int]()
		tr.Set("abc", 1)
		if err := tr.Delete("ab"); !errors.Is(err, ErrKeyNotFound) {
			t.Errorf("expected ErrKeyNotFound, got %v", err)
		}
		assertGet(t, tr, "abc", 1)
		if tr.Len() != 1 {
			t.Errorf("expected size 1, got %d", tr.Len())
		}
	})

	t.Run("delete twice", func(t *testing.T) {
		t.Parallel()
		tr := New[int]()
		tr.Set("abc", 1)
		if err := tr.Delete("abc"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := tr.Delete("abc"); !errors.Is(err, ErrKeyNotFound) {
			t.Errorf("expected ErrKeyNotFound on second delete, got %v", err)
		}
		if tr.Len() != 0 {
			t.Errorf("expected size 0, got %d", tr.Len())
		}
	})

	t.Run("delete prefix keeps extension", func(t *testing.T) {
		t.Parallel()
		tr := New[int]()
		tr.Set("ab", 1)
		tr.Set("abc", 1)
		if err := tr.Delete("ab"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !tr.Contains("abc") {
			t.Error("expected abc to remain")
		}
		if tr.Contains("ab") {
			t.Error("expected ab to be gone")
		}
		if tr.find("ab") == nil {
			t.Error("node for ab must survive while abc needs it")
		}
	})

	t.Run("delete leaf prunes whole path", func(t *testing.T) {
		t.Parallel()
		tr := New[int]()
		tr.Set("abc", 1)
		if err := tr.Delete("abc"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !tr.root.isEmpty() {
			t.Error("expected root to have no children after deleting the only key")
		}
	})

	t.Run("pruning stops at ancestor with value", func(t *testing.T) {
		t.Parallel()
		tr := New[int]()
		tr.Set("ab", 1)
		tr.Set("abcd", 2)
		if err := tr.Delete("abcd"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		n := tr.find("ab")
		if n == nil {
			t.Fatal("expected node for ab to survive")
		}
		if !n.hasValue {
			t.Error("expected ab to keep its value")
		}
		if n.children[Slot('c')] != nil {
			t.Error("expected the c branch to be pruned")
		}
	})

	t.Run("pruning stops at ancestor with another child", func(t *testing.T) {
		t.Parallel()
		tr := New[int]()
		tr.Set("abx", 1)
		tr.Set("aby", 2)
		if err := tr.Delete("abx"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		assertGet(t, tr, "aby", 2)
		if tr.find("abx") != nil {
			t.Error("expected abx node to be pruned")
		}
	})

	t.Run("delete through folded spelling", func(t *testing.T) {
		t.Parallel()
		tr := New[int]()
		tr.Set("a1", 1)
		if err := tr.Delete("A?"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if tr.Len() != 0 {
			t.Errorf("expected size 0, got %d", tr.Len())
		}
	})
}

// TestTrieAny covers the untyped key API.
func TestTrieAny(t *testing.T) {
	t.Parallel()

	nonStrings := []any{1234, 3.5, []byte("abc"), nil, struct{}{}}

	t.Run("non-string keys are rejected", func(t *testing.T) {
		t.Parallel()
		tr := New[string]()
		for _, k := range nonStrings {
			if err := tr.SetAny(k, "abc"); !errors.Is(err, ErrInvalidKeyType) {
				t.Errorf("SetAny(%#v): expected ErrInvalidKeyType, got %v", k, err)
			}
			if _, err := tr.GetAny(k); !errors.Is(err, ErrInvalidKeyType) {
				t.Errorf("GetAny(%#v): expected ErrInvalidKeyType, got %v", k, err)
			}
			if err := tr.DeleteAny(k); !errors.Is(err, ErrInvalidKeyType) {
				t.Errorf("DeleteAny(%#v): expected ErrInvalidKeyType, got %v", k, err)
			}
			if tr.ContainsAny(k) {
				t.Errorf("ContainsAny(%#v): expected false", k)
			}
		}
		if tr.Len() != 0 {
			t.Errorf("expected no mutation, size is %d", tr.Len())
		}
	})

	t.Run("string keys behave like the typed API", func(t *testing.T) {
		t.Parallel()
		tr := New[int]()
		if err := tr.SetAny("abc", 3); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got, err := tr.GetAny("ABC")
		if err != nil || got != 3 {
			t.Errorf("expected (3, nil), got (%d, %v)", got, err)
		}
		if !tr.ContainsAny("abc") {
			t.Error("expected abc to be contained")
		}
		if err := tr.DeleteAny("abc"); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if _, err := tr.GetAny("abc"); !errors.Is(err, ErrKeyNotFound) {
			t.Errorf("expected ErrKeyNotFound, got %v", err)
		}
	})
}

// TestTrieAll verifies ordering of full iteration.
func TestTrieAll(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		set  []Entry[int]
		want []Entry[int]
	}{
		{
			name: "empty",
			want: []Entry[int]{},
		},
		{
			name: "one",
			set:  []Entry[int]{{"abc", 1}},
			want: []Entry[int]{{"abc", 1}},
		},
		{
			name: "prefix chain",
			set:  []Entry[int]{{"a", 1}, {"ab", 2}, {"abc", 3}},
			want: []Entry[int]{{"a", 1}, {"ab", 2}, {"abc", 3}},
		},
		{
			name: "assorted",
			set:  []Entry[int]{{"apple", 1}, {"banana", 2}, {"quail", 3}, {"quails", 4}, {"bees", 5}},
			want: []Entry[int]{{"apple", 1}, {"banana", 2}, {"bees", 5}, {"quail", 3}, {"quails", 4}},
		},
		{
			name: "canonical spelling and catch-all last",
			set:  []Entry[int]{{"B2", 1}, {"bz", 2}, {"BA", 3}},
			want: []Entry[int]{{"ba", 3}, {"bz", 2}, {"b_", 1}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tr := New[int]()
			for _, e := range tt.set {
				tr.Set(e.Key, e.Value)
			}
			if diff := cmp.Diff(tt.want, tr.Entries()); diff != "" {
				t.Errorf("Entries() mismatch (-want +got):\n%s", diff)
			}
		})
	}

	t.Run("restartable and stoppable", func(t *testing.T) {
		t.Parallel()
		tr := New[int]()
		tr.Set("x", 1)
		tr.Set("y", 2)
		tr.Set("z", 3)

		first := tr.Keys()
		second := tr.Keys()
		if diff := cmp.Diff(first, second); diff != "" {
			t.Errorf("iteration is not restartable (-first +second):\n%s", diff)
		}

		var seen []string
		for k := range tr.All() {
			seen = append(seen, k)
			if len(seen) == 2 {
				break
			}
		}
		if diff := cmp.Diff([]string{"x", "y"}, seen); diff != "" {
			t.Errorf("early break mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("very long key does not exhaust the stack", func(t *testing.T) {
		t.Parallel()
		tr := New[int]()
		long := strings.Repeat("ab", 50000)
		tr.Set(long, 1)
		entries := tr.Entries()
		if len(entries) != 1 || entries[0].Key != long {
			t.Errorf("expected the long key back, got %d entries", len(entries))
		}
		if got := tr.WildcardSearch(strings.Repeat("*", len(long))); len(got) != 1 {
			t.Errorf("expected one wildcard match, got %d", len(got))
		}
		if err := tr.Delete(long); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if !tr.root.isEmpty() {
			t.Error("expected long path to be pruned")
		}
	})
}

// TestTrieWildcardSearch covers single-slot wildcard matching.
func TestTrieWildcardSearch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		keys    []string
		pattern string
		want    []string
	}{
		{name: "no match", keys: []string{"ccc", "aaa", "bbb"}, pattern: "z*", want: []string{}},
		{name: "single wildcard single key", keys: []string{"a"}, pattern: "*", want: []string{"a"}},
		{name: "length must match", keys: []string{"a", "b", "c", "zzz"}, pattern: "*", want: []string{"a", "b", "c"}},
		{name: "trailing wildcard", keys: []string{"cat", "car", "cab", "cot"}, pattern: "ca*", want: []string{"cab", "car", "cat"}},
		{name: "inner wildcard", keys: []string{"cat", "car", "cab", "cot"}, pattern: "c*t", want: []string{"cat", "cot"}},
		{name: "two wildcards", keys: []string{"cat", "car", "cab", "cot", "czz"}, pattern: "c**", want: []string{"cab", "car", "cat", "cot", "czz"}},
		{name: "all wildcards", keys: []string{"aaa", "bbb", "zzz", "bb", "ww"}, pattern: "***", want: []string{"aaa", "bbb", "zzz"}},
		{name: "no wildcard is an exact lookup", keys: []string{"cat", "cats"}, pattern: "cat", want: []string{"cat"}},
		{name: "no prefix matching", keys: []string{"cats"}, pattern: "ca*", want: []string{}},
		{name: "pure prefix node is not emitted", keys: []string{"cats"}, pattern: "cat", want: []string{}},
		{name: "literal is case-insensitive", keys: []string{"cat"}, pattern: "C*T", want: []string{"cat"}},
		{name: "literal catch-all character", keys: []string{"a1", "ab"}, pattern: "a#", want: []string{"a_"}},
		{name: "wildcard reaches catch-all slot last", keys: []string{"a1", "ab", "az"}, pattern: "a*", want: []string{"ab", "az", "a_"}},
		{name: "empty pattern matches empty key", keys: []string{"", "a"}, pattern: "", want: []string{""}},
		{name: "empty trie", keys: nil, pattern: "***", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tr := New[int]()
			for _, k := range tt.keys {
				tr.Set(k, 1)
			}
			got := make([]string, 0)
			for _, e := range tr.WildcardSearch(tt.pattern) {
				got = append(got, e.Key)
				if e.Value != 1 {
					t.Errorf("unexpected value %d for %q", e.Value, e.Key)
				}
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("WildcardSearch(%q) mismatch (-want +got):\n%s", tt.pattern, diff)
			}
		})
	}
}

// TestTrieString verifies the diagnostic representation.
func TestTrieString(t *testing.T) {
	t.Parallel()

	tr := New[int]()
	tr.Set("a", 1)
	tr.Set("b", 2)
	if got := tr.String(); got != "trie(size=2)" {
		t.Errorf("expected trie(size=2), got %q", got)
	}
}

func assertGet[V comparable](t *testing.T, tr *Trie[V], key string, want V) {
	t.Helper()
	got, err := tr.Get(key)
	if err != nil {
		t.Fatalf("Get(%q): unexpected error: %v", key, err)
	}
	if got != want {
		t.Errorf("Get(%q) = %v, want %v", key, got, want)
	}
}

// TestTrieTraversalLongKeyAllocations checks that walking a long key does
// not copy the key prefix at every level. It is not parallel because
// testing.AllocsPerRun counts allocations process-wide.
func TestTrieTraversalLongKeyAllocations(t *testing.T) {
	tr := New[int]()
	long := strings.Repeat("ab", 50000)
	tr.Set(long, 1)
	pattern := strings.Repeat("*", len(long))

	// One allocation per level would be 100000; a shared buffer needs a
	// handful of growths and one final string.
	const limit = 200

	if allocs := testing.AllocsPerRun(3, func() { _ = tr.Entries() }); allocs > limit {
		t.Errorf("Entries allocated %.0f times for one key, want at most %d", allocs, limit)
	}
	if allocs := testing.AllocsPerRun(3, func() { _ = tr.WildcardSearch(pattern) }); allocs > limit {
		t.Errorf("WildcardSearch allocated %.0f times for one key, want at most %d", allocs, limit)
	}
}

func BenchmarkTrieEntriesLongKey(b *testing.B) {
	for _, n := range []int{50000, 100000} {
		tr := New[int]()
		tr.Set(strings.Repeat("ab", n/2), 1)
		b.Run("len="+strconv.Itoa(n), func(b *testing.B) {
			for b.Loop() {
				_ = tr.Entries()
			}
		})
	}
}
