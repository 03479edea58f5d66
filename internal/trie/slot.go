package trie

import "strings"

const (
	// Fanout is the number of child slots per node.
	Fanout = 27

	// CatchAllSlot is the slot shared by every character that is not an
	// ASCII letter.
	CatchAllSlot = Fanout - 1

	// CatchAllChar is the canonical spelling of the catch-all slot in
	// reconstructed keys.
	CatchAllChar = '_'

	// Wildcard matches exactly one slot in WildcardSearch patterns.
	Wildcard = '*'
)

// Slot maps a character to its child index in [0, 26].
// Letters are case-insensitive; anything else lands in CatchAllSlot.
func Slot(r rune) int {
	switch {
	case r >= 'a' && r <= 'z':
		return int(r - 'a')
	case r >= 'A' && r <= 'Z':
		return int(r - 'A')
	default:
		return CatchAllSlot
	}
}

// SlotChar returns the canonical character for a slot.
func SlotChar(slot int) byte {
	if slot < CatchAllSlot {
		return byte('a' + slot)
	}
	return CatchAllChar
}

// Fold returns the canonical spelling of key, i.e. the key as it would be
// reported by All or WildcardSearch.
func Fold(key string) string {
	var sb strings.Builder
	sb.Grow(len(key))
	for _, r := range key {
		sb.WriteByte(SlotChar(Slot(r)))
	}
	return sb.String()
}
