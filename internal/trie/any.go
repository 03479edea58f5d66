package trie

// The *Any methods accept keys of unknown type, as produced by decoding
// YAML or JSON documents into map[any]any / []any. They apply the same
// contract as their typed counterparts and additionally reject non-string
// keys with ErrInvalidKeyType without touching the trie.

func keyString(key any) (string, error) {
	s, ok := key.(string)
	if !ok {
		return "", &KeyError{Key: key, Err: ErrInvalidKeyType}
	}
	return s, nil
}

// GetAny is Get for an untyped key.
func (t *Trie[V]) GetAny(key any) (V, error) {
	s, err := keyString(key)
	if err != nil {
		var zero V
		return zero, err
	}
	return t.Get(s)
}

// SetAny is Set for an untyped key.
func (t *Trie[V]) SetAny(key any, value V) error {
	s, err := keyString(key)
	if err != nil {
		return err
	}
	t.Set(s, value)
	return nil
}

// DeleteAny is Delete for an untyped key.
func (t *Trie[V]) DeleteAny(key any) error {
	s, err := keyString(key)
	if err != nil {
		return err
	}
	return t.Delete(s)
}

// ContainsAny is Contains for an untyped key. Non-string keys are never
// contained.
func (t *Trie[V]) ContainsAny(key any) bool {
	s, ok := key.(string)
	return ok && t.Contains(s)
}
