package trie

import (
	"errors"
	"fmt"
)

var (
	// ErrKeyNotFound is returned when a key has no stored value, either
	// because its path does not exist or because it is only a prefix of
	// other keys.
	ErrKeyNotFound = errors.New("key not found")

	// ErrInvalidKeyType is returned by the *Any methods when the key is
	// not a string.
	ErrInvalidKeyType = errors.New("invalid key type: key must be a string")
)

// KeyError records the key that caused a lookup or mutation to fail.
// Use errors.Is with ErrKeyNotFound or ErrInvalidKeyType to classify it.
type KeyError struct {
	Key any
	Err error
}

// Error implements the error interface.
func (e *KeyError) Error() string {
	return fmt.Sprintf("%v: %#v", e.Err, e.Key)
}

// Unwrap returns the underlying sentinel error.
func (e *KeyError) Unwrap() error {
	return e.Err
}

func notFound(key string) error {
	return &KeyError{Key: key, Err: ErrKeyNotFound}
}
