// Package keybackend provides KeyStore implementations for verifying bearer
// token signatures.
package keybackend

import (
	"fmt"
)

// MapKeyStore retrieves signing secrets from an in-memory map.
// Suitable for configuration file-based key storage.
type MapKeyStore struct {
	keys map[string]string
}

// NewMapKeyStore creates a new map-based key store with the given key id to secret mapping.
func NewMapKeyStore(keys map[string]string) *MapKeyStore {
	return &MapKeyStore{keys: keys}
}

// Lookup retrieves the secret for the given key id from the map.
func (s *MapKeyStore) Lookup(keyID string) ([]byte, error) {
	secret, found := s.keys[keyID]
	if !found {
		return nil, fmt.Errorf("lookup %q: %w", keyID, ErrKeyNotFound)
	}
	return []byte(secret), nil
}

// Len returns the number of keys in the store.
func (s *MapKeyStore) Len() int {
	return len(s.keys)
}
