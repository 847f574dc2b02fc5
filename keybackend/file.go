package keybackend

import (
	"encoding/json"
	"fmt"
	"os"
)

// SigningKey is a token signing key id and its shared secret.
type SigningKey struct {
	KeyID  string `json:"key_id" mapstructure:"key_id"`
	Secret string `json:"secret" mapstructure:"secret"`
}

// LoadKeysFromFile loads signing keys from a JSON file.
// The file should contain an array of keys:
//
//	[
//	  {"key_id": "default", "secret": "c2VjcmV0..."},
//	  {"key_id": "2024-rotation", "secret": "another_secret"}
//	]
//
// Returns a map of key id to secret.
func LoadKeysFromFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Path is from trusted config file
	if err != nil {
		return nil, fmt.Errorf("read keys file: %w", err)
	}

	var keys []SigningKey
	if err := json.Unmarshal(data, &keys); err != nil {
		return nil, fmt.Errorf("parse keys file: %w", err)
	}

	out := make(map[string]string, len(keys))
	for _, k := range keys {
		if k.KeyID != "" && k.Secret != "" {
			out[k.KeyID] = k.Secret
		}
	}

	return out, nil
}
