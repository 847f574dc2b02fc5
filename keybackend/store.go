package keybackend

import (
	"github.com/sagarc03/cannedreports"
)

// KeysConfig holds configuration for loading signing keys.
type KeysConfig struct {
	Inline []SigningKey `mapstructure:"inline"` // Inline keys from config
	File   string       `mapstructure:"file"`   // Path to JSON file containing keys
}

var _ cannedreports.KeyStore = (*MapKeyStore)(nil)

// NewKeyStore creates a MapKeyStore from the given configuration.
// It loads keys from both inline config and file (if specified),
// merging them into a single store. File keys take precedence over inline keys
// if there are duplicates.
func NewKeyStore(cfg KeysConfig) (*MapKeyStore, error) {
	keys := make(map[string]string)

	for _, k := range cfg.Inline {
		if k.KeyID != "" && k.Secret != "" {
			keys[k.KeyID] = k.Secret
		}
	}

	if cfg.File != "" {
		fileKeys, err := LoadKeysFromFile(cfg.File)
		if err != nil {
			return nil, err
		}
		for k, v := range fileKeys {
			keys[k] = v
		}
	}

	return NewMapKeyStore(keys), nil
}
