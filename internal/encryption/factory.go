package encryption

import (
	"fmt"

	"sproutbook/internal/backup"
	"sproutbook/internal/config"
)

// NewEncryptorFromConfig creates an artifact encryptor from configuration.
// It returns nil when encryption is disabled; the backup service treats a
// nil encryptor as plain storage.
func NewEncryptorFromConfig(cfg config.EncryptionConfig) (backup.Encryptor, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	e := NewAgeEncryptor(cfg)
	if !e.IsConfigured() {
		return nil, fmt.Errorf("encryption enabled but key pair missing (run key setup first)")
	}
	return e, nil
}
