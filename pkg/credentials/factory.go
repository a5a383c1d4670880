package credentials

import (
	"fmt"

	"github.com/rs/zerolog"
)

// NewBackend creates a backend based on the configuration
func NewBackend(config *StoreConfig) (Backend, error) {
	switch config.Type {
	case "memory":
		return NewMemoryBackend(), nil

	case "file", "":
		if config.FilePath == "" {
			config.FilePath = DefaultFilePath()
		}
		return NewFileBackend(config.FilePath)

	default:
		return nil, fmt.Errorf("unknown credential store type: %s", config.Type)
	}
}

// NewStore creates a Store with the configured backend and encryption
func NewStore(config *StoreConfig, log zerolog.Logger) (*KVStore, error) {
	backend, err := NewBackend(config)
	if err != nil {
		return nil, err
	}

	encrypter, err := NewEncrypter(config.EncryptionKeyFile, config.EncryptionKeyEnv)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}

	event := log.Debug().Str("type", config.Type).Str("encryption", encrypter.Algorithm())
	if aes, ok := encrypter.(*AESEncrypter); ok {
		event = event.Str("key_id", aes.KeyID())
	}
	if fb, ok := backend.(*FileBackend); ok {
		event = event.Str("path", fb.Path())
	}
	event.Msg("credential store ready")

	return NewKVStore(backend, encrypter), nil
}
