// Package keyring stores the credential encryption key in the OS keyring.
package keyring

import (
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/99designs/keyring"

	"github.com/custodia-labs/graphmail/internal/adapters/driven/crypto"
)

const (
	serviceName   = "graphmail"
	keyName       = "encryption-key"
	secretKeyName = "client-secret"
)

// Open returns the platform keyring with a file fallback under dir.
func Open(dir string) (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  dir,
		FilePasswordFunc:         keyring.FixedStringPrompt("graphmail-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// KeyStore holds the encryption key and the OAuth client secret.
type KeyStore struct {
	ring keyring.Keyring
}

// NewKeyStore wraps ring.
func NewKeyStore(ring keyring.Keyring) *KeyStore {
	return &KeyStore{ring: ring}
}

// LoadOrCreate returns the stored key, creating and saving a new one if absent.
func (s *KeyStore) LoadOrCreate() ([]byte, error) {
	item, err := s.ring.Get(keyName)
	switch {
	case err == nil:
		key, decodeErr := base64.StdEncoding.DecodeString(string(item.Data))
		if decodeErr != nil {
			return nil, fmt.Errorf("decoding stored encryption key: %w", decodeErr)
		}
		if len(key) != crypto.KeySize {
			return nil, fmt.Errorf("stored encryption key has %d bytes, want %d", len(key), crypto.KeySize)
		}
		return key, nil
	case errors.Is(err, keyring.ErrKeyNotFound):
	default:
		return nil, fmt.Errorf("getting encryption key: %w", err)
	}

	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	err = s.ring.Set(keyring.Item{
		Key:         keyName,
		Data:        []byte(base64.StdEncoding.EncodeToString(key)),
		Label:       "graphmail encryption key",
		Description: "Encrypts stored Microsoft Graph tokens",
	})
	if err != nil {
		return nil, fmt.Errorf("setting encryption key: %w", err)
	}
	return key, nil
}

// ClientSecret returns the stored client secret, or "" when none is stored.
func (s *KeyStore) ClientSecret() (string, error) {
	item, err := s.ring.Get(secretKeyName)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("getting client secret: %w", err)
	}
	return string(item.Data), nil
}

// SetClientSecret stores the client secret.
func (s *KeyStore) SetClientSecret(secret string) error {
	err := s.ring.Set(keyring.Item{
		Key:   secretKeyName,
		Data:  []byte(secret),
		Label: "graphmail client secret",
	})
	if err != nil {
		return fmt.Errorf("setting client secret: %w", err)
	}
	return nil
}
