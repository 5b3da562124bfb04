// Package crypto encrypts credentials at rest with XChaCha20-Poly1305.
package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/custodia-labs/graphmail/internal/core/domain"
	"github.com/custodia-labs/graphmail/internal/core/ports/driven"
)

// Ensure Cipher implements the interface.
var _ driven.Cipher = (*Cipher)(nil)

// KeySize is the required raw key length.
const KeySize = chacha20poly1305.KeySize

const hkdfInfo = "graphmail credential encryption v1"

// Cipher seals credentials. Output is base64(nonce || ciphertext).
type Cipher struct {
	key []byte
}

// NewCipher creates a cipher from a raw 32-byte key.
func NewCipher(key []byte) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("encryption key must be %d bytes, got %d: %w", KeySize, len(key), domain.ErrInvalidInput)
	}
	k := make([]byte, KeySize)
	copy(k, key)
	return &Cipher{key: k}, nil
}

// NewCipherFromSecret derives the key from an arbitrary secret with HKDF-SHA256.
func NewCipherFromSecret(secret string) (*Cipher, error) {
	if secret == "" {
		return nil, fmt.Errorf("encryption secret is empty: %w", domain.ErrInvalidInput)
	}
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(hkdfInfo)), key); err != nil {
		return nil, fmt.Errorf("deriving encryption key: %w", err)
	}
	return &Cipher{key: key}, nil
}

// GenerateKey returns a new random key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generating encryption key: %w", err)
	}
	return key, nil
}

// Encrypt seals plaintext with a fresh random nonce.
func (c *Cipher) Encrypt(plaintext []byte) (string, error) {
	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return "", fmt.Errorf("creating cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}

	sealed := aead.Seal(nonce, nonce, plaintext, nil)
	return base64.RawStdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt.
// Any malformed or tampered input yields domain.ErrCorruptCredential.
func (c *Cipher) Decrypt(ciphertext string) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}

	raw, err := base64.RawStdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("decoding ciphertext: %w", errors.Join(domain.ErrCorruptCredential, err))
	}
	if len(raw) < aead.NonceSize()+aead.Overhead() {
		return nil, fmt.Errorf("ciphertext too short: %w", domain.ErrCorruptCredential)
	}

	nonce, sealed := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("opening ciphertext: %w", errors.Join(domain.ErrCorruptCredential, err))
	}
	return plaintext, nil
}
