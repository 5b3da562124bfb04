package crypto

import (
	"bytes"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/graphmail/internal/core/domain"
)

func newTestCipher(t *testing.T) *Cipher {
	t.Helper()
	key, err := GenerateKey()
	require.NoError(t, err)
	c, err := NewCipher(key)
	require.NoError(t, err)
	return c
}

func TestCipher_RoundTrip(t *testing.T) {
	c := newTestCipher(t)

	for _, plaintext := range [][]byte{[]byte("at-1"), {}, bytes.Repeat([]byte("x"), 4096)} {
		sealed, err := c.Encrypt(plaintext)
		require.NoError(t, err)

		opened, err := c.Decrypt(sealed)
		require.NoError(t, err)
		assert.True(t, bytes.Equal(plaintext, opened))
	}
}

func TestCipher_NonceIsFresh(t *testing.T) {
	c := newTestCipher(t)

	a, err := c.Encrypt([]byte("same"))
	require.NoError(t, err)
	b, err := c.Encrypt([]byte("same"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestCipher_DecryptCorrupt(t *testing.T) {
	c := newTestCipher(t)
	sealed, err := c.Encrypt([]byte("refresh-token"))
	require.NoError(t, err)

	raw, err := base64.RawStdEncoding.DecodeString(sealed)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xff
	tampered := base64.RawStdEncoding.EncodeToString(raw)

	other := newTestCipher(t)

	tests := []struct {
		name   string
		cipher *Cipher
		input  string
	}{
		{name: "not base64", cipher: c, input: "!!!"},
		{name: "too short", cipher: c, input: base64.RawStdEncoding.EncodeToString([]byte("short"))},
		{name: "tampered", cipher: c, input: tampered},
		{name: "wrong key", cipher: other, input: sealed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.cipher.Decrypt(tt.input)
			assert.ErrorIs(t, err, domain.ErrCorruptCredential)
		})
	}
}

func TestNewCipher_KeyLength(t *testing.T) {
	_, err := NewCipher([]byte("short"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNewCipherFromSecret(t *testing.T) {
	a, err := NewCipherFromSecret("correct horse")
	require.NoError(t, err)
	b, err := NewCipherFromSecret("correct horse")
	require.NoError(t, err)
	assert.Equal(t, a.key, b.key)

	sealed, err := a.Encrypt([]byte("token"))
	require.NoError(t, err)
	opened, err := b.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, "token", string(opened))

	_, err = NewCipherFromSecret("")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
