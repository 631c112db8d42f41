package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	c, err := New("test-secret")
	require.NoError(t, err)

	cases := []string{
		"hello",
		"",
		"многоязычный текст 🐱",
		strings.Repeat("a", 4000),
	}
	for _, plaintext := range cases {
		encrypted, err := c.Encrypt(plaintext)
		require.NoError(t, err)
		assert.NotEqual(t, plaintext, encrypted)

		decrypted, err := c.Decrypt(encrypted)
		require.NoError(t, err)
		assert.Equal(t, plaintext, decrypted)
	}
}

func TestEncryptIsNotDeterministicAcrossCalls(t *testing.T) {
	c, err := New("test-secret")
	require.NoError(t, err)

	first, err := c.Encrypt("hello")
	require.NoError(t, err)
	second, err := c.Encrypt("hello")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestDecryptMalformedInput(t *testing.T) {
	c, err := New("test-secret")
	require.NoError(t, err)

	for _, input := range []string{"", "not base64 at all!!!", "aGVsbG8="} {
		_, err := c.Decrypt(input)
		assert.ErrorIs(t, err, ErrDecrypt)
	}
}

func TestDecryptForeignKeyCiphertext(t *testing.T) {
	sender, err := New("secret-one")
	require.NoError(t, err)
	receiver, err := New("secret-two")
	require.NoError(t, err)

	encrypted, err := sender.Encrypt("hello")
	require.NoError(t, err)

	_, err = receiver.Decrypt(encrypted)
	assert.ErrorIs(t, err, ErrDecrypt)
}

func TestNewRequiresSecret(t *testing.T) {
	_, err := New("")
	require.Error(t, err)
}
