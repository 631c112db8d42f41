package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

// ErrDecrypt is returned for malformed ciphertext or ciphertext produced
// under a different key. Callers substitute a placeholder instead of
// propagating it to clients.
var ErrDecrypt = errors.New("cannot decrypt message")

const (
	keySalt       = "messenger_salt"
	keyIterations = 100000
	keyLength     = 32
)

// Cipher encrypts and decrypts message bodies with a key derived once from
// the configured secret and held for the process lifetime.
type Cipher struct {
	aead cipher.AEAD
}

// New derives the symmetric key (PBKDF2-HMAC-SHA256, fixed salt, 100000
// iterations) and builds the AES-256-GCM cipher.
func New(secret string) (*Cipher, error) {
	if secret == "" {
		return nil, errors.New("encryption secret is empty")
	}
	key := pbkdf2.Key([]byte(secret), []byte(keySalt), keyIterations, keyLength, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Cipher{aead: aead}, nil
}

// Encrypt seals plaintext and returns a base64 envelope of nonce||ciphertext.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.URLEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a base64 envelope produced by Encrypt. Any failure, from
// bad encoding to a failed authentication tag, is reported as ErrDecrypt.
func (c *Cipher) Decrypt(encoded string) (string, error) {
	sealed, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrDecrypt
	}
	if len(sealed) < c.aead.NonceSize() {
		return "", ErrDecrypt
	}
	nonce, ciphertext := sealed[:c.aead.NonceSize()], sealed[c.aead.NonceSize():]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrDecrypt
	}
	return string(plaintext), nil
}
