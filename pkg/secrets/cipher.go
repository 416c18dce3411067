package secrets

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

var (
	ErrEmptyKey         = errors.New("encryption key must not be empty")
	ErrMalformedMessage = errors.New("malformed encrypted message")
	ErrDecryptionFailed = errors.New("decryption failed")
)

// Cipher seals and opens credential secrets so they are never stored in
// plaintext. The key material is derived from an operator-supplied passphrase.
type Cipher struct {
	key [32]byte
}

func NewCipher(passphrase string) (*Cipher, error) {
	if passphrase == "" {
		return nil, ErrEmptyKey
	}
	return &Cipher{key: sha256.Sum256([]byte(passphrase))}, nil
}

// Encrypt returns a base64 token containing nonce + ciphertext.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	var nonce [24]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}

	sealed := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &c.key)
	return base64.URLEncoding.EncodeToString(sealed), nil
}

func (c *Cipher) Decrypt(token string) (string, error) {
	raw, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if len(raw) < 24 {
		return "", ErrMalformedMessage
	}

	var nonce [24]byte
	copy(nonce[:], raw[:24])

	plaintext, ok := secretbox.Open(nil, raw[24:], &nonce, &c.key)
	if !ok {
		return "", ErrDecryptionFailed
	}
	return string(plaintext), nil
}
