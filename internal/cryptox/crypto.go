// Package cryptox seals credentials at rest: a key is derived from a
// passphrase with Argon2id and values are encrypted with AES-256-GCM.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"

	"golang.org/x/crypto/argon2"
)

const (
	KeySize  = 32
	SaltSize = 16
)

// ErrCiphertextTooShort is returned by Open when the input cannot even hold a nonce.
var ErrCiphertextTooShort = errors.New("ciphertext too short")

// DeriveKey derives a 256-bit key from passphrase and salt with Argon2id.
func DeriveKey(passphrase, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, 1, 64*1024, 4, KeySize)
}

// RandomBytes returns n bytes from crypto/rand.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

// Seal encrypts plaintext with AES-GCM under key. The random nonce is
// prepended to the returned ciphertext.
func Seal(plaintext, key []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce, err := RandomBytes(aead.NonceSize())
	if err != nil {
		return nil, err
	}

	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open reverses Seal.
func Open(sealed, key []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	ns := aead.NonceSize()
	if len(sealed) < ns {
		return nil, ErrCiphertextTooShort
	}

	return aead.Open(nil, sealed[:ns], sealed[ns:], nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
