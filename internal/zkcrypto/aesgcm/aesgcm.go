// Package aesgcm implements the AES-256-GCM primitive from spec.md §4.2:
// 32-byte key, 96-bit random IV per encryption, 128-bit tag, with a
// distinct error on tag mismatch / wrong key / malformed payload.
package aesgcm

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
)

// KeySize is the required AES-256 key length.
const KeySize = 32

// IVSize is the GCM standard 96-bit nonce.
const IVSize = 12

// TagSize is the GCM standard 128-bit authentication tag.
const TagSize = 16

// ErrAuthFailed is returned on tag mismatch, wrong key, or a malformed
// envelope. It intentionally carries no detail about which failed, so
// callers can't be used as a decryption oracle.
var ErrAuthFailed = errors.New("aesgcm: authentication failed")

// Envelope is the wire/storage shape {iv, ciphertext, tag} from spec.md §3.
type Envelope struct {
	IV         []byte
	Ciphertext []byte
	Tag        []byte
}

// Encrypt encrypts plaintext under key, generating a fresh CSPRNG IV.
// Keys must never be reused with an attacker-controlled IV; this
// package always draws the IV itself to make reuse impossible.
func Encrypt(key, plaintext []byte) (*Envelope, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("aesgcm: key must be %d bytes, got %d", KeySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aesgcm: new cipher: %w", err)
	}
	gcm, err := cipher.NewGCMWithTagSize(block, TagSize)
	if err != nil {
		return nil, fmt.Errorf("aesgcm: new gcm: %w", err)
	}

	iv := make([]byte, IVSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, fmt.Errorf("aesgcm: read iv: %w", err)
	}

	sealed := gcm.Seal(nil, iv, plaintext, nil)
	ctLen := len(sealed) - TagSize
	if ctLen < 0 {
		return nil, fmt.Errorf("aesgcm: unexpected seal output length")
	}

	return &Envelope{
		IV:         iv,
		Ciphertext: sealed[:ctLen],
		Tag:        sealed[ctLen:],
	}, nil
}

// Decrypt authenticates and decrypts env under key. Any failure —
// wrong key, flipped bit in iv/ciphertext/tag, or a malformed envelope
// — returns ErrAuthFailed and nothing else.
func Decrypt(key []byte, env *Envelope) ([]byte, error) {
	if len(key) != KeySize {
		return nil, ErrAuthFailed
	}
	if env == nil || len(env.IV) != IVSize || len(env.Tag) != TagSize {
		return nil, ErrAuthFailed
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, ErrAuthFailed
	}
	gcm, err := cipher.NewGCMWithTagSize(block, TagSize)
	if err != nil {
		return nil, ErrAuthFailed
	}

	sealed := append(append([]byte{}, env.Ciphertext...), env.Tag...)
	plaintext, err := gcm.Open(nil, env.IV, sealed, nil)
	if err != nil {
		return nil, ErrAuthFailed
	}
	return plaintext, nil
}
