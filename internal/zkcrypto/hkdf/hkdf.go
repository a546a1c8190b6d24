// Package hkdf derives per-store AES keys from a single master secret,
// per spec.md §4.2: HKDF-SHA-256, empty salt, one invocation per store.
package hkdf

import (
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
	"crypto/sha256"

	"github.com/thesecretlab-dev/zeroid/internal/zkcrypto/aesgcm"
)

const infoPrefix = "zeroid-store-"

// DeriveStoreKey returns storeKey[name] = HKDF(masterKey,
// info="zeroid-store-"+name, L=32).
func DeriveStoreKey(masterKey []byte, name string) ([]byte, error) {
	if len(masterKey) == 0 {
		return nil, fmt.Errorf("hkdf: empty master key")
	}
	info := []byte(infoPrefix + name)
	r := hkdf.New(sha256.New, masterKey, nil, info)
	key := make([]byte, aesgcm.KeySize)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("hkdf: derive %q: %w", name, err)
	}
	return key, nil
}
