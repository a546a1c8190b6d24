// Package kms abstracts key storage and signing behind a pluggable
// KeyProvider, so the issuer's EdDSA signing key and the regulators'
// escrow AES keys can live in a local file, HashiCorp Vault, or AWS
// KMS without the rest of the codebase caring which.
package kms

import (
	"context"
	"errors"
)

// KeyType distinguishes the two kinds of secret this package manages.
type KeyType string

const (
	// KeyTypeIssuerEdDSA is the BabyJubJub/EdDSA keypair the issuer
	// signs credentials with (spec.md §4.1, §4.5).
	KeyTypeIssuerEdDSA KeyType = "eddsa-babyjubjub"
	// KeyTypeRegulatorAES is a raw 32-byte AES-256 key used to decrypt
	// escrow entries (spec.md §4.4, §5 "regulator keys").
	KeyTypeRegulatorAES KeyType = "aes-256-regulator"
)

// KeyID names a stored key: its type plus a logical name chosen by the
// caller (e.g. a regulator ID); each provider derives its own storage
// location from the pair.
type KeyID struct {
	Type KeyType
	ID   string
}

var (
	// ErrKeyNotFound is returned when no key material exists for a KeyID.
	ErrKeyNotFound = errors.New("kms: key not found")
	// ErrIncorrectKeyType is returned when a KeyID's Type doesn't match
	// the KeyType a method expects.
	ErrIncorrectKeyType = errors.New("kms: incorrect key type")
)

// KeyProvider stores and operates on key material without exposing it
// to callers beyond what's strictly needed: raw bytes for symmetric
// regulator keys, signatures (never the private scalar) for the
// issuer's signing key.
type KeyProvider interface {
	// New generates fresh key material of the given type and returns
	// its KeyID. For KeyTypeRegulatorAES, id is the regulator ID; for
	// KeyTypeIssuerEdDSA it is the caller's name for the issuer key. The
	// returned KeyID carries id unchanged.
	New(ctx context.Context, keyType KeyType, id string) (KeyID, error)

	// PublicKey returns the EdDSA public key (X||Y, 32 bytes each) for
	// a KeyTypeIssuerEdDSA KeyID. Returns ErrIncorrectKeyType for any
	// other KeyType.
	PublicKey(ctx context.Context, keyID KeyID) ([]byte, error)

	// Sign signs msg (a big-endian field element) with a
	// KeyTypeIssuerEdDSA key, returning the raw R8x||R8y||S encoding
	// (internal/zkcrypto/eddsa.Signature.Bytes shape).
	Sign(ctx context.Context, keyID KeyID, msg []byte) ([]byte, error)

	// SymmetricKey returns the raw bytes of a KeyTypeRegulatorAES key.
	SymmetricKey(ctx context.Context, keyID KeyID) ([]byte, error)

	// Exists reports whether key material is present for keyID.
	Exists(ctx context.Context, keyID KeyID) (bool, error)

	// Delete removes key material for keyID, of either KeyType.
	Delete(ctx context.Context, keyID KeyID) error
}
