// Package eddsa wraps github.com/iden3/go-iden3-crypto/babyjub's
// EdDSA-over-BabyJubJub-with-Poseidon-message-hash scheme, exactly the
// signature scheme the KYC circuit verifies in-circuit (spec.md §4.1).
package eddsa

import (
	"fmt"
	"math/big"

	"github.com/iden3/go-iden3-crypto/babyjub"
)

// PrivateKey is a 32-byte BabyJubJub scalar seed.
type PrivateKey = babyjub.PrivateKey

// KeyPair holds a generated BabyJubJub key pair.
type KeyPair struct {
	Priv PrivateKey
	Pub  *babyjub.PublicKey
}

// Signature is (R8, S) as BabyJubJub point + scalar, per spec.md §3.
type Signature struct {
	R8x *big.Int
	R8y *big.Int
	S   *big.Int
}

// Generate draws a new random BabyJubJub key pair, implementing
// eddsa_generate() from spec.md §4.1.
func Generate() (*KeyPair, error) {
	priv := babyjub.NewRandPrivKey()
	pub := priv.Public()
	return &KeyPair{Priv: priv, Pub: pub}, nil
}

// FromHex reconstructs a key pair from a raw 32-byte seed (the
// already-decoded bytes, not a hex string).
func FromHex(seed [32]byte) *KeyPair {
	priv := babyjub.PrivateKey(seed)
	return &KeyPair{Priv: priv, Pub: priv.Public()}
}

// SignPoseidon signs a single field element message, implementing
// eddsa_sign_poseidon(privKey, msg) from spec.md §4.1.
func SignPoseidon(priv PrivateKey, msg *big.Int) (*Signature, error) {
	if msg == nil {
		return nil, fmt.Errorf("eddsa: nil message")
	}
	sig := priv.SignPoseidon(msg)
	return &Signature{R8x: sig.R8.X, R8y: sig.R8.Y, S: sig.S}, nil
}

// VerifyPoseidon implements eddsa_verify_poseidon(pubKey, msg, sig)
// from spec.md §4.1.
func VerifyPoseidon(pub *babyjub.PublicKey, msg *big.Int, sig *Signature) bool {
	if pub == nil || msg == nil || sig == nil {
		return false
	}
	bjSig := &babyjub.Signature{
		R8: &babyjub.Point{X: sig.R8x, Y: sig.R8y},
		S:  sig.S,
	}
	return pub.VerifyPoseidon(msg, bjSig)
}
