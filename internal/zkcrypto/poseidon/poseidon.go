// Package poseidon wraps github.com/iden3/go-iden3-crypto/poseidon, the
// reference implementation whose digests this codebase must reproduce
// byte-for-byte on both the issuance side and the circuit side (see
// spec.md §4.1 — "mismatched parameters silently invalidate every proof").
package poseidon

import (
	"fmt"
	"math/big"

	iden3poseidon "github.com/iden3/go-iden3-crypto/poseidon"

	"github.com/thesecretlab-dev/zeroid/internal/zkcrypto/field"
)

// MaxArity bounds the inputs this package accepts; ZeroID only ever
// hashes with arity 2 (Merkle tree nodes) or 3 (credentialHash).
const MaxArity = 3

// Hash computes Poseidon(inputs) for len(inputs) in {2, 3}. Any other
// arity is rejected: the circuit never emits or consumes it, and a
// silent acceptance would be a latent parameter mismatch.
func Hash(inputs []*big.Int) (*big.Int, error) {
	switch len(inputs) {
	case 2, 3:
	default:
		return nil, fmt.Errorf("poseidon: unsupported arity %d (want 2 or 3)", len(inputs))
	}
	for i, in := range inputs {
		if in == nil {
			return nil, fmt.Errorf("poseidon: input %d is nil", i)
		}
	}
	h, err := iden3poseidon.Hash(inputs)
	if err != nil {
		return nil, fmt.Errorf("poseidon: %w", err)
	}
	return h, nil
}

// Hash2 is the arity-2 case, used by the sanctions Merkle tree.
func Hash2(a, b *big.Int) (*big.Int, error) {
	return Hash([]*big.Int{a, b})
}

// Hash3 is the arity-3 case, used for credentialHash = Poseidon(age,
// countryCode, userSecret).
func Hash3(a, b, c *big.Int) (*big.Int, error) {
	return Hash([]*big.Int{a, b, c})
}

// CredentialHash computes credentialHash = Poseidon(age, countryCode,
// userSecret) exactly as spec.md §3 defines SignedCredential.credentialHash.
func CredentialHash(age, countryCode, userSecret *big.Int) (*big.Int, error) {
	h, err := Hash3(age, countryCode, userSecret)
	if err != nil {
		return nil, fmt.Errorf("poseidon: credential hash: %w", err)
	}
	return field.Reduce(h), nil
}

// Nullifier computes the deterministic per-(user, app) nullifier
// Poseidon(userSecret, appId), per the GLOSSARY definition.
func Nullifier(userSecret, appID *big.Int) (*big.Int, error) {
	return Hash2(userSecret, appID)
}
