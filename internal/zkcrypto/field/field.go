// Package field provides helpers over the BN254 scalar field (Fr), the
// field Poseidon and BabyJubJub/EdDSA operate on in this codebase.
package field

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Modulus is the BN254 Fr prime, matching circomlib's Poseidon and
// BabyJubJub parameterization.
var Modulus, _ = new(big.Int).SetString(
	"21888242871839275222246405745257275088548364400416034343698204186575808495617", 10,
)

// Random draws a uniformly random field element by reducing 31 random
// bytes modulo Modulus, per spec.md's userSecret generation rule.
func Random() (*big.Int, error) {
	buf := make([]byte, 31)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("field: read random bytes: %w", err)
	}
	return new(big.Int).Mod(new(big.Int).SetBytes(buf), Modulus), nil
}

// Reduce returns v mod Modulus, always non-negative.
func Reduce(v *big.Int) *big.Int {
	return new(big.Int).Mod(v, Modulus)
}

// FitsBits reports whether v is a non-negative integer representable
// in the given number of bits, the circuit-side constraint on age.
func FitsBits(v *big.Int, bits int) bool {
	if v.Sign() < 0 {
		return false
	}
	return v.BitLen() <= bits
}

// ParseDecimal parses a base-10 field element as used on the wire
// (public signals, credential JSON) and validates it is < Modulus.
func ParseDecimal(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("field: invalid decimal string %q", s)
	}
	if v.Sign() < 0 || v.Cmp(Modulus) >= 0 {
		return nil, fmt.Errorf("field: value %s out of range", s)
	}
	return v, nil
}
