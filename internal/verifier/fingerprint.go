package verifier

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// fingerprintPayload is the exact shape canonicalized before hashing:
// {proof, publicSignals}, per spec.md §4.6's
// `fingerprint(proof, publicSignals) = SHA-256(canonical_json({proof, publicSignals}))`.
// encoding/json already emits struct fields in declaration order, and
// both pi_b and publicSignals are positional, not sorted, so this
// marshal is already canonical without further normalization.
type fingerprintPayload struct {
	Proof         Proof    `json:"proof"`
	PublicSignals []string `json:"publicSignals"`
}

// Fingerprint computes the cache key for a (proof, publicSignals) pair.
func Fingerprint(proof Proof, publicSignals []string) (string, error) {
	canonical, err := json.Marshal(fingerprintPayload{Proof: proof, PublicSignals: publicSignals})
	if err != nil {
		return "", fmt.Errorf("verifier: marshal fingerprint payload: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
