// Package verifier implements the Groth16 proof verification pipeline
// from spec.md §4.6: fingerprinting, the two-layer cache, Groth16
// verification, nullifier enforcement, and bounded-parallel aggregation.
package verifier

import (
	"encoding/json"
	"fmt"

	rapidsnarktypes "github.com/iden3/go-rapidsnark/types"
	"github.com/iden3/go-rapidsnark/verifier"
)

// Proof is the wire shape of a Groth16 proof as produced by the
// circuit's proving toolchain (snarkjs-compatible pi_a/pi_b/pi_c).
type Proof struct {
	PiA      []string   `json:"pi_a"`
	PiB      [][]string `json:"pi_b"`
	PiC      []string   `json:"pi_c"`
	Protocol string     `json:"protocol"`
	Curve    string     `json:"curve"`
}

// Groth16Verifier verifies proofs against a loaded verification key.
type Groth16Verifier struct {
	vkey []byte // raw verification key JSON, per spec.md §6 ZEROID_VKEY_PATH
}

// NewGroth16Verifier wraps a loaded verification key. vkey is the raw
// JSON bytes read from ZEROID_VKEY_PATH; go-rapidsnark/verifier
// consumes it directly without this package needing to parse it.
func NewGroth16Verifier(vkey []byte) *Groth16Verifier {
	return &Groth16Verifier{vkey: vkey}
}

// Verify reports whether proof is valid for publicSignals (ordered
// decimal strings, per spec.md §4.6's public-signal layout). It never
// returns an error for an invalid proof — only for a malformed vkey or
// a proof shape the verifier library cannot even attempt to check.
func (g *Groth16Verifier) Verify(proof Proof, publicSignals []string) (bool, error) {
	zkp := rapidsnarktypes.ZKProof{
		Proof: &rapidsnarktypes.ProofData{
			A:        proof.PiA,
			B:        proof.PiB,
			C:        proof.PiC,
			Protocol: proof.Protocol,
		},
		PubSignals: publicSignals,
	}
	if err := verifier.VerifyGroth16(zkp, g.vkey); err != nil {
		return false, nil //nolint:nilerr // an unverifiable proof is a result, not an error
	}
	return true, nil
}

// ParseProof decodes the raw JSON body of a submitted proof.
func ParseProof(raw []byte) (Proof, error) {
	var p Proof
	if err := json.Unmarshal(raw, &p); err != nil {
		return Proof{}, fmt.Errorf("verifier: decode proof: %w", err)
	}
	return p, nil
}
