package verifier

import (
	"fmt"
	"math/big"

	"github.com/thesecretlab-dev/zeroid/internal/domain"
	"github.com/thesecretlab-dev/zeroid/internal/zkcrypto/field"
)

// signalCount is the fixed arity of the public signal vector spec.md
// §4.6 names: [issuerPubKey.Ax, issuerPubKey.Ay, requiredAge,
// restrictedCountryCode, appId, nullifier, credentialHash].
const signalCount = 7

const (
	signalIssuerAx = iota
	signalIssuerAy
	signalRequiredAge
	signalRestrictedCountryCode
	signalAppID
	signalNullifier
	signalCredentialHash
)

// Signals is the parsed, positionally-decoded public signal vector.
// Field names mirror spec.md §4.6's layout; index 5 is always the
// nullifier and index 4 is always the appId, per that section's
// explicit MUST.
type Signals struct {
	IssuerPubKey          domain.Point
	RequiredAge           *big.Int
	RestrictedCountryCode *big.Int
	AppID                 *big.Int
	Nullifier             *big.Int
	CredentialHash        *big.Int
}

// ParseSignals decodes the ordered decimal-string public signals the
// circuit emits. It rejects anything but exactly signalCount entries
// so a version-mismatched circuit fails loudly rather than silently
// misreading the nullifier.
func ParseSignals(raw []string) (Signals, error) {
	if len(raw) != signalCount {
		return Signals{}, fmt.Errorf("verifier: expected %d public signals, got %d", signalCount, len(raw))
	}

	values := make([]*big.Int, signalCount)
	for i, s := range raw {
		v, err := field.ParseDecimal(s)
		if err != nil {
			return Signals{}, fmt.Errorf("verifier: public signal %d: %w", i, err)
		}
		values[i] = v
	}

	return Signals{
		IssuerPubKey:          domain.Point{X: values[signalIssuerAx], Y: values[signalIssuerAy]},
		RequiredAge:           values[signalRequiredAge],
		RestrictedCountryCode: values[signalRestrictedCountryCode],
		AppID:                 values[signalAppID],
		Nullifier:             values[signalNullifier],
		CredentialHash:        values[signalCredentialHash],
	}, nil
}
