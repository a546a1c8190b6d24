package verifier

import (
	"context"

	"github.com/thesecretlab-dev/zeroid/internal/apperr"
	"github.com/thesecretlab-dev/zeroid/internal/audit"
	"github.com/thesecretlab-dev/zeroid/internal/cache"
)

// VerifyRequest is the `POST /proof/verify` body (spec.md §6).
type VerifyRequest struct {
	Proof         Proof
	PublicSignals []string
}

// VerifyResult is the `POST /proof/verify` response (spec.md §4.6 step 8).
type VerifyResult struct {
	Valid     bool
	Nullifier string
	Cached    bool
}

// ProofVerifier is the subset of Groth16Verifier's behavior Service
// depends on; tests (in this package and internal/httpapi) substitute
// a deterministic fake so they don't need a real trusted-setup
// verification key and proof.
type ProofVerifier interface {
	Verify(proof Proof, publicSignals []string) (bool, error)
}

// Service ties the cache, Groth16 verifier, and nullifier registry
// into the single `POST /proof/verify` pipeline (spec.md §4.6 steps 1-8).
type Service struct {
	groth16    ProofVerifier
	cache      *cache.TwoLayer
	nullifiers *NullifierRegistry
	pool       *Pool
	audit      *audit.Logger
}

// NewService wires the verify pipeline's collaborators. groth16 is
// typically a *Groth16Verifier in production; tests pass a fake
// satisfying ProofVerifier instead.
func NewService(groth16 ProofVerifier, twoLayer *cache.TwoLayer, nullifiers *NullifierRegistry, pool *Pool, auditLogger *audit.Logger) *Service {
	return &Service{groth16: groth16, cache: twoLayer, nullifiers: nullifiers, pool: pool, audit: auditLogger}
}

// Verify implements spec.md §4.6 steps 2-8. Validation of the raw
// request body (step 1) happens in internal/httpapi before this is called.
func (s *Service) Verify(ctx context.Context, req VerifyRequest) (VerifyResult, error) {
	fingerprint, err := Fingerprint(req.Proof, req.PublicSignals)
	if err != nil {
		return VerifyResult{}, apperr.Wrap(apperr.KindValidation, "compute fingerprint", err)
	}

	if entry, hit := s.cache.Get(ctx, fingerprint); hit {
		return VerifyResult{Valid: entry.Valid, Nullifier: entry.Nullifier, Cached: true}, nil
	}

	signals, err := ParseSignals(req.PublicSignals)
	if err != nil {
		return VerifyResult{}, apperr.Wrap(apperr.KindValidation, "parse public signals", err)
	}

	var valid bool
	var verifyErr error
	s.pool.Do(func() {
		valid, verifyErr = s.groth16.Verify(req.Proof, req.PublicSignals)
	})
	if verifyErr != nil {
		return VerifyResult{}, apperr.Wrap(apperr.KindInternal, "groth16 verify", verifyErr)
	}

	nullifierStr := signals.Nullifier.String()
	if valid {
		registered, err := s.nullifiers.RegisterOrReplay(ctx, signals, "")
		if err != nil {
			return VerifyResult{}, apperr.Wrap(apperr.KindInternal, "register nullifier", err)
		}
		if !registered {
			return VerifyResult{Valid: false, Nullifier: nullifierStr}, apperr.New(apperr.KindConflict, "nullifier already consumed")
		}
	}

	if err := s.cache.Set(ctx, fingerprint, valid, nullifierStr); err != nil {
		return VerifyResult{}, apperr.Wrap(apperr.KindInternal, "write cache", err)
	}

	if s.audit != nil {
		if err := s.audit.ProofVerify(ctx, fingerprint, "verifier", valid, false); err != nil {
			return VerifyResult{}, apperr.Wrap(apperr.KindInternal, "append audit entry", err)
		}
	}

	return VerifyResult{Valid: valid, Nullifier: nullifierStr, Cached: false}, nil
}
