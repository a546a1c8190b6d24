package httpapi

import (
	"net/http"

	"github.com/thesecretlab-dev/zeroid/internal/verifier"
)

// verifyProof implements `POST /api/v1/proof/verify` (spec.md §6).
func (h *handlers) verifyProof(w http.ResponseWriter, r *http.Request) {
	var body proofVerifyRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	if err := validateProofSignals(body.PublicSignals); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.verifier.Verify(r.Context(), verifier.VerifyRequest{
		Proof:         body.Proof.toVerifierProof(),
		PublicSignals: body.PublicSignals,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newProofVerifyResponse(result))
}

// aggregateProofs implements `POST /api/v1/proof/aggregate` (spec.md §6).
func (h *handlers) aggregateProofs(w http.ResponseWriter, r *http.Request) {
	var body proofAggregateRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	if err := validateAggregateRequest(body.Proofs); err != nil {
		writeError(w, r, err)
		return
	}

	entries := make([]verifier.AggregateEntry, len(body.Proofs))
	for i, p := range body.Proofs {
		entries[i] = verifier.AggregateEntry{Proof: p.Proof.toVerifierProof(), PublicSignals: p.PublicSignals}
	}

	result, err := h.verifier.Aggregate(r.Context(), entries)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newProofAggregateResponse(result))
}
