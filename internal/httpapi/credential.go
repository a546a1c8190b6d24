package httpapi

import "net/http"

// issueCredential implements `POST /api/v1/credential` (spec.md §6):
// sanctions screen, KYC verify, hash+sign, escrow, persist.
func (h *handlers) issueCredential(w http.ResponseWriter, r *http.Request) {
	var body credentialRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	if err := validateCredentialRequest(body); err != nil {
		writeError(w, r, err)
		return
	}

	resp, err := h.issuer.Issue(r.Context(), body.toIssuerRequest())
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, newCredentialResponse(resp))
}
