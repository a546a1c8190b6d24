package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/thesecretlab-dev/zeroid/internal/verification"
)

// startVerification implements `POST /api/v1/verify` (spec.md §6):
// it validates the requirement list and starts a VerificationRecord
// in the pending state. No HTTP handler advances the record after
// that: the `/credential` and `/proof/verify` handlers do not look up
// or transition verification records, so a record started here stays
// pending.
func (h *handlers) startVerification(w http.ResponseWriter, r *http.Request) {
	var body verifyRequestBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	if err := validateVerifyBody(body); err != nil {
		writeError(w, r, err)
		return
	}

	requirements := body.toDomainRequirements()
	if err := verification.ValidateRequirements(requirements); err != nil {
		writeError(w, r, err)
		return
	}

	record := h.verification.Start(body.UserID, requirements)
	writeJSON(w, http.StatusCreated, map[string]string{"id": record.ID, "status": string(record.Status)})
}

// getVerification implements `GET /api/v1/verify/:id`.
func (h *handlers) getVerification(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	record, err := h.verification.Get(id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newVerificationRecordDTO(record))
}
