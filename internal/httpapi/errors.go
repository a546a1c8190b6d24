// Package httpapi wires ZeroID's service layer (issuer, verifier,
// verification, sanctions) onto the HTTP surface from spec.md §6,
// using chi for routing and the teacher's handler-per-resource layout.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/thesecretlab-dev/zeroid/internal/apperr"
	"github.com/thesecretlab-dev/zeroid/internal/log"
)

// errorBody is the `{error, message, details?}` envelope from spec.md
// §7 "User-visible".
type errorBody struct {
	Error   string             `json:"error"`
	Message string             `json:"message"`
	Details []apperr.FieldError `json:"details,omitempty"`
}

// statusFor maps an apperr.Kind to the HTTP status spec.md §7's
// taxonomy table names. Policy errors are deliberately not 1:1 with a
// single status: issuer/verifier choose the specific kind (Forbidden
// for sanctions, Policy for KYC failure, Conflict for replay) so this
// mapping only has to be a straight lookup.
func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindAuth:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindRateLimit:
		return http.StatusTooManyRequests
	case apperr.KindPolicy:
		return http.StatusUnprocessableEntity
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindGone, apperr.KindExpired:
		return http.StatusGone
	case apperr.KindUnavailable:
		return http.StatusServiceUnavailable
	case apperr.KindIntegrity, apperr.KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as the spec.md §7 error envelope. Integrity
// errors never reach the body as anything but the generic message —
// the taxonomy's own "do NOT return plaintext" rule — and are always
// logged with full context since the client-visible message is
// deliberately thin.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	appErr, ok := err.(*apperr.Error)
	if !ok {
		appErr = apperr.Wrap(apperr.KindInternal, "internal error", err)
	}

	status := statusFor(appErr.Kind)
	message := appErr.Message
	if appErr.Kind == apperr.KindIntegrity || appErr.Kind == apperr.KindInternal {
		log.Error(r.Context(), "request failed", "kind", string(appErr.Kind), "error", appErr.Error())
		message = "an internal error occurred"
	}

	writeJSON(w, status, errorBody{
		Error:   string(appErr.Kind),
		Message: message,
		Details: appErr.Details,
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperr.Wrap(apperr.KindValidation, "malformed request body", err)
	}
	return nil
}
