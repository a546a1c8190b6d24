// Package middleware holds the chi middleware chain ZeroID's protected
// routes run through: bearer API-key auth, per-key rate limiting, and
// request logging, per spec.md §5 and §6.
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/thesecretlab-dev/zeroid/internal/apperr"
	"github.com/thesecretlab-dev/zeroid/internal/common"
)

// apiKeyContextKey is the context key the authenticated request's API
// key is stored under, for handlers that need to attribute an action
// to a caller (e.g. audit log actor).
type apiKeyContextKey struct{}

// APIKeyFromContext returns the bearer key a request authenticated
// with, if any.
func APIKeyFromContext(ctx context.Context) string {
	key, _ := ctx.Value(apiKeyContextKey{}).(string)
	return key
}

// Auth enforces spec.md §6's "all protected routes require
// `Authorization: Bearer <api_key>` and `X-ZeroID-Version: 1`", against
// the fixed allow-list loaded from ZEROID_API_KEYS.
func Auth(allowedKeys []string) func(http.Handler) http.Handler {
	allowed := make([]string, 0, len(allowedKeys))
	for _, k := range allowedKeys {
		if k != "" {
			allowed = append(allowed, k)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, ok := bearerKey(r.Header.Get("Authorization"))
			if !ok {
				writeAuthError(w, r, apperr.New(apperr.KindAuth, "missing bearer token"))
				return
			}
			if !isAllowed(allowed, key) {
				writeAuthError(w, r, apperr.New(apperr.KindAuth, "invalid api key"))
				return
			}

			if r.Header.Get("X-ZeroID-Version") != "1" {
				writeAuthError(w, r, apperr.New(apperr.KindValidation, "missing or unsupported X-ZeroID-Version header"))
				return
			}

			ctx := context.WithValue(r.Context(), apiKeyContextKey{}, key)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// isAllowed compares key against every entry in allowed using a
// constant-time comparison, so a caller probing the endpoint can't
// infer how many characters of a guess matched.
func isAllowed(allowed []string, key string) bool {
	match := false
	for _, k := range allowed {
		if common.ConstantTimeEquals(k, key) {
			match = true
		}
	}
	return match
}

func bearerKey(header string) (string, bool) {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	key := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	if key == "" {
		return "", false
	}
	return key, true
}

// writeAuthError renders the spec.md §7 error envelope without
// depending on internal/httpapi (would be an import cycle); it's the
// same shape, duplicated at this one seam.
func writeAuthError(w http.ResponseWriter, r *http.Request, err *apperr.Error) {
	status := http.StatusUnauthorized
	switch err.Kind {
	case apperr.KindValidation:
		status = http.StatusBadRequest
	case apperr.KindRateLimit:
		status = http.StatusTooManyRequests
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}{Error: string(err.Kind), Message: err.Message})
}
