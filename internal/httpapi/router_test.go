package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thesecretlab-dev/zeroid/internal/audit"
	"github.com/thesecretlab-dev/zeroid/internal/cache"
	"github.com/thesecretlab-dev/zeroid/internal/escrow"
	"github.com/thesecretlab-dev/zeroid/internal/issuer"
	"github.com/thesecretlab-dev/zeroid/internal/kms"
	"github.com/thesecretlab-dev/zeroid/internal/kycprovider"
	"github.com/thesecretlab-dev/zeroid/internal/sanctions"
	"github.com/thesecretlab-dev/zeroid/internal/store"
	"github.com/thesecretlab-dev/zeroid/internal/verification"
	"github.com/thesecretlab-dev/zeroid/internal/verifier"
)

const testAPIKey = "test-key-123"

// fakeGroth16 lets these tests drive the `/proof/verify` and
// `/proof/aggregate` routes without a real trusted-setup vkey and
// BN254 proof, the same substitution internal/verifier's own tests use.
type fakeGroth16 struct{ valid bool }

func (f *fakeGroth16) Verify(verifier.Proof, []string) (bool, error) { return f.valid, nil }

func newTestRouter(t *testing.T, proofsValid bool) http.Handler {
	t.Helper()
	ctx := context.Background()

	provider, err := kms.NewLocalProvider("")
	require.NoError(t, err)
	issuerKeyID, err := provider.New(ctx, kms.KeyTypeIssuerEdDSA, "issuer")
	require.NoError(t, err)
	_, err = provider.New(ctx, kms.KeyTypeRegulatorAES, "default")
	require.NoError(t, err)

	screener, err := sanctions.NewScreener(4, []int64{408, 364, 850})
	require.NoError(t, err)

	storeKey := make([]byte, 32)
	for i := range storeKey {
		storeKey[i] = byte(i + 1)
	}
	credentialsKey := make([]byte, 32)
	for i := range credentialsKey {
		credentialsKey[i] = byte(i + 7)
	}
	auditStore := store.NewMemoryAuditStore()
	auditLogger := audit.NewLogger(auditStore)
	escrowSvc := escrow.NewService(store.NewMemoryKV(), storeKey, auditLogger)

	issuerSvc := issuer.NewService(
		screener,
		kycprovider.NewMockProvider(),
		provider,
		kms.NewRegulatorKeys(provider),
		issuerKeyID,
		escrowSvc,
		store.NewMemoryCredentials(),
		credentialsKey,
		auditLogger,
	)

	l1 := cache.NewL1()
	l2 := cache.NewL2(store.NewMemoryKV(), storeKey)
	twoLayer := cache.NewTwoLayer(l1, l2)
	nullifiers := verifier.NewNullifierRegistry(store.NewMemoryNullifiers(), auditLogger)

	verifierSvc := verifier.NewService(&fakeGroth16{valid: proofsValid}, twoLayer, nullifiers, verifier.NewPool(), auditLogger)

	return NewRouter(Config{
		Issuer:       issuerSvc,
		Verifier:     verifierSvc,
		Verification: verification.NewStore(),
		APIKeys:      []string{testAPIKey},
		CORSOrigin:   "*",
		RateLimit:    0,
	})
}

func doRequest(t *testing.T, h http.Handler, method, path string, body interface{}, withAuth bool) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if withAuth {
		req.Header.Set("Authorization", "Bearer "+testAPIKey)
		req.Header.Set("X-ZeroID-Version", "1")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func Test_Health_NoAuthRequired(t *testing.T) {
	h := newTestRouter(t, true)
	rec := doRequest(t, h, http.MethodGet, "/health", nil, false)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func Test_ProtectedRoute_RejectsMissingAuth(t *testing.T) {
	h := newTestRouter(t, true)
	rec := doRequest(t, h, http.MethodPost, "/api/v1/credential", credentialRequest{}, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func Test_IssueCredential_HappyPath(t *testing.T) {
	h := newTestRouter(t, true)
	rec := doRequest(t, h, http.MethodPost, "/api/v1/credential", credentialRequest{
		FullName:       "Alice Ng",
		DateOfBirth:    "1990-01-15",
		CountryCode:    840,
		DocumentType:   "passport",
		DocumentNumber: "X123",
	}, true)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp credentialResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Credential.ID)
	assert.NotEmpty(t, resp.EscrowID)
}

func Test_IssueCredential_SanctionedCountry_Returns403(t *testing.T) {
	h := newTestRouter(t, true)
	rec := doRequest(t, h, http.MethodPost, "/api/v1/credential", credentialRequest{
		FullName:       "Alice Ng",
		DateOfBirth:    "1990-01-15",
		CountryCode:    408,
		DocumentType:   "passport",
		DocumentNumber: "X123",
	}, true)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func Test_IssueCredential_InvalidBody_Returns400(t *testing.T) {
	h := newTestRouter(t, true)
	rec := doRequest(t, h, http.MethodPost, "/api/v1/credential", credentialRequest{
		FullName:     "Alice Ng",
		DateOfBirth:  "not-a-date",
		CountryCode:  840,
		DocumentType: "passport",
	}, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func Test_StartAndGetVerification(t *testing.T) {
	h := newTestRouter(t, true)
	startRec := doRequest(t, h, http.MethodPost, "/api/v1/verify", verifyRequestBody{
		UserID:       "user-1",
		Requirements: []requirementDTO{{Type: "age_gte", Value: "18"}},
	}, true)
	require.Equal(t, http.StatusCreated, startRec.Code)

	var started map[string]string
	require.NoError(t, json.Unmarshal(startRec.Body.Bytes(), &started))
	require.NotEmpty(t, started["id"])
	assert.Equal(t, "pending", started["status"])

	getRec := doRequest(t, h, http.MethodGet, "/api/v1/verify/"+started["id"], nil, true)
	assert.Equal(t, http.StatusOK, getRec.Code)
}

func Test_GetVerification_UnknownID_Returns404(t *testing.T) {
	h := newTestRouter(t, true)
	rec := doRequest(t, h, http.MethodGet, "/api/v1/verify/does-not-exist", nil, true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func Test_ProofVerify_HappyPath(t *testing.T) {
	h := newTestRouter(t, true)
	rec := doRequest(t, h, http.MethodPost, "/api/v1/proof/verify", proofVerifyRequest{
		Proof:         proofDTO{Protocol: "groth16"},
		PublicSignals: []string{"1", "2", "18", "408", "1", "555", "999"},
	}, true)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp proofVerifyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Valid)
}

func Test_ProofAggregate_RejectsEmpty(t *testing.T) {
	h := newTestRouter(t, true)
	rec := doRequest(t, h, http.MethodPost, "/api/v1/proof/aggregate", proofAggregateRequest{}, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
