package issuer

import (
	"context"
	"testing"
	"time"

	"github.com/iden3/go-iden3-crypto/babyjub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thesecretlab-dev/zeroid/internal/apperr"
	"github.com/thesecretlab-dev/zeroid/internal/audit"
	"github.com/thesecretlab-dev/zeroid/internal/domain"
	"github.com/thesecretlab-dev/zeroid/internal/escrow"
	"github.com/thesecretlab-dev/zeroid/internal/kms"
	"github.com/thesecretlab-dev/zeroid/internal/kycprovider"
	"github.com/thesecretlab-dev/zeroid/internal/sanctions"
	"github.com/thesecretlab-dev/zeroid/internal/store"
	"github.com/thesecretlab-dev/zeroid/internal/zkcrypto/eddsa"
)

func newTestIssuerService(t *testing.T) *Service {
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
	auditStore := store.NewMemoryAuditStore()
	auditLogger := audit.NewLogger(auditStore)
	escrowSvc := escrow.NewService(store.NewMemoryKV(), storeKey, auditLogger)

	credentialsKey := make([]byte, 32)
	for i := range credentialsKey {
		credentialsKey[i] = byte(i + 7)
	}

	return NewService(
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
}

func happyRequest() Request {
	return Request{
		Submission: domain.KycSubmission{
			FullName:       "Alice Ng",
			DateOfBirth:    "1990-01-15",
			CountryCode:    840,
			DocumentType:   domain.DocumentPassport,
			DocumentNumber: "X123",
		},
	}
}

// Test_Issue_HappyPath covers spec.md §8 scenario 1.
func Test_Issue_HappyPath(t *testing.T) {
	svc := newTestIssuerService(t)
	resp, err := svc.Issue(context.Background(), happyRequest())
	require.NoError(t, err)

	assert.NotEmpty(t, resp.EscrowID)
	assert.NotEmpty(t, resp.Credential.ID)
	assert.Equal(t, domain.LevelAgeAndCountry, resp.Credential.Level)
	assert.NotNil(t, resp.Credential.CredentialHash)
	assert.NotNil(t, resp.Credential.UserSecret)

	pub := &babyjub.PublicKey{X: resp.Credential.IssuerPubKey.X, Y: resp.Credential.IssuerPubKey.Y}
	ok := eddsa.VerifyPoseidon(pub, resp.Credential.CredentialHash, &eddsa.Signature{
		R8x: resp.Credential.Signature.R8x,
		R8y: resp.Credential.Signature.R8y,
		S:   resp.Credential.Signature.S,
	})
	assert.True(t, ok)
}

// Test_Issue_SanctionedCountry covers spec.md §8 scenario 2.
func Test_Issue_SanctionedCountry(t *testing.T) {
	svc := newTestIssuerService(t)
	req := happyRequest()
	req.Submission.CountryCode = 408 // DPRK

	_, err := svc.Issue(context.Background(), req)
	require.Error(t, err)
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.KindForbidden, appErr.Kind)
}

// Test_Issue_KycRejected covers spec.md §8 scenario 3.
func Test_Issue_KycRejected(t *testing.T) {
	svc := newTestIssuerService(t)
	req := happyRequest()
	req.Submission.FullName = "REJECT ME"

	_, err := svc.Issue(context.Background(), req)
	require.Error(t, err)
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.KindPolicy, appErr.Kind)
}

func Test_Issue_InvalidDocumentType(t *testing.T) {
	svc := newTestIssuerService(t)
	req := happyRequest()
	req.Submission.DocumentType = "fake_id"

	_, err := svc.Issue(context.Background(), req)
	require.Error(t, err)
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.KindValidation, appErr.Kind)
}

// Test_Issue_PersistsPayloadEncrypted covers spec.md §3's "userSecret
// never stored server-side in plaintext": the bytes written to the
// credentials store must not contain the userSecret's decimal digits,
// and Fetch must be able to reverse the envelope back to the original
// credential.
func Test_Issue_PersistsPayloadEncrypted(t *testing.T) {
	svc := newTestIssuerService(t)
	resp, err := svc.Issue(context.Background(), happyRequest())
	require.NoError(t, err)

	doc, err := svc.credentials.Get(context.Background(), resp.Credential.ID)
	require.NoError(t, err)
	assert.NotContains(t, string(doc.EncryptedPayload), resp.Credential.UserSecret.String())
	assert.NotContains(t, string(doc.EncryptedPayload), resp.Credential.CredentialHash.String())

	fetched, err := svc.Fetch(context.Background(), resp.Credential.ID)
	require.NoError(t, err)
	assert.Equal(t, resp.Credential.UserSecret, fetched.UserSecret)
	assert.Equal(t, resp.Credential.CredentialHash, fetched.CredentialHash)
	assert.Equal(t, resp.Credential.Signature, fetched.Signature)
	assert.Equal(t, resp.Credential.IssuerPubKey, fetched.IssuerPubKey)
}

func Test_Fetch_UnknownID_ReturnsNotFound(t *testing.T) {
	svc := newTestIssuerService(t)
	_, err := svc.Fetch(context.Background(), "does-not-exist")
	require.Error(t, err)
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.KindNotFound, appErr.Kind)
}

func Test_DeriveAge_MonthDayCarry(t *testing.T) {
	before := time.Date(2024, time.June, 14, 0, 0, 0, 0, time.UTC)
	age, err := deriveAge("1990-06-15", before)
	require.NoError(t, err)
	assert.Equal(t, 33, age) // birthday hasn't happened yet this year

	onBirthday := time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC)
	age2, err := deriveAge("1990-06-15", onBirthday)
	require.NoError(t, err)
	assert.Equal(t, 34, age2)
}
