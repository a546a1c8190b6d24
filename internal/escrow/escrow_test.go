package escrow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thesecretlab-dev/zeroid/internal/apperr"
	"github.com/thesecretlab-dev/zeroid/internal/audit"
	"github.com/thesecretlab-dev/zeroid/internal/domain"
	"github.com/thesecretlab-dev/zeroid/internal/kms"
	"github.com/thesecretlab-dev/zeroid/internal/store"
)

func newTestService(t *testing.T) (*Service, []byte) {
	t.Helper()
	storeKey := make([]byte, 32)
	for i := range storeKey {
		storeKey[i] = byte(i)
	}
	kv := store.NewMemoryKV()
	auditStore := store.NewMemoryAuditStore()
	logger := audit.NewLogger(auditStore)
	return NewService(kv, storeKey, logger), storeKey
}

func newRegulatorKey(t *testing.T) []byte {
	t.Helper()
	provider, err := kms.NewLocalProvider("")
	require.NoError(t, err)
	keyID, err := provider.New(context.Background(), kms.KeyTypeRegulatorAES, "default")
	require.NoError(t, err)
	key, err := provider.SymmetricKey(context.Background(), keyID)
	require.NoError(t, err)
	return key
}

func samplePII() RawPII {
	return RawPII{
		FullName:       "Alice Example",
		DateOfBirth:    "1990-01-01",
		CountryCode:    840,
		DocumentType:   "passport",
		DocumentNumber: "X1234567",
		ProviderRef:    "provider-ref-1",
		VerifiedAt:     time.Now().UnixMilli(),
	}
}

func Test_Escrow_PutGet_RoundTrips(t *testing.T) {
	svc, _ := newTestService(t)
	regulatorKey := newRegulatorKey(t)
	ctx := context.Background()

	pii := samplePII()
	require.NoError(t, svc.Put(ctx, "escrow-1", pii, regulatorKey, "default", "cred-1", domain.JurisdictionUS, "system"))

	got, err := svc.Get(ctx, "escrow-1", regulatorKey, "system")
	require.NoError(t, err)
	assert.Equal(t, pii, got)
}

func Test_Escrow_Get_WrongRegulatorKeyFails(t *testing.T) {
	svc, _ := newTestService(t)
	regulatorKey := newRegulatorKey(t)
	wrongKey := newRegulatorKey(t)
	ctx := context.Background()

	require.NoError(t, svc.Put(ctx, "escrow-1", samplePII(), regulatorKey, "default", "cred-1", domain.JurisdictionUS, "system"))

	_, err := svc.Get(ctx, "escrow-1", wrongKey, "system")
	require.Error(t, err)
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.KindAuth, appErr.Kind)
}

func Test_Escrow_Get_NotFound(t *testing.T) {
	svc, _ := newTestService(t)
	regulatorKey := newRegulatorKey(t)

	_, err := svc.Get(context.Background(), "missing", regulatorKey, "system")
	require.Error(t, err)
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.KindNotFound, appErr.Kind)
}

// Test_Escrow_Rotate_DefersThenForces covers spec.md §8 scenario 5: a
// rotate immediately after put defers (retention still active), while
// forceErasure completes it and a subsequent Get reports invalidated.
func Test_Escrow_Rotate_DefersThenForces(t *testing.T) {
	svc, _ := newTestService(t)
	regulatorKey := newRegulatorKey(t)
	ctx := context.Background()

	require.NoError(t, svc.Put(ctx, "escrow-1", samplePII(), regulatorKey, "default", "cred-1", domain.JurisdictionUS, "system"))

	deferred, err := svc.Rotate(ctx, "escrow-1", "system", false)
	require.NoError(t, err)
	assert.False(t, deferred.Success)
	assert.Contains(t, deferred.Reason, "retention until")

	forced, err := svc.Rotate(ctx, "escrow-1", "system", true)
	require.NoError(t, err)
	assert.True(t, forced.Success)
	assert.Equal(t, "completed", forced.Reason)

	_, err = svc.Get(ctx, "escrow-1", regulatorKey, "system")
	require.Error(t, err)
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.KindGone, appErr.Kind)
}

// Test_Escrow_Get_ExpiredIsDistinctFromInvalidated covers spec.md
// §4.7's "invalidated ≠ expired ≠ not found" at the apperr.Kind level.
func Test_Escrow_Get_ExpiredIsDistinctFromInvalidated(t *testing.T) {
	svc, _ := newTestService(t)
	regulatorKey := newRegulatorKey(t)
	ctx := context.Background()

	require.NoError(t, svc.Put(ctx, "escrow-1", samplePII(), regulatorKey, "default", "cred-1", domain.JurisdictionUS, "system"))

	entry, err := svc.readEntry(ctx, "escrow-1")
	require.NoError(t, err)
	entry.ExpiresAt = time.Now().Add(-time.Hour).UnixMilli()
	require.NoError(t, svc.writeEntry(ctx, "escrow-1", entry))

	_, err = svc.Get(ctx, "escrow-1", regulatorKey, "system")
	require.Error(t, err)
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.KindExpired, appErr.Kind)
	assert.NotEqual(t, apperr.KindGone, appErr.Kind)
	assert.NotEqual(t, apperr.KindNotFound, appErr.Kind)
}

func Test_Escrow_PurgeExpired_SweepsOnlyPastRetention(t *testing.T) {
	svc, _ := newTestService(t)
	regulatorKey := newRegulatorKey(t)
	ctx := context.Background()

	require.NoError(t, svc.Put(ctx, "escrow-active", samplePII(), regulatorKey, "default", "cred-1", domain.JurisdictionUS, "system"))

	n, err := svc.PurgeExpired(ctx, "system")
	require.NoError(t, err)
	assert.Equal(t, 0, n) // freshly-created entry is nowhere near its 5y retention

	_, err = svc.Get(ctx, "escrow-active", regulatorKey, "system")
	require.NoError(t, err)
}
