package audit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thesecretlab-dev/zeroid/internal/domain"
	"github.com/thesecretlab-dev/zeroid/internal/store"
)

func Test_Logger_EscrowCreate_CarriesNoPII(t *testing.T) {
	backing := store.NewMemoryAuditStore()
	logger := NewLogger(backing)

	require.NoError(t, logger.EscrowCreate(context.Background(), "escrow-1", "system", "default", "US", "cred-1"))

	entries, err := backing.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)

	e := entries[0]
	assert.Equal(t, domain.AuditEscrowCreate, e.Action)
	assert.Equal(t, "escrow-1", e.ResourceID)
	assert.Equal(t, map[string]string{
		"regulatorKeyId": "default",
		"jurisdiction":   "US",
		"credentialId":   "cred-1",
	}, e.Metadata)
}

func Test_Logger_SequencesAcrossCalls(t *testing.T) {
	backing := store.NewMemoryAuditStore()
	logger := NewLogger(backing)
	ctx := context.Background()

	require.NoError(t, logger.CredentialIssue(ctx, "cred-1", "system", 3))
	require.NoError(t, logger.ProofVerify(ctx, "fp-1", "system", true, false))

	entries, err := backing.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Less(t, entries[0].Sequence, entries[1].Sequence)
}
