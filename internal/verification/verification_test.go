package verification

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thesecretlab-dev/zeroid/internal/domain"
)

func Test_Store_StartAndGet(t *testing.T) {
	store := NewStore()
	record := store.Start("user-1", []domain.Requirement{{Type: domain.RequirementAgeGTE, Value: "18"}})
	assert.Equal(t, domain.VerificationPending, record.Status)

	got, err := store.Get(record.ID)
	require.NoError(t, err)
	assert.Equal(t, record.ID, got.ID)
}

func Test_Store_Transition_RejectsAfterTerminal(t *testing.T) {
	store := NewStore()
	record := store.Start("user-1", nil)
	ctx := context.Background()

	require.NoError(t, store.Fail(ctx, record.ID, "kyc rejected"))
	err := store.Transition(ctx, record.ID, domain.VerificationKycProcessing)
	assert.Error(t, err)
}

func Test_ValidateRequirements(t *testing.T) {
	assert.Error(t, ValidateRequirements(nil))
	assert.Error(t, ValidateRequirements([]domain.Requirement{{Type: "bogus"}}))
	assert.NoError(t, ValidateRequirements([]domain.Requirement{{Type: domain.RequirementSanctionsClear}}))
}
