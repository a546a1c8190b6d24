package kycprovider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thesecretlab-dev/zeroid/internal/domain"
)

func Test_MockProvider_HappyPath(t *testing.T) {
	provider := NewMockProvider()
	result, err := provider.Verify(context.Background(), domain.KycSubmission{
		FullName:       "Alice Ng",
		DateOfBirth:    "1990-01-15",
		CountryCode:    840,
		DocumentType:   domain.DocumentPassport,
		DocumentNumber: "X123",
	})

	require.NoError(t, err)
	assert.True(t, result.Passed)
	assert.Greater(t, result.Confidence, 0.9)
	assert.NotEmpty(t, result.ProviderRef)
}

func Test_MockProvider_RejectsFixtureName(t *testing.T) {
	provider := NewMockProvider()
	result, err := provider.Verify(context.Background(), domain.KycSubmission{
		FullName:       "REJECT ME",
		DateOfBirth:    "1990-01-15",
		CountryCode:    840,
		DocumentType:   domain.DocumentPassport,
		DocumentNumber: "X123",
	})

	require.NoError(t, err)
	assert.False(t, result.Passed)
	assert.InDelta(t, 0.15, result.Confidence, 0.01)
}
