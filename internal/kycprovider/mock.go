package kycprovider

import (
	"context"

	"github.com/google/uuid"

	"github.com/thesecretlab-dev/zeroid/internal/domain"
)

// rejectedFullName is the fixture scenario from spec.md §8 ("KYC
// reject"): a submission with this exact full name is always rejected
// with low confidence, the way a deterministic demo/fixture verifier
// encodes its one failure path.
const rejectedFullName = "REJECT ME"

// passConfidence and rejectConfidence are the fixed scores the mock
// reports; spec.md §8 pins the reject case to "confidence≈0.15".
const (
	passConfidence   = 0.97
	rejectConfidence = 0.15
)

// MockProvider is a deterministic, rule-based Provider for local
// development and tests: every submission passes except the literal
// fixture name above. No network calls, no external state.
type MockProvider struct{}

// NewMockProvider builds the deterministic provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

func (m *MockProvider) Verify(ctx context.Context, submission domain.KycSubmission) (domain.KycResult, error) {
	passed := submission.FullName != rejectedFullName
	confidence := passConfidence
	if !passed {
		confidence = rejectConfidence
	}

	return domain.KycResult{
		KycSubmission: submission,
		Passed:        passed,
		Confidence:    confidence,
		ProviderRef:   "mock:" + uuid.NewString(),
		VerifiedAt:    nowMillis(),
	}, nil
}
