// Package kycprovider implements "KYC provider orchestration", step 3
// of spec.md §4.5: turning a raw KycSubmission into a pass/fail verdict
// with a confidence score, either from a deterministic local rule set
// or a real external vendor.
package kycprovider

import (
	"context"

	"github.com/thesecretlab-dev/zeroid/internal/domain"
)

// Provider verifies a KYC submission and returns a verdict. Real
// implementations call out to a vendor; the mock implementation in
// this package is deterministic and used for local development and
// the scenarios in spec.md §8.
type Provider interface {
	Verify(ctx context.Context, submission domain.KycSubmission) (domain.KycResult, error)
}
