// Package verification implements the `POST /api/v1/verify` /
// `GET /api/v1/verify/:id` surface: it starts and tracks the
// server-side VerificationRecord state machine from spec.md §4.7,
// independent of whether the underlying work (KYC, proof generation)
// is driven synchronously or asynchronously.
package verification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/thesecretlab-dev/zeroid/internal/apperr"
	"github.com/thesecretlab-dev/zeroid/internal/domain"
)

// Store tracks VerificationRecords by id. The in-process map
// implementation is sufficient here: unlike escrow/credentials/
// nullifiers, a verification record is a status cache, not a system
// of record the spec requires survive a restart.
type Store struct {
	mu      sync.RWMutex
	records map[string]domain.VerificationRecord
}

// NewStore builds an empty verification record store.
func NewStore() *Store {
	return &Store{records: make(map[string]domain.VerificationRecord)}
}

// Start creates a new record in VerificationPending, per spec.md §4.7's
// initial state.
func (s *Store) Start(userID string, requirements []domain.Requirement) domain.VerificationRecord {
	now := time.Now().UnixMilli()
	record := domain.VerificationRecord{
		ID:           uuid.NewString(),
		UserID:       userID,
		Requirements: requirements,
		Status:       domain.VerificationPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.mu.Lock()
	s.records[record.ID] = record
	s.mu.Unlock()
	return record
}

// Get returns the record for id.
func (s *Store) Get(id string) (domain.VerificationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[id]
	if !ok {
		return domain.VerificationRecord{}, apperr.New(apperr.KindNotFound, "verification record not found")
	}
	return record, nil
}

// Transition moves id to status, rejecting a transition out of a
// terminal state (spec.md §4.7: "Terminal states are verified and failed").
func (s *Store) Transition(ctx context.Context, id string, status domain.VerificationStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[id]
	if !ok {
		return apperr.New(apperr.KindNotFound, "verification record not found")
	}
	if record.Status.Terminal() {
		return fmt.Errorf("verification: record %s is already terminal (%s)", id, record.Status)
	}
	record.Status = status
	record.UpdatedAt = time.Now().UnixMilli()
	s.records[id] = record
	return nil
}

// Fail transitions id to VerificationFailed, recording reason.
func (s *Store) Fail(ctx context.Context, id, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[id]
	if !ok {
		return apperr.New(apperr.KindNotFound, "verification record not found")
	}
	record.Status = domain.VerificationFailed
	record.FailReason = reason
	record.UpdatedAt = time.Now().UnixMilli()
	s.records[id] = record
	return nil
}

// ValidateRequirements checks the length/type constraints spec.md §6 names.
func ValidateRequirements(reqs []domain.Requirement) error {
	if len(reqs) < 1 || len(reqs) > 10 {
		return apperr.Validation("requirements", "must contain 1..10 entries")
	}
	for i, r := range reqs {
		if !domain.ValidRequirementType(r.Type) {
			return apperr.Validation(fmt.Sprintf("requirements[%d].type", i), "must be one of age_gte, country_not, sanctions_clear, sybil_unique")
		}
	}
	return nil
}
