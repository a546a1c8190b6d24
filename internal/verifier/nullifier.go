package verifier

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/thesecretlab-dev/zeroid/internal/audit"
	"github.com/thesecretlab-dev/zeroid/internal/domain"
	"github.com/thesecretlab-dev/zeroid/internal/store"
)

// NullifierRegistry enforces the per-(userSecret, appId) single-use
// invariant from spec.md §3/§5. It layers a local single-writer guard
// (a per-nullifier mutex) over the backing store's compare-and-set, so
// the atomic test-and-set holds even if the store itself is eventually
// consistent (spec.md §5 "Ordering guarantees").
type NullifierRegistry struct {
	store store.Nullifiers
	audit *audit.Logger

	mu       sync.Mutex
	inFlight map[string]*sync.Mutex
}

// NewNullifierRegistry wraps a store.Nullifiers with the single-writer
// guard and audit logging.
func NewNullifierRegistry(s store.Nullifiers, auditLogger *audit.Logger) *NullifierRegistry {
	return &NullifierRegistry{store: s, audit: auditLogger, inFlight: make(map[string]*sync.Mutex)}
}

// RegisterOrReplay attempts to consume a nullifier. On success it
// returns (true, nil); on replay it returns (false, nil) — never an
// error for the replay case, only for genuine infrastructure faults.
func (r *NullifierRegistry) RegisterOrReplay(ctx context.Context, signals Signals, credentialID string) (bool, error) {
	key := signals.Nullifier.String()
	guard := r.guardFor(key)
	guard.Lock()
	defer guard.Unlock()

	entry := domain.NullifierEntry{
		Nullifier:    signals.Nullifier,
		CredentialID: credentialID,
		AppID:        signals.AppID,
		UsedAt:       time.Now().UnixMilli(),
	}
	inserted, err := r.store.Register(ctx, entry)
	if err != nil {
		return false, fmt.Errorf("verifier: register nullifier: %w", err)
	}
	if !inserted {
		return false, nil
	}

	if r.audit != nil {
		if err := r.audit.NullifierRegister(ctx, key, "verifier", signals.AppID.String()); err != nil {
			return false, fmt.Errorf("verifier: append audit entry: %w", err)
		}
	}
	return true, nil
}

// guardFor returns the per-nullifier mutex, creating it on first use.
// Entries are never removed: the nullifier space is sized so this map
// stays bounded by actual distinct nullifiers ever submitted, the same
// tradeoff the backing store itself makes (append-only).
func (r *NullifierRegistry) guardFor(key string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.inFlight[key]
	if !ok {
		m = &sync.Mutex{}
		r.inFlight[key] = m
	}
	return m
}
