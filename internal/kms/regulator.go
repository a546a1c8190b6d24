package kms

import (
	"context"
	"fmt"
	"sync"
)

// RegulatorKeys lazily resolves and caches regulator AES keys by
// regulatorId, per spec.md §5 ("Regulator keys: lazily loaded, cached
// in a concurrent map keyed by regulatorId"). It never evicts: a
// regulator's key is expected to be stable for the process lifetime,
// and rotation goes through Forget + a fresh Get.
type RegulatorKeys struct {
	provider KeyProvider
	cache    sync.Map // regulatorId -> []byte
}

// NewRegulatorKeys builds a cache fronting provider.
func NewRegulatorKeys(provider KeyProvider) *RegulatorKeys {
	return &RegulatorKeys{provider: provider}
}

// Get returns the raw AES-256 key for regulatorID, loading it from the
// backing KeyProvider on first access.
func (r *RegulatorKeys) Get(ctx context.Context, regulatorID string) ([]byte, error) {
	if cached, ok := r.cache.Load(regulatorID); ok {
		return cached.([]byte), nil
	}

	key, err := r.provider.SymmetricKey(ctx, KeyID{Type: KeyTypeRegulatorAES, ID: regulatorID})
	if err != nil {
		return nil, fmt.Errorf("kms: regulator key %q: %w", regulatorID, err)
	}

	actual, _ := r.cache.LoadOrStore(regulatorID, key)
	return actual.([]byte), nil
}

// Forget evicts a cached regulator key, forcing the next Get to
// re-fetch it from the provider (used after key rotation).
func (r *RegulatorKeys) Forget(regulatorID string) {
	r.cache.Delete(regulatorID)
}
