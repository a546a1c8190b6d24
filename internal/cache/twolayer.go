package cache

import (
	"context"
	"errors"
	"time"

	"github.com/thesecretlab-dev/zeroid/internal/log"
)

// TwoLayer implements the L1-over-L2 lookup/promotion contract from
// spec.md §4.6 steps 3-4 and §8 ("after set(f,v,n), the next get(f)
// within TTL returns {v,n,cached:true}").
type TwoLayer struct {
	L1 *L1
	L2 *L2
}

func NewTwoLayer(l1 *L1, l2 *L2) *TwoLayer {
	return &TwoLayer{L1: l1, L2: l2}
}

// Get checks L1, then L2 (promoting to L1 on an L2 hit). The returned
// bool is true on any hit, cached across both layers.
func (t *TwoLayer) Get(ctx context.Context, fingerprint string) (Entry, bool) {
	if e, ok := t.L1.Get(fingerprint); ok {
		return e, true
	}

	e, err := t.L2.Get(ctx, fingerprint)
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			log.Warn(ctx, "l2 cache read failed", "err", err, "fingerprint", fingerprint)
		}
		return Entry{}, false
	}

	t.L1.Set(fingerprint, e)
	return e, true
}

// Set writes to both layers (spec.md §4.6 step 7: "set_cached... into
// both layers").
func (t *TwoLayer) Set(ctx context.Context, fingerprint string, valid bool, nullifier string) error {
	entry := Entry{Valid: valid, Nullifier: nullifier, VerifiedAt: time.Now()}
	t.L1.Set(fingerprint, entry)
	if err := t.L2.Set(ctx, fingerprint, entry); err != nil {
		return err
	}
	return nil
}
