// Package cache implements the two-layer verification cache from
// spec.md §4.6: an in-process LRU (L1) over a persistent encrypted
// key-value store (L2), keyed by a fingerprint of (proof, public
// signals).
package cache

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// L1Capacity is the maximum number of L1 entries (spec.md §4.6).
const L1Capacity = 10_000

// L1TTL is the per-entry TTL (spec.md §4.6).
const L1TTL = 3600 * time.Second

// Entry is a cached verification result (spec.md §3 ProofCacheEntry,
// minus the fields that don't need to round-trip through the cache).
type Entry struct {
	Valid      bool
	Nullifier  string
	VerifiedAt time.Time
}

type l1Entry struct {
	Entry
	expiresAt time.Time
}

// L1 is the in-process LRU layer. hashicorp/golang-lru/v2 provides the
// eviction discipline (drop least-recently-used on capacity overflow,
// reinsert-to-tail on hit); this type adds the TTL-on-read/TTL-on-insert
// semantics spec.md §4.6 additionally requires.
type L1 struct {
	mu sync.Mutex // single-writer discipline (spec.md §5)
	c  *lru.Cache[string, l1Entry]
}

// NewL1 builds an empty L1 cache at the spec-mandated capacity.
func NewL1() *L1 {
	c, err := lru.New[string, l1Entry](L1Capacity)
	if err != nil {
		// Only returns an error for a non-positive size, which L1Capacity
		// never is; a panic here would indicate a code change, not a
		// runtime condition callers need to handle.
		panic(err)
	}
	return &L1{c: c}
}

// Get returns the cached entry if present and not expired. An expired
// entry is evicted on read, per "TTL is checked on read and on insert".
func (l *L1) Get(fingerprint string) (Entry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.c.Get(fingerprint)
	if !ok {
		return Entry{}, false
	}
	if time.Now().After(e.expiresAt) {
		l.c.Remove(fingerprint)
		return Entry{}, false
	}
	return e.Entry, true
}

// Set inserts or refreshes an entry, stamping it to expire L1TTL after
// the time of the call.
func (l *L1) Set(fingerprint string, entry Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.c.Add(fingerprint, l1Entry{Entry: entry, expiresAt: time.Now().Add(L1TTL)})
}

// Len reports the current number of (possibly expired) entries.
func (l *L1) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.c.Len()
}
