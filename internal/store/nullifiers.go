package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/thesecretlab-dev/zeroid/internal/domain"
)

// Nullifiers enforces the single-use nullifier invariant from
// spec.md §3/§5: Register is an atomic test-and-set — exactly one
// caller racing on the same nullifier observes `inserted == true`.
type Nullifiers interface {
	// Register attempts to consume nullifier. inserted is false if it
	// was already registered (a replay); this must never return an
	// error for the replay case, only for genuine infrastructure faults.
	Register(ctx context.Context, entry domain.NullifierEntry) (inserted bool, err error)
	IsConsumed(ctx context.Context, nullifier string) (bool, error)
}

// PgNullifiers is a Postgres-backed nullifier registry using a unique
// constraint on the nullifier column as the compare-and-set primitive.
type PgNullifiers struct {
	pool *pgxpool.Pool
}

func NewPgNullifiers(pool *pgxpool.Pool) *PgNullifiers {
	return &PgNullifiers{pool: pool}
}

func (n *PgNullifiers) Register(ctx context.Context, entry domain.NullifierEntry) (bool, error) {
	const q = `
		INSERT INTO nullifiers (nullifier, credential_id, app_id, used_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (nullifier) DO NOTHING`
	tag, err := n.pool.Exec(ctx, q,
		entry.Nullifier.String(), entry.CredentialID, entry.AppID.String(), entry.UsedAt)
	if err != nil {
		return false, fmt.Errorf("store: register nullifier: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (n *PgNullifiers) IsConsumed(ctx context.Context, nullifier string) (bool, error) {
	const q = `SELECT 1 FROM nullifiers WHERE nullifier = $1`
	var one int
	err := n.pool.QueryRow(ctx, q, nullifier).Scan(&one)
	if err != nil {
		if isNoRows(err) {
			return false, nil
		}
		return false, fmt.Errorf("store: check nullifier: %w", err)
	}
	return true, nil
}

// MemoryNullifiers is an in-process registry for unit tests, guarded by
// a single mutex so the test-and-set is genuinely atomic even under
// concurrent submission (see spec.md §5 "local single-writer guard").
type MemoryNullifiers struct {
	mu   sync.Mutex
	seen map[string]domain.NullifierEntry
}

func NewMemoryNullifiers() *MemoryNullifiers {
	return &MemoryNullifiers{seen: make(map[string]domain.NullifierEntry)}
}

func (m *MemoryNullifiers) Register(_ context.Context, entry domain.NullifierEntry) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := entry.Nullifier.String()
	if _, ok := m.seen[key]; ok {
		return false, nil
	}
	m.seen[key] = entry
	return true, nil
}

func (m *MemoryNullifiers) IsConsumed(_ context.Context, nullifier string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.seen[nullifier]
	return ok, nil
}
