package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/thesecretlab-dev/zeroid/internal/domain"
)

// AuditStore is the append-only event store backing internal/audit.
// Entries are totally ordered by append (spec.md §5): Append returns
// the sequence position assigned to this entry.
type AuditStore interface {
	Append(ctx context.Context, entry domain.AuditLogEntry) (sequence int64, err error)
	List(ctx context.Context) ([]domain.AuditLogEntry, error)
}

// PgAuditStore appends to a bigserial-keyed table, so concurrent
// appends are serialized by Postgres itself.
type PgAuditStore struct {
	pool *pgxpool.Pool
}

func NewPgAuditStore(pool *pgxpool.Pool) *PgAuditStore {
	return &PgAuditStore{pool: pool}
}

func (s *PgAuditStore) Append(ctx context.Context, entry domain.AuditLogEntry) (int64, error) {
	meta, err := json.Marshal(entry.Metadata)
	if err != nil {
		return 0, fmt.Errorf("store: marshal audit metadata: %w", err)
	}
	const q = `
		INSERT INTO audit_log (action, resource_id, actor, ts, metadata)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING sequence`
	var seq int64
	err = s.pool.QueryRow(ctx, q, entry.Action, entry.ResourceID, entry.Actor, entry.Timestamp, meta).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("store: append audit: %w", err)
	}
	return seq, nil
}

func (s *PgAuditStore) List(ctx context.Context) ([]domain.AuditLogEntry, error) {
	const q = `SELECT sequence, action, resource_id, actor, ts, metadata FROM audit_log ORDER BY sequence`
	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("store: list audit: %w", err)
	}
	defer rows.Close()

	var out []domain.AuditLogEntry
	for rows.Next() {
		var e domain.AuditLogEntry
		var meta []byte
		if err := rows.Scan(&e.Sequence, &e.Action, &e.ResourceID, &e.Actor, &e.Timestamp, &meta); err != nil {
			return nil, fmt.Errorf("store: scan audit: %w", err)
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &e.Metadata); err != nil {
				return nil, fmt.Errorf("store: unmarshal audit metadata: %w", err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// MemoryAuditStore is an in-process append-only log for unit tests.
type MemoryAuditStore struct {
	mu      sync.Mutex
	entries []domain.AuditLogEntry
	seq     int64
}

func NewMemoryAuditStore() *MemoryAuditStore {
	return &MemoryAuditStore{}
}

func (m *MemoryAuditStore) Append(_ context.Context, entry domain.AuditLogEntry) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry.Sequence = atomic.AddInt64(&m.seq, 1)
	m.entries = append(m.entries, entry)
	return entry.Sequence, nil
}

func (m *MemoryAuditStore) List(_ context.Context) ([]domain.AuditLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.AuditLogEntry, len(m.entries))
	copy(out, m.entries)
	return out, nil
}
