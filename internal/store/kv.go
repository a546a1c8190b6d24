package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v4/pgxpool"
)

// KV is an opaque encrypted key-value store: one logical table per
// `name` (e.g. "escrow", "proofcache"), shared physical table. Values
// are whatever bytes the caller already encrypted.
type KV interface {
	Put(ctx context.Context, key string, value []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
	// Range calls fn for every key in the store, stopping early if fn
	// returns false. Used by escrow's purge_expired sweep.
	Range(ctx context.Context, fn func(key string, value []byte) bool) error
}

// PgKV is a Postgres-backed KV store scoped to one store name.
type PgKV struct {
	pool *pgxpool.Pool
	name string
}

// NewPgKV returns a KV store scoped to storeName, sharing the
// kv_entries table with other scopes.
func NewPgKV(pool *pgxpool.Pool, storeName string) *PgKV {
	return &PgKV{pool: pool, name: storeName}
}

func (s *PgKV) Put(ctx context.Context, key string, value []byte) error {
	const q = `
		INSERT INTO kv_entries (store_name, key, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (store_name, key) DO UPDATE SET value = EXCLUDED.value`
	if _, err := s.pool.Exec(ctx, q, s.name, key, value); err != nil {
		return fmt.Errorf("store: kv put %s/%s: %w", s.name, key, err)
	}
	return nil
}

func (s *PgKV) Get(ctx context.Context, key string) ([]byte, error) {
	const q = `SELECT value FROM kv_entries WHERE store_name = $1 AND key = $2`
	var value []byte
	err := s.pool.QueryRow(ctx, q, s.name, key).Scan(&value)
	if err != nil {
		if isNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: kv get %s/%s: %w", s.name, key, err)
	}
	return value, nil
}

func (s *PgKV) Exists(ctx context.Context, key string) (bool, error) {
	const q = `SELECT 1 FROM kv_entries WHERE store_name = $1 AND key = $2`
	var one int
	err := s.pool.QueryRow(ctx, q, s.name, key).Scan(&one)
	if err != nil {
		if isNoRows(err) {
			return false, nil
		}
		return false, fmt.Errorf("store: kv exists %s/%s: %w", s.name, key, err)
	}
	return true, nil
}

func (s *PgKV) Delete(ctx context.Context, key string) error {
	const q = `DELETE FROM kv_entries WHERE store_name = $1 AND key = $2`
	if _, err := s.pool.Exec(ctx, q, s.name, key); err != nil {
		return fmt.Errorf("store: kv delete %s/%s: %w", s.name, key, err)
	}
	return nil
}

func (s *PgKV) Range(ctx context.Context, fn func(key string, value []byte) bool) error {
	const q = `SELECT key, value FROM kv_entries WHERE store_name = $1`
	rows, err := s.pool.Query(ctx, q, s.name)
	if err != nil {
		return fmt.Errorf("store: kv range %s: %w", s.name, err)
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return fmt.Errorf("store: kv range scan %s: %w", s.name, err)
		}
		if !fn(key, value) {
			break
		}
	}
	return rows.Err()
}

// MemoryKV is an in-process KV store used by fast unit tests that
// don't need a live Postgres instance (see SPEC_FULL.md §8).
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryKV returns an empty in-memory KV store.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string][]byte)}
}

func (m *MemoryKV) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := append([]byte{}, value...)
	m.data[key] = cp
	return nil
}

func (m *MemoryKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte{}, v...), nil
}

func (m *MemoryKV) Exists(_ context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[key]
	return ok, nil
}

func (m *MemoryKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MemoryKV) Range(_ context.Context, fn func(key string, value []byte) bool) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for k, v := range m.data {
		if !fn(k, v) {
			break
		}
	}
	return nil
}
