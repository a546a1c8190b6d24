package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v4/pgxpool"
)

// CredentialDoc is the document-store record for an issued credential:
// a small set of explicitly queryable index fields plus an opaque
// encrypted payload holding the sensitive fields (hash, signature,
// pubkey, userSecret), per spec.md §4.5 step 6.
type CredentialDoc struct {
	ID                  string
	BoundAddress        *string
	SmartAccountAddress *string
	Level               int
	EncryptedPayload    []byte
}

// Credentials is the encrypted document store for issued credentials.
type Credentials interface {
	Put(ctx context.Context, doc CredentialDoc) error
	Get(ctx context.Context, id string) (*CredentialDoc, error)
}

// PgCredentials is a Postgres-backed credential document store.
type PgCredentials struct {
	pool *pgxpool.Pool
}

func NewPgCredentials(pool *pgxpool.Pool) *PgCredentials {
	return &PgCredentials{pool: pool}
}

func (c *PgCredentials) Put(ctx context.Context, doc CredentialDoc) error {
	const q = `
		INSERT INTO credentials (id, bound_address, smart_account_address, level, payload)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			bound_address = EXCLUDED.bound_address,
			smart_account_address = EXCLUDED.smart_account_address,
			level = EXCLUDED.level,
			payload = EXCLUDED.payload`
	_, err := c.pool.Exec(ctx, q, doc.ID, doc.BoundAddress, doc.SmartAccountAddress, doc.Level, doc.EncryptedPayload)
	if err != nil {
		return fmt.Errorf("store: put credential %s: %w", doc.ID, err)
	}
	return nil
}

func (c *PgCredentials) Get(ctx context.Context, id string) (*CredentialDoc, error) {
	const q = `SELECT id, bound_address, smart_account_address, level, payload FROM credentials WHERE id = $1`
	var doc CredentialDoc
	err := c.pool.QueryRow(ctx, q, id).Scan(&doc.ID, &doc.BoundAddress, &doc.SmartAccountAddress, &doc.Level, &doc.EncryptedPayload)
	if err != nil {
		if isNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: get credential %s: %w", id, err)
	}
	return &doc, nil
}

// MemoryCredentials is an in-process credential document store for tests.
type MemoryCredentials struct {
	mu   sync.RWMutex
	docs map[string]CredentialDoc
}

func NewMemoryCredentials() *MemoryCredentials {
	return &MemoryCredentials{docs: make(map[string]CredentialDoc)}
}

func (m *MemoryCredentials) Put(_ context.Context, doc CredentialDoc) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[doc.ID] = doc
	return nil
}

func (m *MemoryCredentials) Get(_ context.Context, id string) (*CredentialDoc, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &doc, nil
}
