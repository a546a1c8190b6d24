// Package store implements the opaque, store-key-encrypted persistent
// stores from spec.md §2 ("Encrypted KV / Doc / Event stores") and
// §9 ("dynamic JSON records become tagged variants... Cyclic graphs
// are absent; all stores are flat"), backed by Postgres via pgx.
//
// Every store here is intentionally opaque: callers hand it bytes (or,
// for the credential doc store, a small set of explicitly queryable
// index columns plus an opaque encrypted payload) and get bytes back.
// Encryption-at-rest with the per-store HKDF-derived key happens one
// layer up, in the escrow/cache/issuer packages that own the
// plaintext's shape — this package never sees PII.
package store

import "errors"

// ErrNotFound is returned by Get/Exists-style lookups on a missing key.
var ErrNotFound = errors.New("store: not found")

// ErrAlreadyExists signals an insert that would overwrite an existing
// entry. No store in this package returns it: nullifier registration
// reports a duplicate as a false result instead.
var ErrAlreadyExists = errors.New("store: already exists")
