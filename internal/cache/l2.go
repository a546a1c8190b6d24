package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/thesecretlab-dev/zeroid/internal/store"
	"github.com/thesecretlab-dev/zeroid/internal/zkcrypto/aesgcm"
)

// ErrMiss is returned by L2.Get on a cache miss.
var ErrMiss = errors.New("cache: l2 miss")

// L2 is the persistent encrypted cache layer. It is a thin envelope
// around an opaque store.KV (see internal/store) using a Redis-backed
// implementation for production and an in-memory one for tests.
type L2 struct {
	kv  store.KV
	key []byte // L2 store key, HKDF-derived (spec.md §4.2)
}

// NewL2 wraps kv with AES-GCM encryption under key.
func NewL2(kv store.KV, key []byte) *L2 {
	return &L2{kv: kv, key: key}
}

type l2Payload struct {
	Valid      bool      `json:"valid"`
	Nullifier  string    `json:"nullifier"`
	VerifiedAt time.Time `json:"verifiedAt"`
}

func (l *L2) Get(ctx context.Context, fingerprint string) (Entry, error) {
	raw, err := l.kv.Get(ctx, fingerprint)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Entry{}, ErrMiss
		}
		return Entry{}, fmt.Errorf("cache: l2 get: %w", err)
	}

	env, err := store.UnmarshalEnvelope(raw)
	if err != nil {
		return Entry{}, fmt.Errorf("cache: l2 decode envelope: %w", err)
	}
	plaintext, err := aesgcm.Decrypt(l.key, env)
	if err != nil {
		return Entry{}, fmt.Errorf("cache: l2 decrypt: %w", err)
	}

	var p l2Payload
	if err := json.Unmarshal(plaintext, &p); err != nil {
		return Entry{}, fmt.Errorf("cache: l2 decode payload: %w", err)
	}
	return Entry{Valid: p.Valid, Nullifier: p.Nullifier, VerifiedAt: p.VerifiedAt}, nil
}

func (l *L2) Set(ctx context.Context, fingerprint string, entry Entry) error {
	plaintext, err := json.Marshal(l2Payload{Valid: entry.Valid, Nullifier: entry.Nullifier, VerifiedAt: entry.VerifiedAt})
	if err != nil {
		return fmt.Errorf("cache: l2 encode payload: %w", err)
	}
	env, err := aesgcm.Encrypt(l.key, plaintext)
	if err != nil {
		return fmt.Errorf("cache: l2 encrypt: %w", err)
	}
	if err := l.kv.Put(ctx, fingerprint, store.MarshalEnvelope(env)); err != nil {
		return fmt.Errorf("cache: l2 put: %w", err)
	}
	return nil
}

// RedisKV adapts a go-redis client to the store.KV interface, backing
// the L2 cache transport in production (spec.md §4.6 "persistent
// encrypted key-value store").
type RedisKV struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisKV builds a KV store over addr, namespacing keys with prefix
// so multiple logical stores can share one Redis instance.
func NewRedisKV(addr, prefix string) *RedisKV {
	return &RedisKV{rdb: redis.NewClient(&redis.Options{Addr: addr}), prefix: prefix}
}

// NewRedisKVWithClient wraps an already-constructed client.
func NewRedisKVWithClient(rdb *redis.Client, prefix string) *RedisKV {
	return &RedisKV{rdb: rdb, prefix: prefix}
}

func (r *RedisKV) fullKey(key string) string { return r.prefix + ":" + key }

func (r *RedisKV) Put(ctx context.Context, key string, value []byte) error {
	if err := r.rdb.Set(ctx, r.fullKey(key), value, 0).Err(); err != nil {
		return fmt.Errorf("cache: redis put: %w", err)
	}
	return nil
}

func (r *RedisKV) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := r.rdb.Get(ctx, r.fullKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("cache: redis get: %w", err)
	}
	return v, nil
}

func (r *RedisKV) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.rdb.Exists(ctx, r.fullKey(key)).Result()
	if err != nil {
		return false, fmt.Errorf("cache: redis exists: %w", err)
	}
	return n > 0, nil
}

func (r *RedisKV) Delete(ctx context.Context, key string) error {
	if err := r.rdb.Del(ctx, r.fullKey(key)).Err(); err != nil {
		return fmt.Errorf("cache: redis delete: %w", err)
	}
	return nil
}

func (r *RedisKV) Range(ctx context.Context, fn func(key string, value []byte) bool) error {
	iter := r.rdb.Scan(ctx, 0, r.prefix+":*", 0).Iterator()
	for iter.Next(ctx) {
		v, err := r.rdb.Get(ctx, iter.Val()).Bytes()
		if err != nil {
			continue
		}
		if !fn(iter.Val(), v) {
			break
		}
	}
	return iter.Err()
}
