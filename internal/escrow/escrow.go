// Package escrow implements the double-encrypted PII escrow lifecycle
// from spec.md §4.4: put/get/rotate/purge over a store-level-encrypted
// KV, with jurisdiction-bound retention and deferred crypto-shredding.
package escrow

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/thesecretlab-dev/zeroid/internal/apperr"
	"github.com/thesecretlab-dev/zeroid/internal/audit"
	"github.com/thesecretlab-dev/zeroid/internal/domain"
	"github.com/thesecretlab-dev/zeroid/internal/store"
	"github.com/thesecretlab-dev/zeroid/internal/zkcrypto/aesgcm"
)

// RawPII is the plaintext KYC data escrowed per credential (spec.md
// §4.5 step 5: fullName, dateOfBirth, countryCode, documentType,
// documentNumber, providerRef, verifiedAt).
type RawPII struct {
	FullName       string `json:"fullName"`
	DateOfBirth    string `json:"dateOfBirth"`
	CountryCode    int    `json:"countryCode"`
	DocumentType   string `json:"documentType"`
	DocumentNumber string `json:"documentNumber"`
	ProviderRef    string `json:"providerRef"`
	VerifiedAt     int64  `json:"verifiedAt"`
}

// RotateResult is the outcome of a rotate_escrow call (spec.md §4.4).
type RotateResult struct {
	Success bool
	Reason  string
}

// Service implements put_escrow/get_escrow/rotate_escrow/purge_expired
// over a KV store whose values are already store-key-encrypted
// envelopes (the "double encryption" of spec.md §3/§4.4: regulator key
// first, then the store-level envelope).
type Service struct {
	kv       store.KV
	storeKey []byte // HKDF(masterKey, "zeroid-store-escrow")
	audit    *audit.Logger
}

// NewService builds an escrow service over kv, encrypting entries at
// rest under storeKey.
func NewService(kv store.KV, storeKey []byte, auditLogger *audit.Logger) *Service {
	return &Service{kv: kv, storeKey: storeKey, audit: auditLogger}
}

// storedEntry is the JSON shape written to the KV store: EscrowEntry's
// fields plus the regulator-encrypted blob, all serialized together
// before the store-level envelope wraps them (spec.md §4.4 step 4).
type storedEntry struct {
	RegulatorKeyID string          `json:"regulatorKeyId"`
	CredentialID   string          `json:"credentialId"`
	CreatedAt      int64           `json:"createdAt"`
	ExpiresAt      int64           `json:"expiresAt"`
	Invalidated    bool            `json:"invalidated"`
	IntegrityHash  string          `json:"integrityHash"`
	Blob           aesgcm.Envelope `json:"blob"`
}

// Put implements put_escrow (spec.md §4.4).
func (s *Service) Put(ctx context.Context, escrowID string, pii RawPII, regulatorKey []byte, regulatorKeyID, credentialID string, jurisdiction domain.Jurisdiction, actor string) error {
	plaintext, err := json.Marshal(pii)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "escrow: serialize PII", err)
	}
	integrityHash := sha256Hex(plaintext)

	blob1, err := aesgcm.Encrypt(regulatorKey, plaintext)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "escrow: regulator-encrypt", err)
	}

	now := time.Now()
	entry := storedEntry{
		RegulatorKeyID: regulatorKeyID,
		CredentialID:   credentialID,
		CreatedAt:      now.UnixMilli(),
		ExpiresAt:      now.Add(domain.RetentionPeriod(jurisdiction)).UnixMilli(),
		Invalidated:    false,
		IntegrityHash:  integrityHash,
		Blob:           *blob1,
	}

	if err := s.writeEntry(ctx, escrowID, entry); err != nil {
		return err
	}

	if s.audit != nil {
		if err := s.audit.EscrowCreate(ctx, escrowID, actor, regulatorKeyID, string(jurisdiction), credentialID); err != nil {
			return apperr.Wrap(apperr.KindInternal, "escrow: append audit entry", err)
		}
	}
	return nil
}

// Get implements get_escrow (spec.md §4.4).
func (s *Service) Get(ctx context.Context, escrowID string, regulatorKey []byte, actor string) (RawPII, error) {
	entry, err := s.readEntry(ctx, escrowID)
	if err != nil {
		return RawPII{}, err
	}

	state := s.entryState(entry)
	switch state {
	case domain.EscrowInvalidated:
		return RawPII{}, apperr.New(apperr.KindGone, "escrow entry invalidated")
	case domain.EscrowExpired:
		return RawPII{}, apperr.New(apperr.KindExpired, "escrow entry expired")
	}

	if s.audit != nil {
		if err := s.audit.EscrowAccess(ctx, escrowID, actor); err != nil {
			return RawPII{}, apperr.Wrap(apperr.KindInternal, "escrow: append audit entry", err)
		}
	}

	plaintext, err := aesgcm.Decrypt(regulatorKey, &entry.Blob)
	if err != nil {
		return RawPII{}, apperr.Wrap(apperr.KindAuth, "escrow: regulator key could not open this entry", err)
	}
	if sha256Hex(plaintext) != entry.IntegrityHash {
		return RawPII{}, apperr.New(apperr.KindIntegrity, "escrow: integrity hash mismatch")
	}

	var pii RawPII
	if err := json.Unmarshal(plaintext, &pii); err != nil {
		return RawPII{}, apperr.Wrap(apperr.KindInternal, "escrow: deserialize PII", err)
	}
	return pii, nil
}

// Rotate implements rotate_escrow (spec.md §4.4). Without forceErasure
// it defers if retention hasn't elapsed; with forceErasure (or after
// retention has elapsed) it crypto-shreds the blob by replacing it
// with ciphertext under a key that is immediately discarded.
func (s *Service) Rotate(ctx context.Context, escrowID, actor string, forceErasure bool) (RotateResult, error) {
	entry, err := s.readEntry(ctx, escrowID)
	if err != nil {
		return RotateResult{}, err
	}

	now := time.Now()
	retentionRemaining := entry.ExpiresAt > now.UnixMilli()

	if retentionRemaining && !forceErasure {
		deadline := time.UnixMilli(entry.ExpiresAt).UTC().Format(time.RFC3339)
		result := RotateResult{Success: false, Reason: fmt.Sprintf("retention until %s", deadline)}
		if s.audit != nil {
			if err := s.audit.EscrowRotate(ctx, escrowID, actor, false, result.Reason); err != nil {
				return RotateResult{}, apperr.Wrap(apperr.KindInternal, "escrow: append audit entry", err)
			}
		}
		return result, nil
	}

	shredded, err := cryptoShred()
	if err != nil {
		return RotateResult{}, apperr.Wrap(apperr.KindInternal, "escrow: crypto-shred", err)
	}
	entry.Blob = *shredded
	entry.Invalidated = true
	entry.IntegrityHash = "INVALIDATED"

	if err := s.writeEntry(ctx, escrowID, entry); err != nil {
		return RotateResult{}, err
	}

	result := RotateResult{Success: true, Reason: "completed"}
	if s.audit != nil {
		if err := s.audit.EscrowRotate(ctx, escrowID, actor, true, result.Reason); err != nil {
			return RotateResult{}, apperr.Wrap(apperr.KindInternal, "escrow: append audit entry", err)
		}
	}
	return result, nil
}

// PurgeExpired implements purge_expired (spec.md §4.4): every entry
// past its expiry and not yet invalidated is force-rotated.
func (s *Service) PurgeExpired(ctx context.Context, actor string) (int, error) {
	var expiredIDs []string
	err := s.kv.Range(ctx, func(key string, value []byte) bool {
		entry, err := s.decodeEntry(value)
		if err != nil {
			return true // skip malformed entries rather than abort the sweep
		}
		if !entry.Invalidated && entry.ExpiresAt <= time.Now().UnixMilli() {
			expiredIDs = append(expiredIDs, key)
		}
		return true
	})
	if err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, "escrow: range kv", err)
	}

	purged := 0
	for _, escrowID := range expiredIDs {
		result, err := s.Rotate(ctx, escrowID, actor, true)
		if err != nil {
			return purged, err
		}
		if result.Success {
			purged++
			if s.audit != nil {
				if err := s.audit.EscrowPurge(ctx, escrowID, actor); err != nil {
					return purged, apperr.Wrap(apperr.KindInternal, "escrow: append audit entry", err)
				}
			}
		}
	}
	return purged, nil
}

func (s *Service) entryState(entry storedEntry) domain.EscrowState {
	e := domain.EscrowEntry{
		Invalidated: entry.Invalidated,
		ExpiresAt:   entry.ExpiresAt,
	}
	return e.State(time.Now())
}

func (s *Service) writeEntry(ctx context.Context, escrowID string, entry storedEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "escrow: serialize entry", err)
	}
	env, err := aesgcm.Encrypt(s.storeKey, raw)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "escrow: store-encrypt entry", err)
	}
	if err := s.kv.Put(ctx, escrowID, store.MarshalEnvelope(env)); err != nil {
		return apperr.Wrap(apperr.KindInternal, "escrow: write kv", err)
	}
	return nil
}

func (s *Service) readEntry(ctx context.Context, escrowID string) (storedEntry, error) {
	raw, err := s.kv.Get(ctx, escrowID)
	if err != nil {
		if err == store.ErrNotFound {
			return storedEntry{}, apperr.New(apperr.KindNotFound, "escrow entry not found")
		}
		return storedEntry{}, apperr.Wrap(apperr.KindInternal, "escrow: read kv", err)
	}
	return s.decodeEntry(raw)
}

func (s *Service) decodeEntry(raw []byte) (storedEntry, error) {
	env, err := store.UnmarshalEnvelope(raw)
	if err != nil {
		return storedEntry{}, apperr.Wrap(apperr.KindInternal, "escrow: decode envelope", err)
	}
	plaintext, err := aesgcm.Decrypt(s.storeKey, env)
	if err != nil {
		return storedEntry{}, apperr.Wrap(apperr.KindInternal, "escrow: store-decrypt entry", err)
	}
	var entry storedEntry
	if err := json.Unmarshal(plaintext, &entry); err != nil {
		return storedEntry{}, apperr.Wrap(apperr.KindInternal, "escrow: deserialize entry", err)
	}
	return entry, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// cryptoShred encrypts 256 random bytes under a random, immediately
// discarded key: the ciphertext becomes unrecoverable the instant this
// function returns, implementing the GDPR crypto-shred from spec.md §4.4.
func cryptoShred() (*aesgcm.Envelope, error) {
	key := make([]byte, aesgcm.KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	junk := make([]byte, 256)
	if _, err := rand.Read(junk); err != nil {
		return nil, err
	}
	return aesgcm.Encrypt(key, junk)
}
