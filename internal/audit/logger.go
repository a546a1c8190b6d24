// Package audit wraps internal/store's AuditStore with the specific
// append calls spec.md §4.4/§4.5/§4.6 describe: one method per action
// type, each taking exactly the metadata fields the spec allows (never
// PII, per "Metadata is a flat string map; callers must never put PII
// in it").
package audit

import (
	"context"
	"strconv"
	"time"

	"github.com/thesecretlab-dev/zeroid/internal/domain"
	"github.com/thesecretlab-dev/zeroid/internal/store"
)

// Logger appends audit entries on behalf of the escrow, issuer, and
// verifier services.
type Logger struct {
	store store.AuditStore
}

// NewLogger wraps an AuditStore.
func NewLogger(s store.AuditStore) *Logger {
	return &Logger{store: s}
}

func (l *Logger) append(ctx context.Context, action domain.AuditAction, resourceID, actor string, metadata map[string]string) error {
	_, err := l.store.Append(ctx, domain.AuditLogEntry{
		Action:     action,
		ResourceID: resourceID,
		Actor:      actor,
		Timestamp:  time.Now().UnixMilli(),
		Metadata:   metadata,
	})
	return err
}

// EscrowCreate records put_escrow (spec.md §4.4 step 5).
func (l *Logger) EscrowCreate(ctx context.Context, escrowID, actor, regulatorKeyID, jurisdiction, credentialID string) error {
	return l.append(ctx, domain.AuditEscrowCreate, escrowID, actor, map[string]string{
		"regulatorKeyId": regulatorKeyID,
		"jurisdiction":   jurisdiction,
		"credentialId":   credentialID,
	})
}

// EscrowAccess records get_escrow (spec.md §4.4).
func (l *Logger) EscrowAccess(ctx context.Context, escrowID, actor string) error {
	return l.append(ctx, domain.AuditEscrowAccess, escrowID, actor, nil)
}

// EscrowRotate records rotate_escrow with its outcome: a success flag
// and the reason.
func (l *Logger) EscrowRotate(ctx context.Context, escrowID, actor string, success bool, reason string) error {
	return l.append(ctx, domain.AuditEscrowRotate, escrowID, actor, map[string]string{
		"success": boolString(success),
		"reason":  reason,
	})
}

// EscrowPurge records purge_expired removing an entry past retention.
func (l *Logger) EscrowPurge(ctx context.Context, escrowID, actor string) error {
	return l.append(ctx, domain.AuditEscrowPurge, escrowID, actor, nil)
}

// CredentialIssue records credential issuance (spec.md §4.5).
func (l *Logger) CredentialIssue(ctx context.Context, credentialID, actor string, level int) error {
	return l.append(ctx, domain.AuditCredentialIssue, credentialID, actor, map[string]string{
		"level": intString(level),
	})
}

// CredentialBind records binding a credential to an external account.
func (l *Logger) CredentialBind(ctx context.Context, credentialID, actor, boundAddress string) error {
	return l.append(ctx, domain.AuditCredentialBind, credentialID, actor, map[string]string{
		"boundAddress": boundAddress,
	})
}

// ProofVerify records a verification pipeline run (spec.md §4.6).
func (l *Logger) ProofVerify(ctx context.Context, fingerprint, actor string, valid, cached bool) error {
	return l.append(ctx, domain.AuditProofVerify, fingerprint, actor, map[string]string{
		"valid":  boolString(valid),
		"cached": boolString(cached),
	})
}

// NullifierRegister records a successful nullifier registration.
func (l *Logger) NullifierRegister(ctx context.Context, nullifier, actor, appID string) error {
	return l.append(ctx, domain.AuditNullifierRegister, nullifier, actor, map[string]string{
		"appId": appID,
	})
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func intString(i int) string {
	return strconv.Itoa(i)
}
