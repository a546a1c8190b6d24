// Package issuer orchestrates credential issuance: sanctions screen,
// KYC verification, Poseidon hash + EdDSA signature, escrow, and
// persistence, per spec.md §4.5.
package issuer

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/thesecretlab-dev/zeroid/internal/apperr"
	"github.com/thesecretlab-dev/zeroid/internal/audit"
	"github.com/thesecretlab-dev/zeroid/internal/domain"
	"github.com/thesecretlab-dev/zeroid/internal/escrow"
	"github.com/thesecretlab-dev/zeroid/internal/kms"
	"github.com/thesecretlab-dev/zeroid/internal/kycprovider"
	"github.com/thesecretlab-dev/zeroid/internal/sanctions"
	"github.com/thesecretlab-dev/zeroid/internal/store"
	"github.com/thesecretlab-dev/zeroid/internal/zkcrypto/aesgcm"
	"github.com/thesecretlab-dev/zeroid/internal/zkcrypto/field"
	"github.com/thesecretlab-dev/zeroid/internal/zkcrypto/poseidon"
)

// defaultRegulatorKeyID is the regulator bucket every escrow entry is
// written under, per spec.md §4.5 step 5 (`regulatorKey="default"`).
const defaultRegulatorKeyID = "default"

// defaultJurisdiction is the jurisdiction assumed for escrow retention
// when the request doesn't otherwise imply one (spec.md §4.5 step 5).
const defaultJurisdiction = domain.JurisdictionUS

// Request is a credential issuance request (spec.md §6 `/credential` body).
type Request struct {
	Submission   domain.KycSubmission
	BoundAddress *string
	Level        *domain.DisclosureLevel // caller-specified; nil derives per spec.md §4.5 step 4e
}

// Response is what the issuance handler returns (spec.md §4.5 step 7):
// the signed credential (without raw PII) and the escrow record id.
type Response struct {
	Credential domain.SignedCredential
	EscrowID   string
}

// Service ties sanctions screening, KYC verification, key signing, and
// escrow together into the single `POST /credential` operation.
type Service struct {
	sanctionsScreener *sanctions.Screener
	kycProvider       kycprovider.Provider
	keys              kms.KeyProvider
	regulatorKeys     *kms.RegulatorKeys
	issuerKeyID       kms.KeyID
	escrowSvc         *escrow.Service
	credentials       store.Credentials
	storeKey          []byte // HKDF(masterKey, "credentials"); wraps the sensitive payload at rest
	auditLogger       *audit.Logger
}

// NewService wires together the collaborators an issuance request needs.
// storeKey encrypts the credential document's sensitive payload
// (userSecret, credentialHash, signature, issuerPubKey) before it ever
// reaches the credentials store, the same store-level envelope
// escrow.Service and the proof cache's L2 already use.
func NewService(
	screener *sanctions.Screener,
	kycProvider kycprovider.Provider,
	keys kms.KeyProvider,
	regulatorKeys *kms.RegulatorKeys,
	issuerKeyID kms.KeyID,
	escrowSvc *escrow.Service,
	credentials store.Credentials,
	storeKey []byte,
	auditLogger *audit.Logger,
) *Service {
	return &Service{
		sanctionsScreener: screener,
		kycProvider:       kycProvider,
		keys:              keys,
		regulatorKeys:     regulatorKeys,
		issuerKeyID:       issuerKeyID,
		escrowSvc:         escrowSvc,
		credentials:       credentials,
		storeKey:          storeKey,
		auditLogger:       auditLogger,
	}
}

// Issue implements spec.md §4.5 steps 1-7.
func (s *Service) Issue(ctx context.Context, req Request) (Response, error) {
	if err := validateSubmission(req.Submission); err != nil {
		return Response{}, err
	}

	if s.sanctionsScreener.IsSanctioned(int64(req.Submission.CountryCode)) {
		return Response{}, apperr.New(apperr.KindForbidden, "country is on the sanctions list")
	}

	kycResult, err := s.kycProvider.Verify(ctx, req.Submission)
	if err != nil {
		return Response{}, apperr.Wrap(apperr.KindUnavailable, "kyc provider verify failed", err)
	}
	if !kycResult.Passed {
		return Response{}, apperr.New(apperr.KindPolicy, fmt.Sprintf("kyc verification failed (confidence %.2f)", kycResult.Confidence))
	}

	userSecret, err := field.Random()
	if err != nil {
		return Response{}, apperr.Wrap(apperr.KindInternal, "draw userSecret", err)
	}

	age, err := deriveAge(req.Submission.DateOfBirth, time.Now())
	if err != nil {
		return Response{}, apperr.Wrap(apperr.KindValidation, "invalid dateOfBirth", err).WithDetails(
			apperr.FieldError{Path: "dateOfBirth", Message: err.Error()},
		)
	}
	ageField := big.NewInt(int64(age))
	if !field.FitsBits(ageField, 8) {
		return Response{}, apperr.New(apperr.KindValidation, "age does not fit in 8 bits").WithDetails(
			apperr.FieldError{Path: "dateOfBirth", Message: "derived age exceeds the circuit's 8-bit constraint"},
		)
	}
	countryField := big.NewInt(int64(req.Submission.CountryCode))

	credentialHash, err := poseidon.CredentialHash(ageField, countryField, userSecret)
	if err != nil {
		return Response{}, apperr.Wrap(apperr.KindInternal, "compute credential hash", err)
	}

	sigBytes, err := s.keys.Sign(ctx, s.issuerKeyID, credentialHash.Bytes())
	if err != nil {
		return Response{}, apperr.Wrap(apperr.KindInternal, "sign credential", err)
	}
	signature, err := decodeSignature(sigBytes)
	if err != nil {
		return Response{}, apperr.Wrap(apperr.KindInternal, "decode signature", err)
	}

	pubKeyBytes, err := s.keys.PublicKey(ctx, s.issuerKeyID)
	if err != nil {
		return Response{}, apperr.Wrap(apperr.KindInternal, "load issuer public key", err)
	}
	issuerPubKey, err := decodePoint(pubKeyBytes)
	if err != nil {
		return Response{}, apperr.Wrap(apperr.KindInternal, "decode issuer public key", err)
	}

	level := determineLevel(req.Level, age, req.Submission.CountryCode)

	credentialID := uuid.NewString()
	escrowID := uuid.NewString()
	now := time.Now()

	credential := domain.SignedCredential{
		ID:             credentialID,
		UserSecret:     userSecret,
		CredentialHash: credentialHash,
		Signature:      signature,
		IssuerPubKey:   issuerPubKey,
		BoundAddress:   req.BoundAddress,
		Level:          level,
		IssuedAt:       now.UnixMilli(),
		ExpiresAt:      now.Add(domain.DefaultCredentialTTL).UnixMilli(),
	}

	regulatorKey, err := s.regulatorKeys.Get(ctx, defaultRegulatorKeyID)
	if err != nil {
		return Response{}, apperr.Wrap(apperr.KindInternal, "load regulator key", err)
	}

	pii := escrow.RawPII{
		FullName:       req.Submission.FullName,
		DateOfBirth:    req.Submission.DateOfBirth,
		CountryCode:    req.Submission.CountryCode,
		DocumentType:   string(req.Submission.DocumentType),
		DocumentNumber: req.Submission.DocumentNumber,
		ProviderRef:    kycResult.ProviderRef,
		VerifiedAt:     kycResult.VerifiedAt,
	}
	if err := s.escrowSvc.Put(ctx, escrowID, pii, regulatorKey, defaultRegulatorKeyID, credentialID, defaultJurisdiction, "issuer"); err != nil {
		return Response{}, err
	}

	payload, err := s.encryptSensitivePayload(credential)
	if err != nil {
		return Response{}, apperr.Wrap(apperr.KindInternal, "encrypt credential payload", err)
	}
	doc := store.CredentialDoc{
		ID:               credentialID,
		BoundAddress:     req.BoundAddress,
		Level:            int(level),
		EncryptedPayload: payload,
	}
	if err := s.credentials.Put(ctx, doc); err != nil {
		return Response{}, apperr.Wrap(apperr.KindInternal, "persist credential", err)
	}

	if s.auditLogger != nil {
		if err := s.auditLogger.CredentialIssue(ctx, credentialID, "issuer", int(level)); err != nil {
			return Response{}, apperr.Wrap(apperr.KindInternal, "append audit entry", err)
		}
	}

	// userSecret crosses the TLS boundary only in the response returned
	// here; the only other copy is the store-key-encrypted one in the
	// credentials store written above.
	return Response{Credential: credential, EscrowID: escrowID}, nil
}

func validateSubmission(sub domain.KycSubmission) error {
	if sub.FullName == "" {
		return apperr.Validation("fullName", "must not be empty")
	}
	if sub.CountryCode < 1 || sub.CountryCode > 999 {
		return apperr.Validation("countryCode", "must be an ISO 3166-1 numeric code (1-999)")
	}
	if !domain.ValidDocumentType(sub.DocumentType) {
		return apperr.Validation("documentType", "must be one of passport, drivers_license, national_id")
	}
	if sub.DocumentNumber == "" {
		return apperr.Validation("documentNumber", "must not be empty")
	}
	if _, err := time.Parse("2006-01-02", sub.DateOfBirth); err != nil {
		return apperr.Validation("dateOfBirth", "must be an ISO-8601 date")
	}
	return nil
}

// deriveAge computes a Gregorian year-diff with month/day carry, per
// spec.md §4.5 step 4b.
func deriveAge(dateOfBirth string, now time.Time) (int, error) {
	dob, err := time.Parse("2006-01-02", dateOfBirth)
	if err != nil {
		return 0, fmt.Errorf("parse dateOfBirth: %w", err)
	}
	age := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		age--
	}
	if age < 0 {
		return 0, fmt.Errorf("dateOfBirth is in the future")
	}
	return age, nil
}

// determineLevel implements spec.md §4.5 step 4e: caller-specified
// wins; otherwise 3 if both country and age predicates are meaningful,
// 1 if only age is, else 0.
func determineLevel(requested *domain.DisclosureLevel, age, countryCode int) domain.DisclosureLevel {
	if requested != nil {
		return *requested
	}
	hasAge := age > 0
	hasCountry := countryCode > 0
	switch {
	case hasCountry && hasAge:
		return domain.LevelAgeAndCountry
	case hasAge:
		return domain.LevelAgeOnly
	default:
		return domain.LevelNone
	}
}

func decodeSignature(raw []byte) (domain.Signature, error) {
	if len(raw) != 96 {
		return domain.Signature{}, fmt.Errorf("issuer: signature must be 96 bytes, got %d", len(raw))
	}
	return domain.Signature{
		R8x: new(big.Int).SetBytes(raw[:32]),
		R8y: new(big.Int).SetBytes(raw[32:64]),
		S:   new(big.Int).SetBytes(raw[64:]),
	}, nil
}

func decodePoint(raw []byte) (domain.Point, error) {
	if len(raw) != 64 {
		return domain.Point{}, fmt.Errorf("issuer: public key must be 64 bytes, got %d", len(raw))
	}
	return domain.Point{
		X: new(big.Int).SetBytes(raw[:32]),
		Y: new(big.Int).SetBytes(raw[32:]),
	}, nil
}

// sensitivePayload is the JSON shape encrypted inside CredentialDoc's
// opaque payload (spec.md §4.5 step 6: hash, signature, pubkey,
// userSecret are encrypted; boundAddress/level stay as queryable index
// fields outside the envelope).
type sensitivePayload struct {
	CredentialHash string `json:"credentialHash"`
	SignatureR8x   string `json:"signatureR8x"`
	SignatureR8y   string `json:"signatureR8y"`
	SignatureS     string `json:"signatureS"`
	IssuerPubKeyX  string `json:"issuerPubKeyX"`
	IssuerPubKeyY  string `json:"issuerPubKeyY"`
	UserSecret     string `json:"userSecret"`
	IssuedAt       int64  `json:"issuedAt"`
	ExpiresAt      int64  `json:"expiresAt"`
}

// encryptSensitivePayload marshals the sensitive fields then wraps
// them in a store-key AES-GCM envelope, exactly the envelope
// escrow.Service.writeEntry already applies to PII at rest: the
// credentials table must never hold these fields in the clear.
func (s *Service) encryptSensitivePayload(c domain.SignedCredential) ([]byte, error) {
	p := sensitivePayload{
		CredentialHash: c.CredentialHash.String(),
		SignatureR8x:   c.Signature.R8x.String(),
		SignatureR8y:   c.Signature.R8y.String(),
		SignatureS:     c.Signature.S.String(),
		IssuerPubKeyX:  c.IssuerPubKey.X.String(),
		IssuerPubKeyY:  c.IssuerPubKey.Y.String(),
		UserSecret:     c.UserSecret.String(),
		IssuedAt:       c.IssuedAt,
		ExpiresAt:      c.ExpiresAt,
	}
	plaintext, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("issuer: serialize sensitive payload: %w", err)
	}
	env, err := aesgcm.Encrypt(s.storeKey, plaintext)
	if err != nil {
		return nil, fmt.Errorf("issuer: store-encrypt sensitive payload: %w", err)
	}
	return store.MarshalEnvelope(env), nil
}

// decryptSensitivePayload reverses encryptSensitivePayload, the
// unwrap Fetch needs to rebuild a domain.SignedCredential from a
// stored CredentialDoc.
func (s *Service) decryptSensitivePayload(raw []byte) (sensitivePayload, error) {
	env, err := store.UnmarshalEnvelope(raw)
	if err != nil {
		return sensitivePayload{}, fmt.Errorf("issuer: decode envelope: %w", err)
	}
	plaintext, err := aesgcm.Decrypt(s.storeKey, env)
	if err != nil {
		return sensitivePayload{}, fmt.Errorf("issuer: store-decrypt sensitive payload: %w", err)
	}
	var p sensitivePayload
	if err := json.Unmarshal(plaintext, &p); err != nil {
		return sensitivePayload{}, fmt.Errorf("issuer: deserialize sensitive payload: %w", err)
	}
	return p, nil
}

// Fetch loads and decrypts a previously issued credential by id,
// reversing the envelope Issue wrote.
func (s *Service) Fetch(ctx context.Context, credentialID string) (domain.SignedCredential, error) {
	doc, err := s.credentials.Get(ctx, credentialID)
	if err != nil {
		if err == store.ErrNotFound {
			return domain.SignedCredential{}, apperr.New(apperr.KindNotFound, "credential not found")
		}
		return domain.SignedCredential{}, apperr.Wrap(apperr.KindInternal, "load credential", err)
	}

	p, err := s.decryptSensitivePayload(doc.EncryptedPayload)
	if err != nil {
		return domain.SignedCredential{}, apperr.Wrap(apperr.KindInternal, "decrypt credential payload", err)
	}

	hash, ok := new(big.Int).SetString(p.CredentialHash, 10)
	if !ok {
		return domain.SignedCredential{}, apperr.New(apperr.KindIntegrity, "credential payload: malformed credentialHash")
	}
	userSecret, ok := new(big.Int).SetString(p.UserSecret, 10)
	if !ok {
		return domain.SignedCredential{}, apperr.New(apperr.KindIntegrity, "credential payload: malformed userSecret")
	}
	r8x, ok1 := new(big.Int).SetString(p.SignatureR8x, 10)
	r8y, ok2 := new(big.Int).SetString(p.SignatureR8y, 10)
	sVal, ok3 := new(big.Int).SetString(p.SignatureS, 10)
	if !ok1 || !ok2 || !ok3 {
		return domain.SignedCredential{}, apperr.New(apperr.KindIntegrity, "credential payload: malformed signature")
	}
	pubX, ok4 := new(big.Int).SetString(p.IssuerPubKeyX, 10)
	pubY, ok5 := new(big.Int).SetString(p.IssuerPubKeyY, 10)
	if !ok4 || !ok5 {
		return domain.SignedCredential{}, apperr.New(apperr.KindIntegrity, "credential payload: malformed issuerPubKey")
	}

	return domain.SignedCredential{
		ID:             doc.ID,
		UserSecret:     userSecret,
		CredentialHash: hash,
		Signature:      domain.Signature{R8x: r8x, R8y: r8y, S: sVal},
		IssuerPubKey:   domain.Point{X: pubX, Y: pubY},
		BoundAddress:   doc.BoundAddress,
		Level:          domain.DisclosureLevel(doc.Level),
		IssuedAt:       p.IssuedAt,
		ExpiresAt:      p.ExpiresAt,
	}, nil
}
