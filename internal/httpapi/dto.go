package httpapi

import (
	"github.com/thesecretlab-dev/zeroid/internal/common"
	"github.com/thesecretlab-dev/zeroid/internal/domain"
	"github.com/thesecretlab-dev/zeroid/internal/issuer"
	"github.com/thesecretlab-dev/zeroid/internal/verifier"
)

// credentialRequest is the `POST /api/v1/credential` body (spec.md §6).
type credentialRequest struct {
	FullName       string  `json:"fullName"`
	DateOfBirth    string  `json:"dateOfBirth"`
	CountryCode    int     `json:"countryCode"`
	DocumentType   string  `json:"documentType"`
	DocumentNumber string  `json:"documentNumber"`
	BoundAddress   *string `json:"boundAddress,omitempty"`
	Level          *int    `json:"level,omitempty"`
}

func (r credentialRequest) toIssuerRequest() issuer.Request {
	req := issuer.Request{
		Submission: domain.KycSubmission{
			FullName:       r.FullName,
			DateOfBirth:    r.DateOfBirth,
			CountryCode:    r.CountryCode,
			DocumentType:   domain.DocumentType(r.DocumentType),
			DocumentNumber: r.DocumentNumber,
		},
		BoundAddress: r.BoundAddress,
	}
	if r.Level != nil {
		req.Level = common.ToPointer(domain.DisclosureLevel(*r.Level))
	}
	return req
}

// pointDTO is a BabyJubJub point as a two-element decimal-string tuple
// (spec.md §6 "Credential JSON").
type pointDTO [2]string

func newPointDTO(p domain.Point) pointDTO {
	return pointDTO{p.X.String(), p.Y.String()}
}

// credentialDTO is the on-wire credential shape: every field element
// as a decimal string, points as two-element tuples.
type credentialDTO struct {
	ID             string   `json:"id"`
	UserSecret     string   `json:"userSecret"`
	CredentialHash string   `json:"credentialHash"`
	Signature      [3]string `json:"signature"`
	IssuerPubKey   pointDTO `json:"issuerPubKey"`
	BoundAddress   *string  `json:"boundAddress,omitempty"`
	Level          int      `json:"level"`
	IssuedAt       int64    `json:"issuedAt"`
	ExpiresAt      int64    `json:"expiresAt"`
}

func newCredentialDTO(c domain.SignedCredential) credentialDTO {
	return credentialDTO{
		ID:             c.ID,
		UserSecret:     c.UserSecret.String(),
		CredentialHash: c.CredentialHash.String(),
		Signature:      [3]string{c.Signature.R8x.String(), c.Signature.R8y.String(), c.Signature.S.String()},
		IssuerPubKey:   newPointDTO(c.IssuerPubKey),
		BoundAddress:   c.BoundAddress,
		Level:          int(c.Level),
		IssuedAt:       c.IssuedAt,
		ExpiresAt:      c.ExpiresAt,
	}
}

type credentialResponse struct {
	Credential credentialDTO `json:"credential"`
	EscrowID   string        `json:"escrowId"`
}

func newCredentialResponse(resp issuer.Response) credentialResponse {
	return credentialResponse{Credential: newCredentialDTO(resp.Credential), EscrowID: resp.EscrowID}
}

// requirementDTO is one entry of a `POST /api/v1/verify` request.
type requirementDTO struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type verifyRequestBody struct {
	UserID       string           `json:"userId"`
	Requirements []requirementDTO `json:"requirements"`
}

func (b verifyRequestBody) toDomainRequirements() []domain.Requirement {
	out := make([]domain.Requirement, len(b.Requirements))
	for i, r := range b.Requirements {
		out[i] = domain.Requirement{Type: domain.RequirementType(r.Type), Value: r.Value}
	}
	return out
}

type verificationRecordDTO struct {
	ID           string           `json:"id"`
	UserID       string           `json:"userId"`
	Status       string           `json:"status"`
	Requirements []requirementDTO `json:"requirements,omitempty"`
	CredentialID string           `json:"credentialId,omitempty"`
	FailReason   string           `json:"failReason,omitempty"`
	CreatedAt    int64            `json:"createdAt"`
	UpdatedAt    int64            `json:"updatedAt"`
}

func newVerificationRecordDTO(r domain.VerificationRecord) verificationRecordDTO {
	reqs := make([]requirementDTO, len(r.Requirements))
	for i, req := range r.Requirements {
		reqs[i] = requirementDTO{Type: string(req.Type), Value: req.Value}
	}
	return verificationRecordDTO{
		ID:           r.ID,
		UserID:       r.UserID,
		Status:       string(r.Status),
		Requirements: reqs,
		CredentialID: r.CredentialID,
		FailReason:   r.FailReason,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

// proofDTO is the snarkjs-compatible wire shape for a submitted proof.
type proofDTO struct {
	PiA      []string   `json:"pi_a"`
	PiB      [][]string `json:"pi_b"`
	PiC      []string   `json:"pi_c"`
	Protocol string     `json:"protocol"`
	Curve    string     `json:"curve"`
}

func (p proofDTO) toVerifierProof() verifier.Proof {
	return verifier.Proof{PiA: p.PiA, PiB: p.PiB, PiC: p.PiC, Protocol: p.Protocol, Curve: p.Curve}
}

type proofVerifyRequest struct {
	Proof         proofDTO `json:"proof"`
	PublicSignals []string `json:"publicSignals"`
}

type proofVerifyResponse struct {
	Valid     bool   `json:"valid"`
	Nullifier string `json:"nullifier"`
	Cached    bool   `json:"cached"`
}

func newProofVerifyResponse(r verifier.VerifyResult) proofVerifyResponse {
	return proofVerifyResponse{Valid: r.Valid, Nullifier: r.Nullifier, Cached: r.Cached}
}

// proofEntry is one item of a `POST /api/v1/proof/aggregate` request.
type proofEntry struct {
	Proof         proofDTO `json:"proof"`
	PublicSignals []string `json:"publicSignals"`
}

type proofAggregateRequest struct {
	Proofs []proofEntry `json:"proofs"`
}

type aggregateItemDTO struct {
	Index int    `json:"index"`
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

type proofAggregateResponse struct {
	AllValid   bool               `json:"allValid"`
	Total      int                `json:"total"`
	ValidCount int                `json:"validCount"`
	Results    []aggregateItemDTO `json:"results"`
}

func newProofAggregateResponse(r verifier.AggregateResult) proofAggregateResponse {
	results := make([]aggregateItemDTO, len(r.Results))
	for i, item := range r.Results {
		results[i] = aggregateItemDTO{Index: item.Index, Valid: item.Valid, Error: item.Error}
	}
	return proofAggregateResponse{AllValid: r.AllValid, Total: r.Total, ValidCount: r.ValidCount, Results: results}
}

type healthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Version   string `json:"version"`
	Timestamp int64  `json:"timestamp"`
}
