package httpapi

import (
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/thesecretlab-dev/zeroid/internal/apperr"
	"github.com/thesecretlab-dev/zeroid/internal/domain"
)

// dateOfBirthPattern is spec.md §6's validation regex for dateOfBirth.
var dateOfBirthPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

func validateCredentialRequest(req credentialRequest) error {
	if req.FullName == "" {
		return apperr.Validation("fullName", "must not be empty")
	}
	if !dateOfBirthPattern.MatchString(req.DateOfBirth) {
		return apperr.Validation("dateOfBirth", "must match ^\\d{4}-\\d{2}-\\d{2}$")
	}
	if req.CountryCode < 1 || req.CountryCode > 999 {
		return apperr.Validation("countryCode", "must be an integer 1..999")
	}
	if !domain.ValidDocumentType(domain.DocumentType(req.DocumentType)) {
		return apperr.Validation("documentType", "must be one of passport, drivers_license, national_id")
	}
	if req.DocumentNumber == "" {
		return apperr.Validation("documentNumber", "must not be empty")
	}
	if req.BoundAddress != nil && (!strings.HasPrefix(*req.BoundAddress, "0x") || !common.IsHexAddress(*req.BoundAddress)) {
		return apperr.Validation("boundAddress", "must match ^0x[a-fA-F0-9]{40}$")
	}
	if req.Level != nil && (*req.Level < 0 || *req.Level > 4) {
		return apperr.Validation("level", "must be 0..4")
	}
	return nil
}

func validateVerifyBody(req verifyRequestBody) error {
	if req.UserID == "" {
		return apperr.Validation("userId", "must not be empty")
	}
	if len(req.Requirements) < 1 || len(req.Requirements) > 10 {
		return apperr.Validation("requirements", "must contain 1..10 entries")
	}
	for _, r := range req.Requirements {
		if !domain.ValidRequirementType(domain.RequirementType(r.Type)) {
			return apperr.Validation("requirements", "type must be one of age_gte, country_not, sanctions_clear, sybil_unique")
		}
	}
	return nil
}

func validateProofSignals(publicSignals []string) error {
	if len(publicSignals) < 1 || len(publicSignals) > 50 {
		return apperr.Validation("publicSignals", "must contain 1..50 entries")
	}
	return nil
}

func validateAggregateRequest(entries []proofEntry) error {
	if len(entries) < 1 || len(entries) > 100 {
		return apperr.Validation("proofs", "must contain 1..100 entries")
	}
	for _, e := range entries {
		if err := validateProofSignals(e.PublicSignals); err != nil {
			return err
		}
	}
	return nil
}
