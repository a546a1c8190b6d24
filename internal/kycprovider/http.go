package kycprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	retryablehttp "github.com/hashicorp/go-retryablehttp"

	"github.com/thesecretlab-dev/zeroid/internal/domain"
	"github.com/thesecretlab-dev/zeroid/internal/log"
)

// HTTPProvider calls an external KYC vendor over HTTP, retrying
// transient failures with retryablehttp's exponential backoff — the
// same resilience pattern the teacher reaches for on every outbound
// vendor call.
type HTTPProvider struct {
	client  *retryablehttp.Client
	baseURL string
	apiKey  string
}

// HTTPProviderConfig configures the outbound vendor client.
type HTTPProviderConfig struct {
	BaseURL    string
	APIKey     string
	MaxRetries int
	Timeout    time.Duration
}

// NewHTTPProvider builds a retrying HTTP client against cfg.BaseURL.
func NewHTTPProvider(cfg HTTPProviderConfig) *HTTPProvider {
	client := retryablehttp.NewClient()
	client.Logger = nil // structured logging goes through internal/log instead
	if cfg.MaxRetries > 0 {
		client.RetryMax = cfg.MaxRetries
	}
	if cfg.Timeout > 0 {
		client.HTTPClient.Timeout = cfg.Timeout
	}

	return &HTTPProvider{client: client, baseURL: cfg.BaseURL, apiKey: cfg.APIKey}
}

type vendorRequest struct {
	FullName       string `json:"full_name"`
	DateOfBirth    string `json:"date_of_birth"`
	CountryCode    int    `json:"country_code"`
	DocumentType   string `json:"document_type"`
	DocumentNumber string `json:"document_number"`
}

type vendorResponse struct {
	Passed      bool    `json:"passed"`
	Confidence  float64 `json:"confidence"`
	ProviderRef string  `json:"provider_ref"`
}

func (h *HTTPProvider) Verify(ctx context.Context, submission domain.KycSubmission) (domain.KycResult, error) {
	body, err := json.Marshal(vendorRequest{
		FullName:       submission.FullName,
		DateOfBirth:    submission.DateOfBirth,
		CountryCode:    submission.CountryCode,
		DocumentType:   string(submission.DocumentType),
		DocumentNumber: submission.DocumentNumber,
	})
	if err != nil {
		return domain.KycResult{}, fmt.Errorf("kycprovider: marshal request: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+"/v1/verify", bytes.NewReader(body))
	if err != nil {
		return domain.KycResult{}, fmt.Errorf("kycprovider: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+h.apiKey)

	resp, err := h.client.Do(req)
	if err != nil {
		return domain.KycResult{}, fmt.Errorf("kycprovider: vendor call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Warn(ctx, "kyc vendor returned non-200", "status", resp.StatusCode)
		return domain.KycResult{}, fmt.Errorf("kycprovider: vendor status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.KycResult{}, fmt.Errorf("kycprovider: read response: %w", err)
	}

	var vr vendorResponse
	if err := json.Unmarshal(raw, &vr); err != nil {
		return domain.KycResult{}, fmt.Errorf("kycprovider: decode response: %w", err)
	}

	return domain.KycResult{
		KycSubmission: submission,
		Passed:        vr.Passed,
		Confidence:    vr.Confidence,
		ProviderRef:   vr.ProviderRef,
		VerifiedAt:    nowMillis(),
	}, nil
}
