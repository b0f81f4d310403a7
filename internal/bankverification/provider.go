package bankverification

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/dishpatch/merchant-backend/pkg/config"
)

// ProviderResult is the outcome of one verification call.
type ProviderResult struct {
	Verified    bool
	ProviderRef string
	Reason      string
}

// Provider performs the actual bank or UPI check against the verification vendor.
type Provider interface {
	VerifyBankAccount(ctx context.Context, accountNumber, ifsc string) (*ProviderResult, error)
	VerifyUPI(ctx context.Context, vpa string) (*ProviderResult, error)
}

type restProvider struct {
	http *resty.Client
}

type providerResponse struct {
	Valid     bool   `json:"valid"`
	Reference string `json:"reference"`
	Reason    string `json:"reason"`
}

// NewProvider builds an HTTP verification provider from config.
func NewProvider(cfg config.VerificationConfig) (Provider, error) {
	baseURL := strings.TrimSpace(cfg.ProviderBaseURL)
	if baseURL == "" {
		return nil, errors.New("verification provider base url is required")
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(cfg.ProviderTimeout).
		SetHeader("Accept", "application/json")

	return &restProvider{http: client}, nil
}

func (p *restProvider) VerifyBankAccount(ctx context.Context, accountNumber, ifsc string) (*ProviderResult, error) {
	return p.verify(ctx, "/v1/verify/bank-account", map[string]string{
		"account_number": accountNumber,
		"ifsc":           ifsc,
	})
}

func (p *restProvider) VerifyUPI(ctx context.Context, vpa string) (*ProviderResult, error) {
	return p.verify(ctx, "/v1/verify/vpa", map[string]string{
		"vpa": vpa,
	})
}

func (p *restProvider) verify(ctx context.Context, path string, body map[string]string) (*ProviderResult, error) {
	var out providerResponse
	resp, err := p.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		Post(path)
	if err != nil {
		return nil, fmt.Errorf("verification provider call: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("verification provider returned %s", resp.Status())
	}
	return &ProviderResult{
		Verified:    out.Valid,
		ProviderRef: out.Reference,
		Reason:      out.Reason,
	}, nil
}
