package payments

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// ChargeProvider is the client-widget variant: Initiate registers a pending
// charge and hands the widget a client token; the widget completes the
// charge and reports its id, which Verify re-queries.
type ChargeProvider struct {
	name      string
	baseURL   string
	secretKey string
	publicKey string
	client    *http.Client
}

func NewChargeProvider(name, baseURL, secretKey, publicKey string) *ChargeProvider {
	return &ChargeProvider{
		name:      name,
		baseURL:   strings.TrimRight(baseURL, "/"),
		secretKey: secretKey,
		publicKey: publicKey,
		client:    newHTTPClient(),
	}
}

func (p *ChargeProvider) Name() string { return p.name }

type chargeResponse struct {
	ID       string  `json:"id"`
	Status   string  `json:"status"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

func (p *ChargeProvider) Initiate(ctx context.Context, req InitiateRequest) (*InitiationData, error) {
	payload := map[string]interface{}{
		"amount":      req.Amount,
		"currency":    req.Currency,
		"reference":   req.MerchantRef,
		"description": "Booking " + req.BookingNumber,
		"capture":     true,
	}

	var cr chargeResponse
	if err := doJSON(ctx, p.client, http.MethodPost, p.baseURL+"/v1/charges", p.secretKey, payload, &cr); err != nil {
		var apiErr *apiError
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("create charge rejected: %w", err)
		}
		return nil, err
	}
	if cr.ID == "" {
		return nil, fmt.Errorf("create charge: incomplete response from %s", p.name)
	}

	return &InitiationData{
		Provider:    p.name,
		Reference:   cr.ID,
		ClientToken: p.publicKey,
	}, nil
}

func (p *ChargeProvider) Verify(ctx context.Context, providerRef string) (*Verification, error) {
	ref := strings.TrimSpace(providerRef)
	if ref == "" {
		return nil, ErrUnknownReference
	}

	var cr chargeResponse
	err := doJSON(ctx, p.client, http.MethodGet, p.baseURL+"/v1/charges/"+url.PathEscape(ref), p.secretKey, nil, &cr)
	if err != nil {
		var apiErr *apiError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrUnknownReference, ref)
		}
		return nil, err
	}

	v := &Verification{
		Amount:     cr.Amount,
		Currency:   cr.Currency,
		ProviderTx: cr.ID,
	}
	switch strings.ToLower(cr.Status) {
	case "successful", "succeeded", "captured":
		v.Status = StatusSucceeded
	case "pending", "authorized":
		v.Status = StatusPending
	default:
		v.Status = StatusFailed
	}
	return v, nil
}
