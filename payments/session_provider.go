package payments

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// SessionProvider is the hosted-page variant: Initiate opens a checkout
// session and the guest pays on the provider's page; the return flow hands
// back a session id that Verify re-queries.
type SessionProvider struct {
	name      string
	baseURL   string
	secretKey string
	client    *http.Client
}

func NewSessionProvider(name, baseURL, secretKey string) *SessionProvider {
	return &SessionProvider{
		name:      name,
		baseURL:   strings.TrimRight(baseURL, "/"),
		secretKey: secretKey,
		client:    newHTTPClient(),
	}
}

func (p *SessionProvider) Name() string { return p.name }

type sessionResponse struct {
	ID          string  `json:"id"`
	Status      string  `json:"status"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	RedirectURL string  `json:"redirect_url"`
	PaymentID   string  `json:"payment_id"`
}

func (p *SessionProvider) Initiate(ctx context.Context, req InitiateRequest) (*InitiationData, error) {
	payload := map[string]interface{}{
		"amount":         req.Amount,
		"currency":       req.Currency,
		"reference":      req.MerchantRef,
		"description":    "Booking " + req.BookingNumber,
		"customer_email": req.GuestEmail,
		"return_url":     req.ReturnURL,
	}

	var sr sessionResponse
	if err := doJSON(ctx, p.client, http.MethodPost, p.baseURL+"/v1/checkout/sessions", p.secretKey, payload, &sr); err != nil {
		var apiErr *apiError
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("create session rejected: %w", err)
		}
		return nil, err
	}
	if sr.ID == "" || sr.RedirectURL == "" {
		return nil, fmt.Errorf("create session: incomplete response from %s", p.name)
	}

	return &InitiationData{
		Provider:    p.name,
		Reference:   sr.ID,
		RedirectURL: sr.RedirectURL,
	}, nil
}

// Verify re-queries the session. The session id may arrive from an
// untrusted return URL, so the provider's answer is the only thing that
// counts.
func (p *SessionProvider) Verify(ctx context.Context, providerRef string) (*Verification, error) {
	ref := strings.TrimSpace(providerRef)
	if ref == "" {
		return nil, ErrUnknownReference
	}

	var sr sessionResponse
	err := doJSON(ctx, p.client, http.MethodGet, p.baseURL+"/v1/checkout/sessions/"+url.PathEscape(ref), p.secretKey, nil, &sr)
	if err != nil {
		var apiErr *apiError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrUnknownReference, ref)
		}
		return nil, err
	}

	v := &Verification{
		Amount:     sr.Amount,
		Currency:   sr.Currency,
		ProviderTx: sr.PaymentID,
	}
	switch strings.ToLower(sr.Status) {
	case "paid", "complete", "completed":
		v.Status = StatusSucceeded
	case "open", "pending", "created":
		v.Status = StatusPending
	default:
		v.Status = StatusFailed
	}
	if v.ProviderTx == "" {
		v.ProviderTx = sr.ID
	}
	return v, nil
}
