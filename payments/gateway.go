package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrProviderUnavailable covers network failures, timeouts and 5xx
	// responses after retries are exhausted.
	ErrProviderUnavailable = errors.New("provider_unavailable")
	// ErrUnknownProvider means the caller asked for a provider name the
	// gateway was not configured with.
	ErrUnknownProvider = errors.New("unknown_provider")
	// ErrUnknownReference means the provider has no record of the
	// session/charge id we asked about.
	ErrUnknownReference = errors.New("unknown_provider_reference")
)

// Status is the provider's authoritative view of a payment.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusPending   Status = "pending"
	StatusFailed    Status = "failed"
)

// InitiateRequest carries everything a provider needs to open a payment.
type InitiateRequest struct {
	BookingNumber string
	MerchantRef   string
	Amount        float64
	Currency      string
	GuestEmail    string
	ReturnURL     string
}

// InitiationData is what the guest-facing flow needs to continue payment:
// a hosted-page redirect for session providers, a client token for
// charge providers. Reference is the provider-side id to confirm with
// (empty for charge providers until the widget reports one).
type InitiationData struct {
	Provider    string `json:"provider"`
	Reference   string `json:"reference,omitempty"`
	RedirectURL string `json:"redirectUrl,omitempty"`
	ClientToken string `json:"clientToken,omitempty"`
}

// Verification is the provider's answer to "what happened to this payment".
type Verification struct {
	Status     Status
	Amount     float64
	Currency   string
	ProviderTx string
}

// Provider is the single capability interface over both payment variants.
// Verify must always re-query the provider; it never trusts caller input.
type Provider interface {
	Name() string
	Initiate(ctx context.Context, req InitiateRequest) (*InitiationData, error)
	Verify(ctx context.Context, providerRef string) (*Verification, error)
}

// Gateway is a closed registry of configured providers.
type Gateway struct {
	providers map[string]Provider
}

func NewGateway(providers ...Provider) *Gateway {
	g := &Gateway{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		g.providers[strings.ToLower(p.Name())] = p
	}
	return g
}

func (g *Gateway) Provider(name string) (Provider, error) {
	p, ok := g.providers[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	return p, nil
}

func (g *Gateway) Names() []string {
	names := make([]string, 0, len(g.providers))
	for name := range g.providers {
		names = append(names, name)
	}
	return names
}
