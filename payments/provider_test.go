package payments

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSessionProviderInitiateAndVerify(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/checkout/sessions":
			var payload map[string]interface{}
			if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
				t.Errorf("decode payload: %v", err)
			}
			if payload["reference"] == "" {
				t.Error("initiate should carry a merchant reference")
			}
			json.NewEncoder(w).Encode(map[string]interface{}{
				"id":           "sess_123",
				"status":       "open",
				"amount":       payload["amount"],
				"currency":     payload["currency"],
				"redirect_url": "https://pay.example.com/s/sess_123",
			})
		case r.Method == http.MethodGet && r.URL.Path == "/v1/checkout/sessions/sess_123":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"id": "sess_123", "status": "paid", "amount": 5000.0, "currency": "THB", "payment_id": "pay_9",
			})
		default:
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"error": "not found"})
		}
	}))
	defer srv.Close()

	p := NewSessionProvider("sessionpay", srv.URL, "sk_test")
	ctx := context.Background()

	data, err := p.Initiate(ctx, InitiateRequest{
		BookingNumber: "BK20260301AAAA", MerchantRef: "mref-1",
		Amount: 5000, Currency: "THB", ReturnURL: "http://localhost/return",
	})
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if data.Reference != "sess_123" || data.RedirectURL == "" {
		t.Fatalf("unexpected initiation data: %+v", data)
	}
	if gotAuth != "Bearer sk_test" {
		t.Errorf("auth header = %q", gotAuth)
	}

	v, err := p.Verify(ctx, "sess_123")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if v.Status != StatusSucceeded || v.Amount != 5000 || v.ProviderTx != "pay_9" {
		t.Fatalf("unexpected verification: %+v", v)
	}

	if _, err := p.Verify(ctx, "sess_unknown"); !errors.Is(err, ErrUnknownReference) {
		t.Fatalf("unknown ref err = %v, want ErrUnknownReference", err)
	}
}

func TestSessionProviderRetriesThenUnavailable(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewSessionProvider("sessionpay", srv.URL, "sk_test")
	_, err := p.Verify(context.Background(), "sess_123")
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("err = %v, want ErrProviderUnavailable", err)
	}
	if calls != maxAttempts {
		t.Fatalf("made %d calls, want %d (bounded retries)", calls, maxAttempts)
	}
}

func TestChargeProviderVerifyStatuses(t *testing.T) {
	statuses := map[string]string{
		"ch_ok":      "successful",
		"ch_pending": "pending",
		"ch_bad":     "failed",
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Path[len("/v1/charges/"):]
		status, ok := statuses[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id": id, "status": status, "amount": 2500.0, "currency": "THB",
		})
	}))
	defer srv.Close()

	p := NewChargeProvider("cardpay", srv.URL, "sk_test", "pk_test")
	ctx := context.Background()

	cases := map[string]Status{
		"ch_ok":      StatusSucceeded,
		"ch_pending": StatusPending,
		"ch_bad":     StatusFailed,
	}
	for ref, want := range cases {
		v, err := p.Verify(ctx, ref)
		if err != nil {
			t.Fatalf("verify %s: %v", ref, err)
		}
		if v.Status != want {
			t.Errorf("verify %s: status = %s, want %s", ref, v.Status, want)
		}
	}
}

func TestChargeProviderInitiateReturnsClientToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/charges" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"id": "ch_1", "status": "pending"})
	}))
	defer srv.Close()

	p := NewChargeProvider("cardpay", srv.URL, "sk_test", "pk_test")
	data, err := p.Initiate(context.Background(), InitiateRequest{
		BookingNumber: "BK20260301AAAA", MerchantRef: "mref-2", Amount: 2500, Currency: "THB",
	})
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if data.Reference != "ch_1" || data.ClientToken != "pk_test" || data.RedirectURL != "" {
		t.Fatalf("unexpected initiation data: %+v", data)
	}
}

func TestGatewayRejectsUnknownProvider(t *testing.T) {
	g := NewGateway(NewSessionProvider("sessionpay", "http://localhost", "sk"))

	if _, err := g.Provider("sessionpay"); err != nil {
		t.Fatalf("known provider: %v", err)
	}
	if _, err := g.Provider("SessionPay"); err != nil {
		t.Fatalf("provider lookup should be case-insensitive: %v", err)
	}
	if _, err := g.Provider("paypal"); !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("err = %v, want ErrUnknownProvider", err)
	}
}
