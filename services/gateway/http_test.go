package gatewaysvc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/funnelseye/backoffice/core"
	"github.com/funnelseye/backoffice/core/settlement"
	"github.com/funnelseye/backoffice/tests"
)

func newGateway(t *testing.T, handler http.Handler) *httpGateway {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	conf := testutil.NewConfig()
	conf.Gateway.BaseURL = srv.URL
	conf.Gateway.ApiKey = "test-key"
	core.Conf = conf

	return NewHTTPGateway(testutil.NewLogger())
}

func TestHTTPGateway_SubmitPayout(t *testing.T) {
	var gotKey, gotAuth string
	gw := newGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/payouts" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		gotKey = r.Header.Get("Idempotency-Key")
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "po_123", "status": "paid"}`))
	}))

	res, err := gw.SubmitPayout(context.Background(), "payout-1-2026-07", 1, 8550, "USD")
	if err != nil {
		t.Fatalf("SubmitPayout() failed: %v", err)
	}
	if res.GatewayRef != "po_123" || res.Status != settlement.GatewayCompleted {
		t.Errorf("SubmitPayout() = %+v; want po_123 completed", res)
	}
	if gotKey != "payout-1-2026-07" {
		t.Errorf("Idempotency-Key = %q", gotKey)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization = %q", gotAuth)
	}
}

func TestHTTPGateway_SubmitPayout_errors(t *testing.T) {
	tests := []struct {
		name          string
		statusCode    int
		body          string
		wantTransient bool
	}{
		{"rate limited", http.StatusTooManyRequests, `{"error": {"code": "rate_limited", "message": "slow down"}}`, true},
		{"server error", http.StatusBadGateway, ``, true},
		{"rejected", http.StatusUnprocessableEntity, `{"error": {"code": "invalid_account", "message": "account closed"}}`, false},
		{"bad request", http.StatusBadRequest, ``, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := newGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.body))
			}))

			_, err := gw.SubmitPayout(context.Background(), "payout-1-2026-07", 1, 8550, "USD")
			if err == nil {
				t.Fatal("SubmitPayout() did not fail")
			}
			if got := settlement.IsTransientGatewayError(err); got != tt.wantTransient {
				t.Errorf("IsTransientGatewayError() = %v; want %v (err: %v)", got, tt.wantTransient, err)
			}
		})
	}
}

func TestHTTPGateway_QueryStatus(t *testing.T) {
	gw := newGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/payouts/po_123" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"id": "po_123", "status": "pending"}`))
	}))

	status, err := gw.QueryStatus(context.Background(), "po_123")
	if err != nil {
		t.Fatalf("QueryStatus() failed: %v", err)
	}
	if status != settlement.GatewayProcessing {
		t.Errorf("QueryStatus() = %q; want %q", status, settlement.GatewayProcessing)
	}
}
