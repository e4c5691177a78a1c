package gateway_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/payground/internal/credentials"
	"github.com/noah-isme/payground/internal/gateway"
)

type plainDoer struct {
	c *http.Client
}

func (d plainDoer) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	return d.c.Do(req.WithContext(ctx))
}

type stubGateway struct {
	mux         *http.ServeMux
	server      *httptest.Server
	tokenCalls  atomic.Int64
	statusCalls atomic.Int64
}

func newStubGateway(t *testing.T) *stubGateway {
	t.Helper()
	stub := &stubGateway{mux: http.NewServeMux()}
	stub.mux.HandleFunc("POST /oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		stub.tokenCalls.Add(1)
		user, pass, ok := r.BasicAuth()
		if !ok || user == "" || pass == "" {
			http.Error(w, `{"errors":[{"message":"bad auth"}]}`, http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok-" + user,
			"token_type":   "Bearer",
			"expires_in":   1800,
		})
	})
	stub.server = httptest.NewServer(stub.mux)
	t.Cleanup(stub.server.Close)
	return stub
}

func (s *stubGateway) resolved() credentials.Resolved {
	return credentials.Resolved{
		Endpoint:     s.server.URL,
		GoID:         "8000000000",
		ClientID:     "client",
		ClientSecret: "secret",
	}
}

func (s *stubGateway) client() *gateway.Client {
	return gateway.NewClient(plainDoer{c: s.server.Client()}, zerolog.Nop())
}

func TestCreatePaymentSuccess(t *testing.T) {
	stub := newStubGateway(t)
	stub.mux.HandleFunc("POST /payments/payment", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer tok-client", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		// empty-string leaves never reach the wire
		_, present := body["order_description"]
		require.False(t, present)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "3210001",
			"state":  "CREATED",
			"gw_url": "https://pay.example/3210001",
		})
	})

	result := stub.client().CreatePayment(context.Background(), stub.resolved(), map[string]any{
		"amount":            100,
		"currency":          "CZK",
		"order_description": "",
	})
	require.True(t, result.Succeeded)
	require.Equal(t, "3210001", result.Data["id"])
	require.Equal(t, "https://pay.example/3210001", result.Data["gw_url"])
	require.Nil(t, result.ErrorDetail)
}

func TestEmbeddedErrorIn200Body(t *testing.T) {
	stub := newStubGateway(t)
	stub.mux.HandleFunc("POST /payments/payment", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"errors": []any{map[string]any{"error_code": float64(110), "message": "invalid amount"}},
		})
	})

	result := stub.client().CreatePayment(context.Background(), stub.resolved(), map[string]any{"amount": -5})
	require.False(t, result.Succeeded)
	require.Equal(t, []any{map[string]any{"error_code": float64(110), "message": "invalid amount"}}, result.ErrorDetail)
}

func TestStructuredErrorWithErrorStatus(t *testing.T) {
	stub := newStubGateway(t)
	stub.mux.HandleFunc("GET /payments/payment/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"errors": []any{map[string]any{"message": "payment not found"}},
		})
	})

	result := stub.client().GetStatus(context.Background(), stub.resolved(), "999")
	require.False(t, result.Succeeded)
	require.Equal(t, http.StatusNotFound, result.Status)
	require.NotNil(t, result.ErrorDetail)
}

func TestErrorStatusWithoutDiscriminatorUsesFallback(t *testing.T) {
	stub := newStubGateway(t)
	stub.mux.HandleFunc("POST /payments/payment/{id}/refund", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	})

	result := stub.client().RefundPayment(context.Background(), stub.resolved(), "1", 50)
	require.False(t, result.Succeeded)
	record := result.ErrorRecord()
	require.Equal(t, "Failed to refund payment.", record["message"])
}

func TestTransportFailureNormalises(t *testing.T) {
	stub := newStubGateway(t)
	client := stub.client()
	resolved := stub.resolved()
	stub.server.Close()

	result := client.GetStatus(context.Background(), resolved, "1")
	require.False(t, result.Succeeded)
	record := result.ErrorRecord()
	require.Equal(t, "Failed to get payment status.", record["message"])
	require.Contains(t, record, "transport")
}

func TestTokenIsCachedAcrossCalls(t *testing.T) {
	stub := newStubGateway(t)
	stub.mux.HandleFunc("GET /payments/payment/{id}", func(w http.ResponseWriter, _ *http.Request) {
		stub.statusCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "1", "state": "PAID"})
	})

	client := stub.client()
	ctx := context.Background()
	for range 3 {
		result := client.GetStatus(ctx, stub.resolved(), "1")
		require.True(t, result.Succeeded)
	}
	require.Equal(t, int64(3), stub.statusCalls.Load())
	require.Equal(t, int64(1), stub.tokenCalls.Load())
}

func TestAccountStatementInjectsIdentityAndEncodes(t *testing.T) {
	stub := newStubGateway(t)
	statement := []byte{0x25, 0x50, 0x44, 0x46, 0x00, 0xff}
	stub.mux.HandleFunc("POST /accounts/account-statement", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "8000000000", body["goid"])
		require.Equal(t, "PDF_A", body["format"])

		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write(statement)
	})

	result := stub.client().AccountStatement(context.Background(), stub.resolved(), map[string]any{
		"date_from": "2025-01-01",
		"date_to":   "2025-01-31",
		"currency":  "CZK",
		"format":    "PDF_A",
	})
	require.True(t, result.Succeeded)
	require.Equal(t, base64.StdEncoding.EncodeToString(statement), result.Data["content"])
}

func TestPaymentInstrumentsUsesResolvedIdentity(t *testing.T) {
	stub := newStubGateway(t)
	stub.mux.HandleFunc("GET /eshops/eshop/{goid}/payment-instruments", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "8000000000", r.PathValue("goid"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"enabledPaymentInstruments": []any{map[string]any{"paymentInstrument": "PAYMENT_CARD"}},
		})
	})

	result := stub.client().PaymentInstruments(context.Background(), stub.resolved())
	require.True(t, result.Succeeded)
	require.Contains(t, result.Data, "enabledPaymentInstruments")
}
