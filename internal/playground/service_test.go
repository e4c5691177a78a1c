package playground_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	validator "github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/payground/internal/common"
	"github.com/noah-isme/payground/internal/config"
	"github.com/noah-isme/payground/internal/credentials"
	"github.com/noah-isme/payground/internal/gateway"
	"github.com/noah-isme/payground/internal/playground"
	"github.com/noah-isme/payground/internal/session"
)

type plainDoer struct {
	c *http.Client
}

func (d plainDoer) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	return d.c.Do(req.WithContext(ctx))
}

type harness struct {
	mux         *http.ServeMux
	server      *httptest.Server
	svc         *playground.Service
	registry    *session.Registry
	tokenCalls  atomic.Int64
	statusCalls atomic.Int64
	failStatus  atomic.Bool
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{mux: http.NewServeMux(), registry: session.NewRegistry()}

	h.mux.HandleFunc("POST /oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		h.tokenCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok", "token_type": "Bearer", "expires_in": 1800,
		})
	})
	h.mux.HandleFunc("GET /payments/payment/{id}", func(w http.ResponseWriter, r *http.Request) {
		h.statusCalls.Add(1)
		if h.failStatus.Load() {
			http.Error(w, "upstream broke", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": r.PathValue("id"), "state": "PAID",
		})
	})
	h.server = httptest.NewServer(h.mux)
	t.Cleanup(h.server.Close)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := &config.Config{
		SandboxURL:    h.server.URL,
		ProductionURL: h.server.URL,
		Playground:    config.PresetCredential{GoID: "8111111111", ClientID: "demo", ClientSecret: "demo-secret"},
		TechSupport:   config.PresetCredential{GoID: "8222222222", ClientID: "tech", ClientSecret: "tech-secret"},
	}

	h.svc = &playground.Service{
		Registry: h.registry,
		Bridge:   session.Bridge{R: rdb, TTL: time.Minute, Logger: zerolog.Nop()},
		Resolver: credentials.NewResolver(cfg),
		Gateway:  gateway.NewClient(plainDoer{c: h.server.Client()}, zerolog.Nop()),
		Validate: validator.New(),
		Logger:   zerolog.Nop(),
	}
	return h
}

func presetSelector() credentials.Selector {
	return credentials.Selector{Source: credentials.SourcePlayground, TestMode: true}
}

func TestRefundChainedSuccess(t *testing.T) {
	h := newHarness(t)
	h.mux.HandleFunc("POST /payments/payment/{id}/refund", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"id": r.PathValue("id"), "result": "FINISHED"})
	})

	out, err := h.svc.Refund(context.Background(), "tab1", presetSelector(), "123", 50)
	require.NoError(t, err)
	require.True(t, out.Result.Succeeded)
	require.Equal(t, "FINISHED", out.Result.Data["result"], "the refund payload is the recorded response")
	require.EqualValues(t, 1, h.statusCalls.Load(), "the status refresh still runs after the refund")

	state := h.registry.Get("tab1")
	require.Equal(t, "FINISHED", state.Response["result"])
	require.Empty(t, state.Error)
	require.False(t, state.Busy)
}

func TestRefundMutateFailureSkipsStatus(t *testing.T) {
	h := newHarness(t)
	h.mux.HandleFunc("POST /payments/payment/{id}/refund", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"errors": []map[string]any{{"error_code": 340, "message": "payment not refundable"}},
		})
	})

	out, err := h.svc.Refund(context.Background(), "tab1", presetSelector(), "123", 50)
	require.NoError(t, err)
	require.False(t, out.Result.Succeeded)
	require.EqualValues(t, 0, h.statusCalls.Load(), "a failed refund must not trigger the status fetch")

	state := h.registry.Get("tab1")
	require.Empty(t, state.Response)
	require.NotEmpty(t, state.Error)
	require.False(t, state.Busy)
}

func TestRefundStatusFailureKeepsBothOutcomes(t *testing.T) {
	h := newHarness(t)
	h.mux.HandleFunc("POST /payments/payment/{id}/refund", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"id": r.PathValue("id"), "result": "FINISHED"})
	})
	h.failStatus.Store(true)

	out, err := h.svc.Refund(context.Background(), "tab1", presetSelector(), "123", 50)
	require.NoError(t, err)
	require.True(t, out.Result.Succeeded, "the mutate result stands even when the status fetch fails")

	state := h.registry.Get("tab1")
	require.Equal(t, "FINISHED", state.Response["result"])
	require.NotEmpty(t, state.Error)
	require.False(t, state.Busy)
}

func TestUnresolvedCredentialsShortCircuits(t *testing.T) {
	h := newHarness(t)

	sel := credentials.Selector{Source: credentials.SourceCustom, GoID: "8123", ClientID: "x"}
	_, err := h.svc.Status(context.Background(), "tab1", sel, "123")
	require.Error(t, err)
	require.Equal(t, common.CodeUnresolvedCreds, common.CodeOf(err))
	require.EqualValues(t, 0, h.tokenCalls.Load())
	require.False(t, h.registry.Get("tab1").Busy)
}

func TestCreatePaymentRejectsInvalidDraft(t *testing.T) {
	h := newHarness(t)

	draft := session.DefaultDraft(time.Now())
	draft.Amount = 0
	_, err := h.svc.CreatePayment(context.Background(), "tab1", presetSelector(), &draft)
	require.Error(t, err)
	require.Equal(t, common.CodeValidation, common.CodeOf(err))
	require.EqualValues(t, 0, h.tokenCalls.Load())
}

func TestRefundRejectsNonPositiveAmount(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.Refund(context.Background(), "tab1", presetSelector(), "123", 0)
	require.Error(t, err)
	require.Equal(t, common.CodeValidation, common.CodeOf(err))
}

func TestStatementAddsFilename(t *testing.T) {
	h := newHarness(t)
	h.mux.HandleFunc("POST /accounts/account-statement", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "8111111111", body["goid"], "preset goid is injected server-side")
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write([]byte("col1;col2"))
	})

	out, err := h.svc.Statement(context.Background(), "tab1", presetSelector(), playground.StatementRequest{
		DateFrom: "2026-08-01",
		DateTo:   "2026-08-31",
		Currency: "CZK",
		Format:   "CSV_A",
	})
	require.NoError(t, err)
	require.True(t, out.Result.Succeeded)
	require.Equal(t, "statement.csv", out.Result.Data["filename"])
	require.NotEmpty(t, out.Result.Data["content"])
}

func TestStatementRejectsMissingFields(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.Statement(context.Background(), "tab1", presetSelector(), playground.StatementRequest{Format: "CSV_A"})
	require.Error(t, err)
	require.Equal(t, common.CodeValidation, common.CodeOf(err))
}

func TestStatementFilename(t *testing.T) {
	cases := map[string]string{
		"CSV_A":        "statement.csv",
		"CSV_B":        "statement.csv",
		"XLS_A":        "statement.xls",
		"ABO_A":        "statement.abo",
		"PDF_A":        "statement.pdf",
		"TYPE_ALL_SUM": "statement.dat",
		"":             "statement.dat",
	}
	for format, want := range cases {
		require.Equal(t, want, playground.StatementFilename(format), "format %q", format)
	}
}
