package session_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/payground/internal/session"
)

func TestDefaultDraftOrderNumberCarriesYear(t *testing.T) {
	draft := session.DefaultDraft(time.Date(2027, 3, 14, 0, 0, 0, 0, time.UTC))
	require.Equal(t, "Test_1234/2027", draft.OrderNumber)
	require.Equal(t, int64(100), draft.Amount)
	require.Equal(t, "CZK", draft.Currency)
	require.Nil(t, draft.Recurrence)
}

func TestDraftExtensionBagRoundTrip(t *testing.T) {
	in := []byte(`{
		"amount": 300,
		"currency": "EUR",
		"payer": {"contact": {"email": "a@b.cz"}},
		"eet": {"mode": "AUTO"},
		"custom_flag": true
	}`)

	var draft session.Draft
	require.NoError(t, json.Unmarshal(in, &draft))
	require.Equal(t, int64(300), draft.Amount)
	require.Equal(t, "a@b.cz", draft.Payer.Contact.Email)
	require.Equal(t, map[string]any{"mode": "AUTO"}, draft.Extra["eet"])
	require.Equal(t, true, draft.Extra["custom_flag"])

	out, err := json.Marshal(draft)
	require.NoError(t, err)

	var round map[string]any
	require.NoError(t, json.Unmarshal(out, &round))
	require.Equal(t, float64(300), round["amount"])
	require.Equal(t, map[string]any{"mode": "AUTO"}, round["eet"])
	require.Equal(t, true, round["custom_flag"])
}

func TestDraftWithoutExtensionsMarshalsPlain(t *testing.T) {
	draft := session.DefaultDraft(time.Now())
	out, err := json.Marshal(draft)
	require.NoError(t, err)

	var round map[string]any
	require.NoError(t, json.Unmarshal(out, &round))
	require.NotContains(t, round, "recurrence")
	require.Contains(t, round, "payer")
	require.Contains(t, round, "callback")
}

func TestStatePaymentID(t *testing.T) {
	var s session.State

	s.Response = map[string]any{"id": "3210001"}
	require.Equal(t, "3210001", s.PaymentID())

	s.Response = map[string]any{"id": float64(3210002)}
	require.Equal(t, "3210002", s.PaymentID())

	s.Response = map[string]any{}
	require.Equal(t, "", s.PaymentID())
}
