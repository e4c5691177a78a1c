package gateway

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/url"

	"github.com/noah-isme/payground/internal/credentials"
)

// Operation names, used for metrics labels and fallback error messages.
const (
	OpCreatePayment    = "create_payment"
	OpGetStatus        = "get_status"
	OpRefund           = "refund_payment"
	OpCreateRecurrence = "create_recurrence"
	OpVoidRecurrence   = "void_recurrence"
	OpCapture          = "capture_authorization"
	OpCapturePartial   = "capture_authorization_partial"
	OpVoidAuth         = "void_authorization"
	OpCardDetail       = "get_card_details"
	OpDeleteCard       = "delete_card"
	OpInstruments      = "get_payment_instruments"
	OpStatement        = "get_account_statement"
)

var fallbackMessages = map[string]string{
	OpCreatePayment:    "Failed to create payment.",
	OpGetStatus:        "Failed to get payment status.",
	OpRefund:           "Failed to refund payment.",
	OpCreateRecurrence: "Failed to create recurrence.",
	OpVoidRecurrence:   "Failed to void recurrence.",
	OpCapture:          "Failed to capture authorization.",
	OpCapturePartial:   "Failed to capture authorization partially.",
	OpVoidAuth:         "Failed to void authorization.",
	OpCardDetail:       "Failed to fetch card details.",
	OpDeleteCard:       "Failed to delete card.",
	OpInstruments:      "Failed to fetch payment instruments.",
	OpStatement:        "Failed to fetch account statement.",
}

func fallbackMessage(operation string) string {
	if msg, ok := fallbackMessages[operation]; ok {
		return msg
	}
	return "Gateway call failed."
}

// CreatePayment submits a payment draft and returns the gateway record,
// including the hosted-page URL the caller redirects to.
func (c *Client) CreatePayment(ctx context.Context, resolved credentials.Resolved, draft any) Result {
	return c.call(ctx, resolved, OpCreatePayment, http.MethodPost, "/payments/payment", draft)
}

// GetStatus re-queries the current state of a payment.
func (c *Client) GetStatus(ctx context.Context, resolved credentials.Resolved, paymentID string) Result {
	return c.call(ctx, resolved, OpGetStatus, http.MethodGet, "/payments/payment/"+url.PathEscape(paymentID), nil)
}

// RefundPayment refunds the given amount of a paid payment.
func (c *Client) RefundPayment(ctx context.Context, resolved credentials.Resolved, paymentID string, amount int64) Result {
	return c.call(ctx, resolved, OpRefund, http.MethodPost,
		"/payments/payment/"+url.PathEscape(paymentID)+"/refund",
		map[string]any{"amount": amount})
}

// CreateRecurrence charges a follow-up payment on an established recurrence.
func (c *Client) CreateRecurrence(ctx context.Context, resolved credentials.Resolved, paymentID string, paymentData any) Result {
	return c.call(ctx, resolved, OpCreateRecurrence, http.MethodPost,
		"/payments/payment/"+url.PathEscape(paymentID)+"/create-recurrence", paymentData)
}

// VoidRecurrence stops an established recurrence.
func (c *Client) VoidRecurrence(ctx context.Context, resolved credentials.Resolved, paymentID string) Result {
	return c.call(ctx, resolved, OpVoidRecurrence, http.MethodPost,
		"/payments/payment/"+url.PathEscape(paymentID)+"/void-recurrence", nil)
}

// CaptureAuthorization captures the full preauthorized amount.
func (c *Client) CaptureAuthorization(ctx context.Context, resolved credentials.Resolved, paymentID string) Result {
	return c.call(ctx, resolved, OpCapture, http.MethodPost,
		"/payments/payment/"+url.PathEscape(paymentID)+"/capture", nil)
}

// CaptureAuthorizationPartial captures part of a preauthorized amount.
func (c *Client) CaptureAuthorizationPartial(ctx context.Context, resolved credentials.Resolved, paymentID string, body any) Result {
	return c.call(ctx, resolved, OpCapturePartial, http.MethodPost,
		"/payments/payment/"+url.PathEscape(paymentID)+"/capture", body)
}

// VoidAuthorization releases a preauthorized amount.
func (c *Client) VoidAuthorization(ctx context.Context, resolved credentials.Resolved, paymentID string) Result {
	return c.call(ctx, resolved, OpVoidAuth, http.MethodPost,
		"/payments/payment/"+url.PathEscape(paymentID)+"/void-authorization", nil)
}

// CardDetail fetches a stored card by its identifier.
func (c *Client) CardDetail(ctx context.Context, resolved credentials.Resolved, cardID string) Result {
	return c.call(ctx, resolved, OpCardDetail, http.MethodGet, "/payments/cards/"+url.PathEscape(cardID), nil)
}

// DeleteCard removes a stored card by its identifier.
func (c *Client) DeleteCard(ctx context.Context, resolved credentials.Resolved, cardID string) Result {
	return c.call(ctx, resolved, OpDeleteCard, http.MethodDelete, "/payments/cards/"+url.PathEscape(cardID), nil)
}

// PaymentInstruments lists every instrument enabled for the resolved
// identity.
func (c *Client) PaymentInstruments(ctx context.Context, resolved credentials.Resolved) Result {
	return c.call(ctx, resolved, OpInstruments, http.MethodGet,
		"/eshops/eshop/"+url.PathEscape(resolved.GoID)+"/payment-instruments", nil)
}

// AccountStatement fetches a statement for a date range. The resolved
// identity is merged into the request body here, never taken from the
// caller. The binary statement comes back base64-encoded under "content".
func (c *Client) AccountStatement(ctx context.Context, resolved credentials.Resolved, body map[string]any) Result {
	merged := make(map[string]any, len(body)+1)
	for key, value := range body {
		merged[key] = value
	}
	merged["goid"] = resolved.GoID
	return c.callBinary(ctx, resolved, OpStatement, http.MethodPost, "/accounts/account-statement", merged)
}

func encodeBase64(raw []byte) string {
	return base64.StdEncoding.EncodeToString(raw)
}
