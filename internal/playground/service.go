// Package playground composes the session store, the credential resolver and
// the gateway client into the operations the web playground exposes.
package playground

import (
	"context"
	"errors"
	"net/http"
	"strings"

	validator "github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/payground/internal/common"
	"github.com/noah-isme/payground/internal/credentials"
	"github.com/noah-isme/payground/internal/gateway"
	"github.com/noah-isme/payground/internal/session"
)

// Service runs gateway operations against a tab's session. Every operation
// follows the same shape: resolve credentials, clear the previous outcome,
// mark the session busy, call the gateway, fold the result back in and
// release the busy flag whatever happened.
type Service struct {
	Registry *session.Registry
	Bridge   session.Bridge
	Resolver credentials.Resolver
	Gateway  *gateway.Client
	Validate *validator.Validate
	Logger   zerolog.Logger
}

// Outcome is the state after an operation plus the raw gateway result the
// HTTP layer renders.
type Outcome struct {
	State  session.State
	Result gateway.Result
}

func resolveError(err error) error {
	switch {
	case errors.Is(err, credentials.ErrMisconfigured):
		return common.NewAppError(common.CodeEnvMisconfigured, "gateway credentials misconfigured", http.StatusInternalServerError, err)
	default:
		return common.NewAppError(common.CodeUnresolvedCreds, "gateway credentials could not be resolved", http.StatusUnprocessableEntity, err)
	}
}

// execute wraps a single gateway call with the busy/clear/fold session
// choreography.
func (s *Service) execute(ctx context.Context, tab string, sel credentials.Selector, call func(context.Context, credentials.Resolved) gateway.Result) (Outcome, error) {
	resolved, err := s.Resolver.Resolve(sel)
	if err != nil {
		return Outcome{}, resolveError(err)
	}

	s.Registry.Update(tab, func(st session.State) session.State {
		st = session.Apply(st, session.SetResponse{})
		st = session.Apply(st, session.SetError{})
		st.Credentials = sel
		return session.Apply(st, session.ToggleBusy{})
	})

	result := call(ctx, resolved)

	state := s.Registry.Update(tab, func(st session.State) session.State {
		if result.Succeeded {
			st = session.Apply(st, session.SetResponse{Response: result.Data})
		} else {
			st = session.Apply(st, session.SetError{Error: result.ErrorRecord()})
		}
		return session.Apply(st, session.ToggleBusy{})
	})
	return Outcome{State: state, Result: result}, nil
}

// executeChained runs a mutating call followed by a status fetch of the same
// payment. The mutating call's data is what gets recorded as the response; the
// status fetch only refreshes the gateway's view of the payment. A mutate
// failure records the error and skips the status call. A status failure after
// a successful mutate keeps the mutate response and the status error side by
// side.
func (s *Service) executeChained(ctx context.Context, tab string, sel credentials.Selector, paymentID string, mutate func(context.Context, credentials.Resolved) gateway.Result) (Outcome, error) {
	resolved, err := s.Resolver.Resolve(sel)
	if err != nil {
		return Outcome{}, resolveError(err)
	}

	s.Registry.Update(tab, func(st session.State) session.State {
		st = session.Apply(st, session.SetResponse{})
		st = session.Apply(st, session.SetError{})
		st.Credentials = sel
		return session.Apply(st, session.ToggleBusy{})
	})

	result := mutate(ctx, resolved)
	var status gateway.Result
	if result.Succeeded {
		status = s.Gateway.GetStatus(ctx, resolved, paymentID)
	}

	state := s.Registry.Update(tab, func(st session.State) session.State {
		if result.Succeeded {
			st = session.Apply(st, session.SetResponse{Response: result.Data})
			if !status.Succeeded {
				st = session.Apply(st, session.SetError{Error: status.ErrorRecord()})
			}
		} else {
			st = session.Apply(st, session.SetError{Error: result.ErrorRecord()})
		}
		return session.Apply(st, session.ToggleBusy{})
	})

	return Outcome{State: state, Result: result}, nil
}

// CreatePayment submits the tab's draft. A draft supplied in the request
// replaces the session draft first, mirroring an edit-then-submit.
func (s *Service) CreatePayment(ctx context.Context, tab string, sel credentials.Selector, draft *session.Draft) (Outcome, error) {
	if draft != nil {
		s.Registry.Update(tab, func(st session.State) session.State {
			return session.Apply(st, session.ReplaceDraft{Draft: *draft})
		})
	}
	effective := s.Registry.Get(tab).Draft
	if err := validateDraft(effective); err != nil {
		return Outcome{}, err
	}
	return s.execute(ctx, tab, sel, func(ctx context.Context, resolved credentials.Resolved) gateway.Result {
		return s.Gateway.CreatePayment(ctx, resolved, effective)
	})
}

// Status fetches the current gateway state of a payment.
func (s *Service) Status(ctx context.Context, tab string, sel credentials.Selector, paymentID string) (Outcome, error) {
	return s.execute(ctx, tab, sel, func(ctx context.Context, resolved credentials.Resolved) gateway.Result {
		return s.Gateway.GetStatus(ctx, resolved, paymentID)
	})
}

// Refund refunds part or all of a payment, then refreshes its status.
func (s *Service) Refund(ctx context.Context, tab string, sel credentials.Selector, paymentID string, amount int64) (Outcome, error) {
	if amount <= 0 {
		return Outcome{}, common.Validation("refund amount must be positive", map[string]any{"amount": amount})
	}
	return s.executeChained(ctx, tab, sel, paymentID, func(ctx context.Context, resolved credentials.Resolved) gateway.Result {
		return s.Gateway.RefundPayment(ctx, resolved, paymentID, amount)
	})
}

// CreateRecurrence charges a follow-up payment on a recurring parent using
// the tab's draft as the payment data, then refreshes the parent's status.
func (s *Service) CreateRecurrence(ctx context.Context, tab string, sel credentials.Selector, paymentID string) (Outcome, error) {
	draft := s.Registry.Get(tab).Draft
	if err := validateDraft(draft); err != nil {
		return Outcome{}, err
	}
	paymentData := map[string]any{
		"amount":            draft.Amount,
		"currency":          draft.Currency,
		"order_number":      draft.OrderNumber,
		"order_description": draft.OrderDescription,
		"items":             draft.Items,
	}
	return s.executeChained(ctx, tab, sel, paymentID, func(ctx context.Context, resolved credentials.Resolved) gateway.Result {
		return s.Gateway.CreateRecurrence(ctx, resolved, paymentID, paymentData)
	})
}

// VoidRecurrence cancels the recurrence on a payment, then refreshes it.
func (s *Service) VoidRecurrence(ctx context.Context, tab string, sel credentials.Selector, paymentID string) (Outcome, error) {
	return s.executeChained(ctx, tab, sel, paymentID, func(ctx context.Context, resolved credentials.Resolved) gateway.Result {
		return s.Gateway.VoidRecurrence(ctx, resolved, paymentID)
	})
}

// Capture settles a preauthorized payment in full, then refreshes it.
func (s *Service) Capture(ctx context.Context, tab string, sel credentials.Selector, paymentID string) (Outcome, error) {
	return s.executeChained(ctx, tab, sel, paymentID, func(ctx context.Context, resolved credentials.Resolved) gateway.Result {
		return s.Gateway.CaptureAuthorization(ctx, resolved, paymentID)
	})
}

// CapturePartial settles part of a preauthorized payment, then refreshes it.
func (s *Service) CapturePartial(ctx context.Context, tab string, sel credentials.Selector, paymentID string, amount int64, items []session.Item) (Outcome, error) {
	if amount <= 0 {
		return Outcome{}, common.Validation("capture amount must be positive", map[string]any{"amount": amount})
	}
	body := map[string]any{"amount": amount}
	if len(items) > 0 {
		body["items"] = items
	}
	return s.executeChained(ctx, tab, sel, paymentID, func(ctx context.Context, resolved credentials.Resolved) gateway.Result {
		return s.Gateway.CaptureAuthorizationPartial(ctx, resolved, paymentID, body)
	})
}

// VoidAuthorization releases a preauthorized payment, then refreshes it.
func (s *Service) VoidAuthorization(ctx context.Context, tab string, sel credentials.Selector, paymentID string) (Outcome, error) {
	return s.executeChained(ctx, tab, sel, paymentID, func(ctx context.Context, resolved credentials.Resolved) gateway.Result {
		return s.Gateway.VoidAuthorization(ctx, resolved, paymentID)
	})
}

// CardDetail fetches a stored card.
func (s *Service) CardDetail(ctx context.Context, tab string, sel credentials.Selector, cardID string) (Outcome, error) {
	return s.execute(ctx, tab, sel, func(ctx context.Context, resolved credentials.Resolved) gateway.Result {
		return s.Gateway.CardDetail(ctx, resolved, cardID)
	})
}

// DeleteCard removes a stored card.
func (s *Service) DeleteCard(ctx context.Context, tab string, sel credentials.Selector, cardID string) (Outcome, error) {
	return s.execute(ctx, tab, sel, func(ctx context.Context, resolved credentials.Resolved) gateway.Result {
		return s.Gateway.DeleteCard(ctx, resolved, cardID)
	})
}

// Instruments lists the payment instruments enabled for the resolved eshop.
func (s *Service) Instruments(ctx context.Context, tab string, sel credentials.Selector) (Outcome, error) {
	return s.execute(ctx, tab, sel, func(ctx context.Context, resolved credentials.Resolved) gateway.Result {
		return s.Gateway.PaymentInstruments(ctx, resolved)
	})
}

// StatementRequest carries the account statement parameters.
type StatementRequest struct {
	DateFrom string `json:"date_from" validate:"required"`
	DateTo   string `json:"date_to" validate:"required"`
	Currency string `json:"currency" validate:"required,len=3"`
	Format   string `json:"format" validate:"required"`
}

// Statement downloads an account statement. The binary body comes back
// base64-encoded together with the derived filename.
func (s *Service) Statement(ctx context.Context, tab string, sel credentials.Selector, req StatementRequest) (Outcome, error) {
	if s.Validate != nil {
		if err := s.Validate.Struct(req); err != nil {
			return Outcome{}, common.Validation("invalid statement request", err.Error())
		}
	}
	body := map[string]any{
		"date_from": req.DateFrom,
		"date_to":   req.DateTo,
		"currency":  req.Currency,
		"format":    req.Format,
	}
	out, err := s.execute(ctx, tab, sel, func(ctx context.Context, resolved credentials.Resolved) gateway.Result {
		return s.Gateway.AccountStatement(ctx, resolved, body)
	})
	if err != nil {
		return out, err
	}
	if out.Result.Succeeded && out.Result.Data != nil {
		out.Result.Data["filename"] = StatementFilename(req.Format)
	}
	return out, nil
}

func validateDraft(d session.Draft) error {
	details := map[string]any{}
	if d.Amount <= 0 {
		details["amount"] = "must be positive"
	}
	if strings.TrimSpace(d.Currency) == "" {
		details["currency"] = "is required"
	}
	if strings.TrimSpace(d.OrderNumber) == "" {
		details["order_number"] = "is required"
	}
	if len(details) > 0 {
		return common.Validation("invalid payment draft", details)
	}
	return nil
}
