package playground

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/payground/internal/common"
	"github.com/noah-isme/payground/internal/credentials"
	"github.com/noah-isme/payground/internal/session"
)

// Handler exposes the playground over HTTP. Request bodies arrive wrapped in
// a {"payload": ...} envelope; responses carry the gateway JSON directly or
// an {"error": ...} record.
type Handler struct {
	Svc *Service
}

// Routes mounts all playground endpoints on the given router.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/session/{tab}", func(sr chi.Router) {
		sr.Get("/", h.Session)
		sr.Post("/actions", h.Actions)
		sr.Post("/persist", h.Persist)
	})
	r.Post("/payments", h.CreatePayment)
	r.Get("/payments/{id}", h.Status)
	r.Post("/payments/{id}/refund", h.Refund)
	r.Post("/payments/{id}/recurrence", h.CreateRecurrence)
	r.Post("/payments/{id}/void-recurrence", h.VoidRecurrence)
	r.Post("/payments/{id}/capture", h.Capture)
	r.Post("/payments/{id}/capture-partial", h.CapturePartial)
	r.Post("/payments/{id}/void-authorization", h.VoidAuthorization)
	r.Get("/cards/{id}", h.CardDetail)
	r.Delete("/cards/{id}", h.DeleteCard)
	r.Get("/instruments", h.Instruments)
	r.Post("/statement", h.Statement)
}

type envelope struct {
	Payload json.RawMessage `json:"payload"`
}

func decodePayload(r *http.Request, into any) error {
	var env envelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		return common.Validation("invalid request body", nil)
	}
	if len(env.Payload) == 0 {
		return common.Validation("payload is required", nil)
	}
	if err := json.Unmarshal(env.Payload, into); err != nil {
		return common.Validation("invalid payload", err.Error())
	}
	return nil
}

// tabID identifies the browser tab an operation belongs to. Session routes
// carry it in the path; operation routes pass it as a query parameter.
func tabID(r *http.Request) string {
	if tab := strings.TrimSpace(chi.URLParam(r, "tab")); tab != "" {
		return tab
	}
	if tab := strings.TrimSpace(r.URL.Query().Get("tab")); tab != "" {
		return tab
	}
	return "default"
}

func renderOutcome(w http.ResponseWriter, out Outcome, err error) {
	if err != nil {
		common.RenderError(w, err)
		return
	}
	res := out.Result
	if res.Succeeded {
		common.JSON(w, http.StatusOK, res.Data)
		return
	}
	status := res.Status
	if status < http.StatusBadRequest {
		status = http.StatusBadGateway
	}
	common.JSON(w, status, map[string]any{"error": res.ErrorRecord()})
}

// sessionView is the session as reported to the browser. The payment id of
// the last gateway response rides along so the client can fetch a fresh
// status after returning from a redirect.
type sessionView struct {
	session.State
	PaymentID string `json:"payment_id,omitempty"`
}

// Session restores the tab's session. A copy persisted before a redirect is
// consumed exactly once; otherwise the live (or a fresh default) session is
// returned.
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	tab := tabID(r)
	restored, err := h.Svc.Bridge.Restore(r.Context(), tab)
	if err != nil {
		common.RenderError(w, common.NewAppError(common.CodePersistence, "session restore failed", http.StatusInternalServerError, err))
		return
	}
	if restored != nil {
		h.Svc.Registry.Put(tab, *restored)
	}
	state := h.Svc.Registry.Get(tab)
	common.JSON(w, http.StatusOK, sessionView{State: state, PaymentID: state.PaymentID()})
}

// Actions applies one transition to the tab's session and returns the
// resulting state.
func (h *Handler) Actions(w http.ResponseWriter, r *http.Request) {
	tab := tabID(r)
	var raw json.RawMessage
	if err := decodePayload(r, &raw); err != nil {
		common.RenderError(w, err)
		return
	}
	action, err := session.DecodeAction(raw)
	if err != nil {
		common.RenderError(w, common.Validation("invalid action", err.Error()))
		return
	}
	state := h.Svc.Registry.Update(tab, func(st session.State) session.State {
		return session.Apply(st, action)
	})
	common.JSON(w, http.StatusOK, state)
}

// Persist snapshots the tab's session ahead of a gateway redirect.
func (h *Handler) Persist(w http.ResponseWriter, r *http.Request) {
	tab := tabID(r)
	state := h.Svc.Registry.Get(tab)
	if err := h.Svc.Bridge.Persist(r.Context(), tab, state); err != nil {
		common.RenderError(w, common.NewAppError(common.CodePersistence, "session persist failed", http.StatusInternalServerError, err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type createPaymentPayload struct {
	Credentials credentials.Selector `json:"credentials"`
	Draft       *session.Draft       `json:"draft"`
}

func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var payload createPaymentPayload
	if err := decodePayload(r, &payload); err != nil {
		common.RenderError(w, err)
		return
	}
	out, err := h.Svc.CreatePayment(r.Context(), tabID(r), payload.Credentials, payload.Draft)
	renderOutcome(w, out, err)
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	tab := tabID(r)
	sel := h.Svc.Registry.Get(tab).Credentials
	out, err := h.Svc.Status(r.Context(), tab, sel, chi.URLParam(r, "id"))
	renderOutcome(w, out, err)
}

type refundPayload struct {
	Credentials credentials.Selector `json:"credentials"`
	Amount      int64                `json:"amount"`
}

func (h *Handler) Refund(w http.ResponseWriter, r *http.Request) {
	var payload refundPayload
	if err := decodePayload(r, &payload); err != nil {
		common.RenderError(w, err)
		return
	}
	out, err := h.Svc.Refund(r.Context(), tabID(r), payload.Credentials, chi.URLParam(r, "id"), payload.Amount)
	renderOutcome(w, out, err)
}

type credentialsPayload struct {
	Credentials credentials.Selector `json:"credentials"`
}

func (h *Handler) CreateRecurrence(w http.ResponseWriter, r *http.Request) {
	var payload credentialsPayload
	if err := decodePayload(r, &payload); err != nil {
		common.RenderError(w, err)
		return
	}
	out, err := h.Svc.CreateRecurrence(r.Context(), tabID(r), payload.Credentials, chi.URLParam(r, "id"))
	renderOutcome(w, out, err)
}

func (h *Handler) VoidRecurrence(w http.ResponseWriter, r *http.Request) {
	var payload credentialsPayload
	if err := decodePayload(r, &payload); err != nil {
		common.RenderError(w, err)
		return
	}
	out, err := h.Svc.VoidRecurrence(r.Context(), tabID(r), payload.Credentials, chi.URLParam(r, "id"))
	renderOutcome(w, out, err)
}

func (h *Handler) Capture(w http.ResponseWriter, r *http.Request) {
	var payload credentialsPayload
	if err := decodePayload(r, &payload); err != nil {
		common.RenderError(w, err)
		return
	}
	out, err := h.Svc.Capture(r.Context(), tabID(r), payload.Credentials, chi.URLParam(r, "id"))
	renderOutcome(w, out, err)
}

type capturePartialPayload struct {
	Credentials credentials.Selector `json:"credentials"`
	Amount      int64                `json:"amount"`
	Items       []session.Item       `json:"items"`
}

func (h *Handler) CapturePartial(w http.ResponseWriter, r *http.Request) {
	var payload capturePartialPayload
	if err := decodePayload(r, &payload); err != nil {
		common.RenderError(w, err)
		return
	}
	out, err := h.Svc.CapturePartial(r.Context(), tabID(r), payload.Credentials, chi.URLParam(r, "id"), payload.Amount, payload.Items)
	renderOutcome(w, out, err)
}

func (h *Handler) VoidAuthorization(w http.ResponseWriter, r *http.Request) {
	var payload credentialsPayload
	if err := decodePayload(r, &payload); err != nil {
		common.RenderError(w, err)
		return
	}
	out, err := h.Svc.VoidAuthorization(r.Context(), tabID(r), payload.Credentials, chi.URLParam(r, "id"))
	renderOutcome(w, out, err)
}

func (h *Handler) CardDetail(w http.ResponseWriter, r *http.Request) {
	tab := tabID(r)
	sel := h.Svc.Registry.Get(tab).Credentials
	out, err := h.Svc.CardDetail(r.Context(), tab, sel, chi.URLParam(r, "id"))
	renderOutcome(w, out, err)
}

func (h *Handler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	tab := tabID(r)
	sel := h.Svc.Registry.Get(tab).Credentials
	out, err := h.Svc.DeleteCard(r.Context(), tab, sel, chi.URLParam(r, "id"))
	renderOutcome(w, out, err)
}

func (h *Handler) Instruments(w http.ResponseWriter, r *http.Request) {
	tab := tabID(r)
	sel := h.Svc.Registry.Get(tab).Credentials
	out, err := h.Svc.Instruments(r.Context(), tab, sel)
	renderOutcome(w, out, err)
}

type statementPayload struct {
	Credentials credentials.Selector `json:"credentials"`
	StatementRequest
}

func (h *Handler) Statement(w http.ResponseWriter, r *http.Request) {
	var payload statementPayload
	if err := decodePayload(r, &payload); err != nil {
		common.RenderError(w, err)
		return
	}
	out, err := h.Svc.Statement(r.Context(), tabID(r), payload.Credentials, payload.StatementRequest)
	renderOutcome(w, out, err)
}
