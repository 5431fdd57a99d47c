package billinghandler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"shopledger/internal/domain/audit"
	"shopledger/internal/domain/billing"
	"shopledger/internal/transport/http/api"
	"shopledger/internal/transport/http/middleware"
	"shopledger/internal/transport/http/shared"
)

type quickPaymentPayload struct {
	Action string `json:"action"`
	Amount int64  `json:"amount"`
}

type bulkPaymentPayload struct {
	Payments []billing.BulkItem `json:"payments" validate:"required,min=1"`
}

type adjustPaymentPayload struct {
	ReceivedPayments int64  `json:"receivedPayments" validate:"gte=0"`
	Notes            string `json:"notes" validate:"max=2000"`
}

func (h *Handler) handleListClients(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	clients, err := h.Service.ListClients(r.Context(), user.ShopName)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	api.Success(w, clients, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateClient(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())
	var profile billing.ClientProfile
	if !shared.Decode(w, r, &profile, reqID) {
		return
	}
	profile.Name = strings.TrimSpace(profile.Name)
	v := shared.NewValidator()
	v.Struct(profile)
	if v.Reject(w, reqID) {
		return
	}
	client, err := h.Service.CreateClient(r.Context(), user.ShopName, profile)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	shared.Audit(r, h.Audit, audit.ActionCreate, "client", client.ID, nil, client)
	api.Created(w, client, reqID)
}

func (h *Handler) handleGetClient(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	client, err := h.Service.GetClient(r.Context(), user.ShopName, chi.URLParam(r, "clientID"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	api.Success(w, client, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdateClient(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())
	clientID := chi.URLParam(r, "clientID")
	var profile billing.ClientProfile
	if !shared.Decode(w, r, &profile, reqID) {
		return
	}
	profile.Name = strings.TrimSpace(profile.Name)
	v := shared.NewValidator()
	v.Struct(profile)
	if v.Reject(w, reqID) {
		return
	}
	before, err := h.Service.GetClient(r.Context(), user.ShopName, clientID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	client, err := h.Service.UpdateClient(r.Context(), user.ShopName, clientID, profile)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	shared.Audit(r, h.Audit, audit.ActionUpdate, "client", client.ID, before, client)
	api.Success(w, client, reqID)
}

func (h *Handler) handleQuickPayment(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())
	var payload quickPaymentPayload
	if !shared.Decode(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	v.Required("action", payload.Action, "is required")
	v.Enum("action", payload.Action, billing.QuickActions, "must be one of "+strings.Join(billing.QuickActions, ", "))
	if v.Reject(w, reqID) {
		return
	}
	result, err := h.Service.QuickPayment(r.Context(), user.ShopName, chi.URLParam(r, "clientID"), payload.Action, payload.Amount)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	shared.Audit(r, h.Audit, audit.ActionQuickPay, "client", result.Client.ID, payload, result)
	api.Success(w, result, reqID)
}

func (h *Handler) handleBulkPayment(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())
	var payload bulkPaymentPayload
	if !shared.Decode(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	if v.Reject(w, reqID) {
		return
	}
	clientID := chi.URLParam(r, "clientID")
	result, err := h.Service.BulkPayment(r.Context(), user.ShopName, clientID, payload.Payments)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	shared.Audit(r, h.Audit, audit.ActionBulkPay, "client", clientID, payload, result)
	if result.Succeeded < len(payload.Payments) {
		api.Partial(w, result, reqID)
		return
	}
	api.Success(w, result, reqID)
}

func (h *Handler) handleAdjustPayment(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())
	clientID := chi.URLParam(r, "clientID")
	var payload adjustPaymentPayload
	if !shared.Decode(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	if v.Reject(w, reqID) {
		return
	}
	before, err := h.Service.GetClient(r.Context(), user.ShopName, clientID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	client, err := h.Service.AdjustClientPayment(r.Context(), user.ShopName, clientID, payload.ReceivedPayments, payload.Notes, user.UserID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	shared.Audit(r, h.Audit, audit.ActionAdjust, "client", client.ID, before, client)
	api.Success(w, client, reqID)
}

func (h *Handler) handleWorkHistory(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	history, err := h.Service.WorkHistory(r.Context(), user.ShopName, chi.URLParam(r, "clientID"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	api.Success(w, history, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleRecompute(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	client, err := h.Service.RecomputeClientTotals(r.Context(), user.ShopName, chi.URLParam(r, "clientID"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	shared.Audit(r, h.Audit, audit.ActionRecalc, "client", client.ID, nil, client)
	api.Success(w, client, middleware.GetRequestID(r.Context()))
}
