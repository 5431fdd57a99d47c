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

type paymentPayload struct {
	billing.PaymentInput
	PaymentDate string `json:"paymentDate"`
}

func (h *Handler) handleListPayments(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	q := r.URL.Query()
	payments, err := h.Service.ListPayments(r.Context(), user.ShopName, billing.PaymentFilter{
		OrderID:  q.Get("orderId"),
		ClientID: q.Get("clientId"),
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	api.Success(w, payments, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleRecordPayment(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())
	var payload paymentPayload
	if !shared.Decode(w, r, &payload, reqID) {
		return
	}
	in := payload.PaymentInput
	in.PaymentMethod = strings.ToLower(strings.TrimSpace(in.PaymentMethod))
	v := shared.NewValidator()
	v.Struct(in)
	in.PaymentDate = v.OptionalDate("paymentDate", payload.PaymentDate)
	if v.Reject(w, reqID) {
		return
	}
	in.ReceivedBy = user.UserID

	applied, err := h.Service.RecordPayment(r.Context(), user.ShopName, in)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	shared.Audit(r, h.Audit, audit.ActionPayment, "payment", applied.Payment.ID, nil, applied.Payment)
	api.Created(w, applied, reqID)
}

func (h *Handler) handleDeletePayment(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	applied, err := h.Service.DeletePayment(r.Context(), user.ShopName, chi.URLParam(r, "paymentID"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	shared.Audit(r, h.Audit, audit.ActionDelete, "payment", applied.Payment.ID, applied.Payment, nil)
	api.Success(w, applied, middleware.GetRequestID(r.Context()))
}
