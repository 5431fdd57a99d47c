package billinghandler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"shopledger/internal/domain/billing"
	"shopledger/internal/domain/identity"
	"shopledger/internal/domain/work"
	"shopledger/internal/transport/http/api"
	"shopledger/internal/transport/http/middleware"
	"shopledger/internal/transport/http/shared"
)

type Handler struct {
	Service     *billing.Service
	Audit       shared.AuditRecorder
	Idempotency middleware.IdempotencyStore
}

func NewHandler(service *billing.Service, audit shared.AuditRecorder, idem middleware.IdempotencyStore) *Handler {
	return &Handler{Service: service, Audit: audit, Idempotency: idem}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	owner := middleware.RequirePermission(identity.PermLedgerWrite)
	reader := middleware.RequirePermission(identity.PermLedgerRead)

	r.Route("/clients", func(r chi.Router) {
		r.With(reader).Get("/", h.handleListClients)
		r.With(owner).Post("/", h.handleCreateClient)
		r.With(reader).Get("/{clientID}", h.handleGetClient)
		r.With(owner).Put("/{clientID}", h.handleUpdateClient)
		r.With(owner, middleware.Idempotent(h.Idempotency, "clients.quick_payment")).Post("/{clientID}/quick-payment", h.handleQuickPayment)
		r.With(owner, middleware.Idempotent(h.Idempotency, "clients.bulk_payment")).Post("/{clientID}/bulk-payment", h.handleBulkPayment)
		r.With(owner).Put("/{clientID}/payment", h.handleAdjustPayment)
		r.With(reader).Get("/{clientID}/work-history", h.handleWorkHistory)
		r.With(owner).Post("/{clientID}/recompute", h.handleRecompute)
	})

	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.handleListOrders)
		r.With(owner).Post("/", h.handleCreateOrder)
		r.With(reader).Get("/{orderID}", h.handleGetOrder)
		r.With(owner).Patch("/{orderID}/status", h.workHandler(work.KindOrder, "orderID", h.handleWorkStatus))
		r.With(owner).Put("/{orderID}/payment", h.workHandler(work.KindOrder, "orderID", h.handleWorkPayment))
		r.With(owner).Delete("/{orderID}", h.workHandler(work.KindOrder, "orderID", h.handleDeleteWork))
	})

	r.Route("/projects", func(r chi.Router) {
		r.Get("/", h.handleListProjects)
		r.With(owner).Post("/", h.handleCreateProject)
		r.With(reader).Get("/{projectID}", h.handleGetProject)
		r.With(owner).Patch("/{projectID}/status", h.workHandler(work.KindProject, "projectID", h.handleWorkStatus))
		r.With(owner).Put("/{projectID}/payment", h.workHandler(work.KindProject, "projectID", h.handleWorkPayment))
		r.With(owner).Delete("/{projectID}", h.workHandler(work.KindProject, "projectID", h.handleDeleteWork))
	})

	r.Route("/payments", func(r chi.Router) {
		r.With(reader).Get("/", h.handleListPayments)
		r.With(owner, middleware.Idempotent(h.Idempotency, "payments.create")).Post("/", h.handleRecordPayment)
		r.With(owner).Delete("/{paymentID}", h.handleDeletePayment)
	})

	r.With(reader).Get("/dashboard/stats", h.handleStats)
	r.Get("/dashboard/alerts", h.handleAlerts)
}

type workFunc func(w http.ResponseWriter, r *http.Request, user identity.UserContext, ref work.Ref)

// workHandler resolves the caller and the work reference named by param.
func (h *Handler) workHandler(kind work.Kind, param string, fn workFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := middleware.GetUser(r.Context())
		if !ok {
			api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
			return
		}
		fn(w, r, user, work.Ref{Kind: kind, ID: chi.URLParam(r, param)})
	}
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	stats, err := h.Service.Stats(r.Context(), user.ShopName)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	api.Success(w, stats, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleAlerts(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	viewer := billing.Viewer{UserID: user.UserID, Owner: identity.HasPermission(user.Role, identity.PermLedgerRead)}
	alerts, err := h.Service.Alerts(r.Context(), user.ShopName, viewer)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	api.Success(w, alerts, middleware.GetRequestID(r.Context()))
}

var badRequestErrors = map[error]string{
	billing.ErrInvalidAmount:      "invalid_amount",
	billing.ErrAmountExceedsTotal: "amount_exceeds_total",
	billing.ErrInvalidAssignment:  "invalid_assignment",
	billing.ErrInvalidPercentage:  "invalid_percentage",
	billing.ErrInvalidStatus:      "invalid_status",
	billing.ErrInvalidAction:      "invalid_action",
	billing.ErrInvalidMethod:      "invalid_payment_method",
	billing.ErrEmptyBatch:         "empty_batch",
	billing.ErrWorkMismatch:       "work_mismatch",
	billing.ErrInvalidWorkID:      "invalid_work_id",
	work.ErrInvalidKind:           "invalid_work_type",
}

var notFoundErrors = map[error]string{
	billing.ErrClientNotFound:  "client_not_found",
	billing.ErrOrderNotFound:   "order_not_found",
	billing.ErrProjectNotFound: "project_not_found",
	billing.ErrPaymentNotFound: "payment_not_found",
}

func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	reqID := middleware.GetRequestID(r.Context())
	for target, code := range badRequestErrors {
		if errors.Is(err, target) {
			api.Fail(w, http.StatusBadRequest, code, target.Error(), reqID)
			return
		}
	}
	for target, code := range notFoundErrors {
		if errors.Is(err, target) {
			api.Fail(w, http.StatusNotFound, code, target.Error(), reqID)
			return
		}
	}
	if errors.Is(err, billing.ErrWorkHasPaidSalary) {
		api.Fail(w, http.StatusConflict, "work_has_paid_salary", billing.ErrWorkHasPaidSalary.Error(), reqID)
		return
	}
	slog.Error("billing request failed", "path", r.URL.Path, "requestId", reqID, "err", err)
	api.Fail(w, http.StatusInternalServerError, "internal_error", "request could not be completed", reqID)
}
