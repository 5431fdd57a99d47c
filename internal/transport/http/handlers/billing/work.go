package billinghandler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"shopledger/internal/domain/audit"
	"shopledger/internal/domain/billing"
	"shopledger/internal/domain/identity"
	"shopledger/internal/domain/work"
	"shopledger/internal/transport/http/api"
	"shopledger/internal/transport/http/middleware"
	"shopledger/internal/transport/http/shared"
)

type orderPayload struct {
	billing.OrderInput
	OrderDate string `json:"orderDate"`
}

type projectPayload struct {
	billing.ProjectInput
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

type statusPayload struct {
	Status string `json:"status"`
}

type workPaymentPayload struct {
	ReceivedPayment int64 `json:"receivedPayment"`
}

func (h *Handler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())
	var payload orderPayload
	if !shared.Decode(w, r, &payload, reqID) {
		return
	}
	in := payload.OrderInput
	in.OrderName = strings.TrimSpace(in.OrderName)
	v := shared.NewValidator()
	v.Struct(in)
	in.OrderDate = v.OptionalDate("orderDate", payload.OrderDate)
	if in.ReceivedPayment > in.TotalAmount {
		v.Add("receivedPayment", "must not exceed totalAmount")
	}
	if v.Reject(w, reqID) {
		return
	}
	in.CreatedBy = user.UserID

	created, err := h.Service.CreateOrder(r.Context(), user.ShopName, in)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	shared.Audit(r, h.Audit, audit.ActionCreate, "order", created.Order.ID, nil, created.Order)
	if created.AccrualError != "" {
		api.Partial(w, created, reqID)
		return
	}
	api.Created(w, created, reqID)
}

func (h *Handler) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())
	var payload projectPayload
	if !shared.Decode(w, r, &payload, reqID) {
		return
	}
	in := payload.ProjectInput
	in.ProjectName = strings.TrimSpace(in.ProjectName)
	v := shared.NewValidator()
	v.Struct(in)
	in.StartDate = v.OptionalDate("startDate", payload.StartDate)
	in.EndDate = v.OptionalDate("endDate", payload.EndDate)
	v.DateOrder("startDate", in.StartDate, "endDate", in.EndDate)
	if in.ReceivedPayment > in.TotalAmount {
		v.Add("receivedPayment", "must not exceed totalAmount")
	}
	if v.Reject(w, reqID) {
		return
	}
	in.CreatedBy = user.UserID

	created, err := h.Service.CreateProject(r.Context(), user.ShopName, in)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	shared.Audit(r, h.Audit, audit.ActionCreate, "project", created.Project.ID, nil, created.Project)
	if created.AccrualError != "" {
		api.Partial(w, created, reqID)
		return
	}
	api.Created(w, created, reqID)
}

// handleListOrders serves the shop-wide list to owners and the caller's own
// assignments to everyone else.
func (h *Handler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	q := r.URL.Query()
	filter := billing.OrderFilter{
		ClientID:   q.Get("clientId"),
		Status:     q.Get("status"),
		AssignedTo: q.Get("assignedTo"),
	}
	if !identity.HasPermission(user.Role, identity.PermLedgerRead) {
		filter.AssignedTo = user.UserID
	}
	orders, err := h.Service.ListOrders(r.Context(), user.ShopName, filter)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	api.Success(w, orders, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListProjects(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	q := r.URL.Query()
	filter := billing.ProjectFilter{
		ClientID: q.Get("clientId"),
		Status:   q.Get("status"),
		EditorID: q.Get("editorId"),
	}
	if !identity.HasPermission(user.Role, identity.PermLedgerRead) {
		filter.EditorID = user.UserID
	}
	projects, err := h.Service.ListProjects(r.Context(), user.ShopName, filter)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	api.Success(w, projects, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	order, err := h.Service.GetOrder(r.Context(), user.ShopName, chi.URLParam(r, "orderID"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	api.Success(w, order, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetProject(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	project, err := h.Service.GetProject(r.Context(), user.ShopName, chi.URLParam(r, "projectID"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	api.Success(w, project, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleWorkStatus(w http.ResponseWriter, r *http.Request, user identity.UserContext, ref work.Ref) {
	reqID := middleware.GetRequestID(r.Context())
	var payload statusPayload
	if !shared.Decode(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	v.Required("status", payload.Status, "is required")
	v.Enum("status", payload.Status, billing.WorkStatuses, "must be one of "+strings.Join(billing.WorkStatuses, ", "))
	if v.Reject(w, reqID) {
		return
	}
	item, err := h.Service.UpdateWorkStatus(r.Context(), user.ShopName, ref, strings.ToLower(strings.TrimSpace(payload.Status)))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	shared.Audit(r, h.Audit, audit.ActionStatus, string(ref.Kind), ref.ID, nil, item)
	api.Success(w, item, reqID)
}

func (h *Handler) handleWorkPayment(w http.ResponseWriter, r *http.Request, user identity.UserContext, ref work.Ref) {
	reqID := middleware.GetRequestID(r.Context())
	var payload workPaymentPayload
	if !shared.Decode(w, r, &payload, reqID) {
		return
	}
	if payload.ReceivedPayment < 0 {
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "receivedPayment", Reason: "must be zero or greater"}})
		return
	}
	result, err := h.Service.SetWorkPayment(r.Context(), user.ShopName, ref, payload.ReceivedPayment)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	shared.Audit(r, h.Audit, audit.ActionPayment, string(ref.Kind), ref.ID, payload, result.Item)
	api.Success(w, result, reqID)
}

func (h *Handler) handleDeleteWork(w http.ResponseWriter, r *http.Request, user identity.UserContext, ref work.Ref) {
	deleted, err := h.Service.DeleteWork(r.Context(), user.ShopName, ref)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	shared.Audit(r, h.Audit, audit.ActionDelete, string(ref.Kind), ref.ID, deleted, nil)
	api.Success(w, deleted, middleware.GetRequestID(r.Context()))
}
