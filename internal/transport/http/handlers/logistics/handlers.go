package logisticshandler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"shopledger/internal/domain/audit"
	"shopledger/internal/domain/billing"
	"shopledger/internal/domain/identity"
	"shopledger/internal/domain/logistics"
	"shopledger/internal/domain/work"
	"shopledger/internal/transport/http/api"
	"shopledger/internal/transport/http/middleware"
	"shopledger/internal/transport/http/shared"
)

type Handler struct {
	Service *logistics.Service
	Audit   shared.AuditRecorder
}

func NewHandler(service *logistics.Service, audit shared.AuditRecorder) *Handler {
	return &Handler{Service: service, Audit: audit}
}

type transportPayload struct {
	logistics.TransportInput
	TransportDate string `json:"transportDate"`
}

type statusPayload struct {
	Status string `json:"status"`
}

type assignPayload struct {
	TransporterID string `json:"transporterId" validate:"required,uuid"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	owner := middleware.RequirePermission(identity.PermLedgerWrite)

	r.Route("/transports", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.With(owner).Post("/", h.handleCreate)
		r.Put("/{transportID}/status", h.handleStatus)
		r.With(owner).Put("/{transportID}/assign", h.handleAssign)
	})
}

func viewerOf(user identity.UserContext) logistics.Viewer {
	return logistics.Viewer{UserID: user.UserID, Owner: identity.HasPermission(user.Role, identity.PermLedgerRead)}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	transports, err := h.Service.List(r.Context(), user.ShopName, viewerOf(user))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	api.Success(w, transports, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())
	var payload transportPayload
	if !shared.Decode(w, r, &payload, reqID) {
		return
	}
	in := payload.TransportInput
	v := shared.NewValidator()
	v.Struct(in)
	in.TransportDate = v.OptionalDate("transportDate", payload.TransportDate)
	if in.DistanceKm.IsNegative() {
		v.Add("distanceKm", "must not be negative")
	}
	if (in.WorkID == "") != (in.WorkType == "") {
		v.Add("workId", "workId and workType go together")
	}
	if v.Reject(w, reqID) {
		return
	}
	in.CreatedBy = user.UserID

	created, err := h.Service.Create(r.Context(), user.ShopName, in)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	shared.Audit(r, h.Audit, audit.ActionCreate, "transport", created.ID, nil, created)
	api.Created(w, created, reqID)
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())
	var payload statusPayload
	if !shared.Decode(w, r, &payload, reqID) {
		return
	}
	payload.Status = strings.ToLower(strings.TrimSpace(payload.Status))
	v := shared.NewValidator()
	v.Required("status", payload.Status, "is required")
	v.Enum("status", payload.Status, logistics.Statuses, "must be pending, in_transit, delivered or cancelled")
	if v.Reject(w, reqID) {
		return
	}
	id := chi.URLParam(r, "transportID")
	updated, err := h.Service.UpdateStatus(r.Context(), user.ShopName, id, payload.Status, viewerOf(user))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	shared.Audit(r, h.Audit, audit.ActionStatus, "transport", id, payload, updated)
	api.Success(w, updated, reqID)
}

func (h *Handler) handleAssign(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())
	var payload assignPayload
	if !shared.Decode(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	if v.Reject(w, reqID) {
		return
	}
	id := chi.URLParam(r, "transportID")
	updated, err := h.Service.Assign(r.Context(), user.ShopName, id, payload.TransporterID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	shared.Audit(r, h.Audit, audit.ActionUpdate, "transport", id, payload, updated)
	api.Success(w, updated, reqID)
}

var badRequestErrors = map[error]string{
	logistics.ErrInvalidStatus:     "invalid_status",
	logistics.ErrInvalidFee:        "invalid_fee",
	logistics.ErrInvalidDistance:   "invalid_distance",
	logistics.ErrLocationsRequired: "locations_required",
	logistics.ErrNotTransporter:    "not_transporter",
	logistics.ErrDerivedTransport:  "order_transport",
	billing.ErrWorkMismatch:        "work_mismatch",
	work.ErrInvalidKind:            "invalid_work_type",
}

var notFoundErrors = map[error]string{
	logistics.ErrTransportNotFound: "transport_not_found",
	billing.ErrOrderNotFound:       "order_not_found",
	billing.ErrProjectNotFound:     "project_not_found",
	identity.ErrUserNotFound:       "user_not_found",
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
	slog.Error("transport request failed", "path", r.URL.Path, "requestId", reqID, "err", err)
	api.Fail(w, http.StatusInternalServerError, "internal_error", "request could not be completed", reqID)
}
