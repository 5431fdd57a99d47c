package cataloghandler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"shopledger/internal/domain/audit"
	"shopledger/internal/domain/catalog"
	"shopledger/internal/domain/identity"
	"shopledger/internal/transport/http/api"
	"shopledger/internal/transport/http/middleware"
	"shopledger/internal/transport/http/shared"
)

type Handler struct {
	Service *catalog.Service
	Audit   shared.AuditRecorder
}

func NewHandler(service *catalog.Service, audit shared.AuditRecorder) *Handler {
	return &Handler{Service: service, Audit: audit}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	owner := middleware.RequirePermission(identity.PermLedgerWrite)

	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.With(owner).Post("/", h.handleCreate)
		r.With(owner).Post("/initialize", h.handleInitialize)
		r.With(owner).Put("/{productID}", h.handleUpdate)
		r.With(owner).Delete("/{productID}", h.handleDeactivate)
	})
}

// handleList serves active products; ?all=true adds inactive ones.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	products, err := h.Service.List(r.Context(), user.ShopName, r.URL.Query().Get("all") == "true")
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if products == nil {
		products = []catalog.Product{}
	}
	api.Success(w, products, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())
	var in catalog.ProductInput
	if !shared.Decode(w, r, &in, reqID) {
		return
	}
	v := shared.NewValidator()
	v.Struct(in)
	if v.Reject(w, reqID) {
		return
	}
	created, err := h.Service.Create(r.Context(), user.ShopName, in)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	shared.Audit(r, h.Audit, audit.ActionCreate, "product", created.ID, nil, created)
	api.Created(w, created, reqID)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())
	var in catalog.ProductUpdate
	if !shared.Decode(w, r, &in, reqID) {
		return
	}
	v := shared.NewValidator()
	v.Struct(in)
	if v.Reject(w, reqID) {
		return
	}
	id := chi.URLParam(r, "productID")
	updated, err := h.Service.Update(r.Context(), user.ShopName, id, in)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	shared.Audit(r, h.Audit, audit.ActionUpdate, "product", id, in, updated)
	api.Success(w, updated, reqID)
}

func (h *Handler) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	id := chi.URLParam(r, "productID")
	product, err := h.Service.Deactivate(r.Context(), user.ShopName, id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	shared.Audit(r, h.Audit, audit.ActionDelete, "product", id, nil, product)
	api.Success(w, product, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleInitialize(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	result, err := h.Service.Initialize(r.Context(), user.ShopName)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	shared.Audit(r, h.Audit, audit.ActionCreate, "product", "defaults", nil, result)
	api.Success(w, result, middleware.GetRequestID(r.Context()))
}

func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	reqID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, catalog.ErrProductNotFound):
		api.Fail(w, http.StatusNotFound, "product_not_found", err.Error(), reqID)
	case errors.Is(err, catalog.ErrDuplicateProduct):
		api.Fail(w, http.StatusConflict, "product_exists", err.Error(), reqID)
	case errors.Is(err, catalog.ErrInvalidType):
		api.Fail(w, http.StatusBadRequest, "invalid_product_type", err.Error(), reqID)
	case errors.Is(err, catalog.ErrNameRequired):
		api.Fail(w, http.StatusBadRequest, "name_required", err.Error(), reqID)
	default:
		slog.Error("catalog request failed", "path", r.URL.Path, "requestId", reqID, "err", err)
		api.Fail(w, http.StatusInternalServerError, "internal_error", "request could not be completed", reqID)
	}
}
