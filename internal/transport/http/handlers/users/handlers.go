package usershandler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"shopledger/internal/domain/audit"
	"shopledger/internal/domain/identity"
	"shopledger/internal/transport/http/api"
	"shopledger/internal/transport/http/middleware"
	"shopledger/internal/transport/http/shared"
)

type Handler struct {
	Service *identity.Service
	Audit   shared.AuditRecorder
}

func NewHandler(service *identity.Service, audit shared.AuditRecorder) *Handler {
	return &Handler{Service: service, Audit: audit}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/users", func(r chi.Router) {
		r.With(middleware.RequireAuth).Get("/me", h.handleMe)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequirePermission(identity.PermUsersManage))
			r.Get("/", h.handleList)
			r.Post("/", h.handleCreate)
			r.Get("/{userID}", h.handleGet)
			r.Post("/{userID}/identities", h.handleLink)
		})
	})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	me, err := h.Service.GetUser(r.Context(), user.ShopName, user.UserID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	api.Success(w, map[string]any{
		"user":        me,
		"permissions": identity.RolePermissions[me.Role],
	}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	users, err := h.Service.ListUsers(r.Context(), user.ShopName)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	api.Success(w, users, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	found, err := h.Service.GetUser(r.Context(), user.ShopName, chi.URLParam(r, "userID"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	api.Success(w, found, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())
	var in identity.UserInput
	if !shared.Decode(w, r, &in, reqID) {
		return
	}
	in.FirstName = strings.TrimSpace(in.FirstName)
	v := shared.NewValidator()
	v.Struct(in)
	v.Enum("role", in.Role, identity.Roles, "must be one of "+strings.Join(identity.Roles, ", "))
	if v.Reject(w, reqID) {
		return
	}
	created, err := h.Service.CreateUser(r.Context(), user.ShopName, in)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	shared.Audit(r, h.Audit, audit.ActionCreate, "user", created.ID, nil, created)
	api.Created(w, created, reqID)
}

func (h *Handler) handleLink(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())
	userID := chi.URLParam(r, "userID")
	var in identity.LinkInput
	if !shared.Decode(w, r, &in, reqID) {
		return
	}
	v := shared.NewValidator()
	v.Struct(in)
	if v.Reject(w, reqID) {
		return
	}
	if err := h.Service.LinkIdentity(r.Context(), user.ShopName, userID, in); err != nil {
		writeDomainError(w, r, err)
		return
	}
	shared.Audit(r, h.Audit, audit.ActionUpdate, "user", userID, nil, map[string]string{"provider": in.Provider})
	api.Success(w, map[string]string{"status": "linked"}, reqID)
}

func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	reqID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, identity.ErrUserNotFound):
		api.Fail(w, http.StatusNotFound, "user_not_found", err.Error(), reqID)
	case errors.Is(err, identity.ErrInvalidRole):
		api.Fail(w, http.StatusBadRequest, "invalid_role", err.Error(), reqID)
	case errors.Is(err, identity.ErrEmailTaken):
		api.Fail(w, http.StatusConflict, "email_taken", err.Error(), reqID)
	default:
		slog.Error("user request failed", "path", r.URL.Path, "requestId", reqID, "err", err)
		api.Fail(w, http.StatusInternalServerError, "internal_error", "request could not be completed", reqID)
	}
}
