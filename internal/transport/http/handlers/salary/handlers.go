package salaryhandler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"shopledger/internal/domain/audit"
	"shopledger/internal/domain/identity"
	"shopledger/internal/domain/salary"
	"shopledger/internal/domain/work"
	"shopledger/internal/platform/jobs"
	"shopledger/internal/transport/http/api"
	"shopledger/internal/transport/http/middleware"
	"shopledger/internal/transport/http/shared"
)

type Ledger interface {
	List(ctx context.Context, shopName string, filter salary.EntryFilter) ([]salary.Entry, error)
	Employees(ctx context.Context, shopName string) ([]salary.Employee, error)
	Summary(ctx context.Context, shopName, employeeID string) (salary.Summary, error)
	CreateManualEntry(ctx context.Context, shopName string, in salary.ManualEntryInput) (salary.Entry, error)
	Pay(ctx context.Context, shopName, employeeID string, amount int64) (salary.Settlement, error)
	PayOne(ctx context.Context, shopName, entryID string) (salary.Entry, salary.Earnings, error)
	Sync(ctx context.Context, shopName string) (salary.SyncSummary, error)
	Statement(ctx context.Context, shopName, employeeID string) ([]byte, error)
	Register(ctx context.Context, shopName string) ([]byte, error)
}

type JobRunner interface {
	RunNow(ctx context.Context, jobType, shopName string, run func(context.Context) (any, error)) (any, error)
	ListRuns(ctx context.Context, shopName string, limit int) ([]jobs.Run, error)
}

type Handler struct {
	Ledger      Ledger
	Jobs        JobRunner
	Audit       shared.AuditRecorder
	Idempotency middleware.IdempotencyStore
}

func NewHandler(ledger Ledger, runner JobRunner, audit shared.AuditRecorder, idem middleware.IdempotencyStore) *Handler {
	return &Handler{Ledger: ledger, Jobs: runner, Audit: audit, Idempotency: idem}
}

type manualEntryPayload struct {
	salary.ManualEntryInput
	WorkDate string `json:"workDate"`
}

type payPayload struct {
	EmployeeID string `json:"employeeId" validate:"required,uuid"`
	Amount     int64  `json:"amount" validate:"gt=0"`
}

type payOneResult struct {
	Entry    salary.Entry    `json:"entry"`
	Earnings salary.Earnings `json:"earnings"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	manage := middleware.RequirePermission(identity.PermSalaryManage)

	r.Route("/salary", func(r chi.Router) {
		r.Use(middleware.RequirePermission(identity.PermSalaryReadOwn))
		r.Get("/", h.handleList)
		r.With(manage).Post("/", h.handleCreate)
		r.With(manage, middleware.Idempotent(h.Idempotency, "salary.pay")).Post("/pay", h.handlePay)
		r.With(manage, middleware.Idempotent(h.Idempotency, "salary.pay_one")).Post("/{entryID}/pay", h.handlePayOne)
		r.With(manage).Post("/sync", h.handleSync)
		r.With(manage).Get("/sync/runs", h.handleSyncRuns)
		r.With(manage).Get("/employees", h.handleEmployees)
		r.With(manage).Get("/register.xlsx", h.handleRegister)
		r.Get("/employees/{employeeID}/summary", h.handleSummary)
		r.Get("/employees/{employeeID}/statement.pdf", h.handleStatement)
	})
}

// handleList returns the shop's entries to managers and only the caller's
// own entries to everyone else.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	q := r.URL.Query()
	filter := salary.EntryFilter{
		EmployeeID: q.Get("employeeId"),
		Type:       q.Get("salaryType"),
		UnpaidOnly: q.Get("unpaid") == "true",
	}
	if !identity.HasPermission(user.Role, identity.PermSalaryManage) {
		filter.EmployeeID = user.UserID
	}
	if kind := q.Get("workType"); kind != "" {
		parsed, err := work.ParseKind(kind)
		if err != nil {
			shared.FailValidation(w, middleware.GetRequestID(r.Context()), []shared.ValidationIssue{{Field: "workType", Reason: "must be order or project"}})
			return
		}
		filter.Work = &work.Ref{Kind: parsed, ID: q.Get("workId")}
	}
	entries, err := h.Ledger.List(r.Context(), user.ShopName, filter)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	api.Success(w, entries, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())
	var payload manualEntryPayload
	if !shared.Decode(w, r, &payload, reqID) {
		return
	}
	in := payload.ManualEntryInput
	v := shared.NewValidator()
	v.Struct(in)
	v.Enum("salaryType", in.Type, salary.Types, "must be one of "+strings.Join(salary.Types, ", "))
	in.WorkDate = v.OptionalDate("workDate", payload.WorkDate)
	if v.Reject(w, reqID) {
		return
	}
	entry, err := h.Ledger.CreateManualEntry(r.Context(), user.ShopName, in)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	shared.Audit(r, h.Audit, audit.ActionCreate, "salary_entry", entry.ID, nil, entry)
	api.Created(w, entry, reqID)
}

func (h *Handler) handlePay(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())
	var payload payPayload
	if !shared.Decode(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	if v.Reject(w, reqID) {
		return
	}
	settlement, err := h.Ledger.Pay(r.Context(), user.ShopName, payload.EmployeeID, payload.Amount)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	shared.Audit(r, h.Audit, audit.ActionSettle, "employee", payload.EmployeeID, payload, settlement)
	api.Success(w, settlement, reqID)
}

func (h *Handler) handlePayOne(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	entry, earnings, err := h.Ledger.PayOne(r.Context(), user.ShopName, chi.URLParam(r, "entryID"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	shared.Audit(r, h.Audit, audit.ActionSettle, "salary_entry", entry.ID, nil, entry)
	api.Success(w, payOneResult{Entry: entry, Earnings: earnings}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSync(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())
	result, err := h.Jobs.RunNow(r.Context(), jobs.JobSalarySync, user.ShopName, func(ctx context.Context) (any, error) {
		return h.Ledger.Sync(ctx, user.ShopName)
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	shared.Audit(r, h.Audit, audit.ActionSync, "shop", user.ShopName, nil, result)
	if summary, ok := result.(salary.SyncSummary); ok && len(summary.Failures) > 0 {
		api.Partial(w, summary, reqID)
		return
	}
	api.Success(w, result, reqID)
}

func (h *Handler) handleSyncRuns(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = min(parsed, 100)
		}
	}
	runs, err := h.Jobs.ListRuns(r.Context(), user.ShopName, limit)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	api.Success(w, runs, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleEmployees(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	employees, err := h.Ledger.Employees(r.Context(), user.ShopName)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	api.Success(w, employees, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	user, employeeID, ok := h.employeeScope(w, r)
	if !ok {
		return
	}
	summary, err := h.Ledger.Summary(r.Context(), user.ShopName, employeeID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	api.Success(w, summary, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleStatement(w http.ResponseWriter, r *http.Request) {
	user, employeeID, ok := h.employeeScope(w, r)
	if !ok {
		return
	}
	pdf, err := h.Ledger.Statement(r.Context(), user.ShopName, employeeID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	api.Binary(w, "application/pdf", fmt.Sprintf("salary-%s.pdf", employeeID), pdf)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	book, err := h.Ledger.Register(r.Context(), user.ShopName)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	api.Binary(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "salary-register.xlsx", book)
}

// employeeScope lets managers read any employee and everyone else only themselves.
func (h *Handler) employeeScope(w http.ResponseWriter, r *http.Request) (identity.UserContext, string, bool) {
	user, _ := middleware.GetUser(r.Context())
	employeeID := chi.URLParam(r, "employeeID")
	if employeeID != user.UserID && !identity.HasPermission(user.Role, identity.PermSalaryManage) {
		api.Fail(w, http.StatusForbidden, "forbidden", "insufficient permissions", middleware.GetRequestID(r.Context()))
		return user, "", false
	}
	return user, employeeID, true
}

func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	reqID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, salary.ErrEmployeeNotFound):
		api.Fail(w, http.StatusNotFound, "employee_not_found", err.Error(), reqID)
	case errors.Is(err, salary.ErrEntryNotFound):
		api.Fail(w, http.StatusNotFound, "salary_entry_not_found", err.Error(), reqID)
	case errors.Is(err, salary.ErrAlreadyPaid):
		api.Fail(w, http.StatusConflict, "already_paid", salary.ErrAlreadyPaid.Error(), reqID)
	case errors.Is(err, salary.ErrInvalidAmount):
		api.Fail(w, http.StatusBadRequest, "invalid_amount", salary.ErrInvalidAmount.Error(), reqID)
	case errors.Is(err, salary.ErrInvalidType):
		api.Fail(w, http.StatusBadRequest, "invalid_salary_type", salary.ErrInvalidType.Error(), reqID)
	case errors.Is(err, work.ErrInvalidKind):
		api.Fail(w, http.StatusBadRequest, "invalid_work_type", work.ErrInvalidKind.Error(), reqID)
	default:
		slog.Error("salary request failed", "path", r.URL.Path, "requestId", reqID, "err", err)
		api.Fail(w, http.StatusInternalServerError, "internal_error", "request could not be completed", reqID)
	}
}
