package shared

import (
	"context"
	"log/slog"
	"net/http"

	"shopledger/internal/transport/http/middleware"
)

type AuditRecorder interface {
	Record(ctx context.Context, shopName, actorID, action, entityType, entityID, requestID, ip string, before, after any) error
}

// Audit records a mutation made by the caller. A failed write is logged and
// never fails the request.
func Audit(r *http.Request, rec AuditRecorder, action, entityType, entityID string, before, after any) {
	if rec == nil {
		return
	}
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		return
	}
	err := rec.Record(r.Context(), user.ShopName, user.UserID, action, entityType, entityID,
		middleware.GetRequestID(r.Context()), middleware.ClientIP(r), before, after)
	if err != nil {
		slog.Warn("audit record failed", "action", action, "entityType", entityType, "entityId", entityID, "err", err)
	}
}
