package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"shopledger/internal/domain/identity"
)

// Resolver maps verified claims onto an internal user.
type Resolver interface {
	Resolve(ctx context.Context, claims identity.Claims) (identity.UserContext, error)
}

// Auth attaches the caller to the context when a valid bearer token is
// present. Requests without one pass through; RequireAuth rejects them.
// With a nil resolver the claims are trusted as they are.
func Auth(secret string, resolver Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			claims, err := identity.ParseToken(secret, token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			user := identity.UserContext{UserID: claims.UserID, ShopName: claims.ShopName, Role: claims.Role}
			if resolver != nil {
				user, err = resolver.Resolve(r.Context(), *claims)
				if err != nil {
					slog.Warn("token identity not resolved", "idp", claims.Provider, "err", err)
					next.ServeHTTP(w, r)
					return
				}
			}
			if user.UserID == "" || user.ShopName == "" {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}
