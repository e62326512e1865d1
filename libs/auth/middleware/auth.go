package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/courseforge/backend/libs/auth/service"
)

type contextKey string

const principalKey contextKey = "principal"

// TokenVerifier turns an access token into a principal
type TokenVerifier interface {
	ValidateAccessToken(token string) (service.Principal, error)
}

// RoleMiddleware validates the access token and requires a role >= requiredRole
func RoleMiddleware(verifier TokenVerifier, requiredRole int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			principal, err := verifier.ValidateAccessToken(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			if principal.Role < requiredRole {
				writeError(w, http.StatusForbidden, "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

// WithPrincipal stores the verified principal in ctx
func WithPrincipal(ctx context.Context, principal service.Principal) context.Context {
	return context.WithValue(ctx, principalKey, principal)
}

// GetPrincipal retrieves the verified principal from context
func GetPrincipal(ctx context.Context) (service.Principal, bool) {
	principal, ok := ctx.Value(principalKey).(service.Principal)
	return principal, ok
}

// extractToken reads a bearer token from the Authorization header, falling back to the access_token cookie
func extractToken(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
	}

	if cookie, err := r.Cookie("access_token"); err == nil {
		return cookie.Value
	}
	return ""
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(`{"success":false,"message":"` + message + `"}`))
}
