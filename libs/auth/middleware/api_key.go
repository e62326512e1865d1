package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/courseforge/backend/libs/auth/service"
)

// SystemPrincipal is attached to requests authenticated by API key.
// It is used by schedulers and other services that trigger maintenance.
var SystemPrincipal = service.Principal{UserID: 0, Role: service.RoleAdmin}

// APIKeyMiddleware validates the X-API-Key header against the configured key
func APIKeyMiddleware(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			providedKey := r.Header.Get("X-API-Key")

			if apiKey == "" || subtle.ConstantTimeCompare([]byte(providedKey), []byte(apiKey)) != 1 {
				writeError(w, http.StatusUnauthorized, "invalid or missing API key")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), SystemPrincipal)))
		})
	}
}
