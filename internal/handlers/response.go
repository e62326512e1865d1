package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/courseforge/backend/internal/models"
	authMiddleware "github.com/courseforge/backend/libs/auth/middleware"
	authservice "github.com/courseforge/backend/libs/auth/service"
	"github.com/courseforge/backend/libs/handlers"
	"github.com/go-chi/chi/v5"
)

// statusForKind maps a failure kind to its HTTP status
func statusForKind(kind models.FailureKind) int {
	switch kind {
	case models.FailureValidation:
		return http.StatusBadRequest
	case models.FailureForbidden:
		return http.StatusForbidden
	case models.FailureNotFound:
		return http.StatusNotFound
	case models.FailureConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondResult writes an operation result with okStatus on success
func respondResult(h *handlers.BaseHandler, w http.ResponseWriter, okStatus int, result models.OperationResult) {
	if result.Success {
		h.RespondJSON(w, okStatus, result)
		return
	}
	h.RespondJSON(w, statusForKind(result.Kind), result)
}

// principal returns the caller attached by the auth middleware
func principal(r *http.Request) (authservice.Principal, bool) {
	return authMiddleware.GetPrincipal(r.Context())
}

// pathID parses a positive integer path parameter
func pathID(r *http.Request, name string) (int, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}
