package handlers

import (
	"context"
	"net/http"

	"github.com/courseforge/backend/internal/models"
	authservice "github.com/courseforge/backend/libs/auth/service"
	"github.com/courseforge/backend/libs/handlers"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// MaintenanceService is the interface that wraps drift repair
type MaintenanceService interface {
	// ResyncCourse rebuilds the aggregate of one course
	ResyncCourse(ctx context.Context, principal authservice.Principal, courseID int) models.ResyncResult
	// ResyncAll rebuilds the aggregate of every course
	ResyncAll(ctx context.Context) (*models.ResyncAllReport, error)
}

// MaintenanceHandler handles HTTP requests for drift repair
type MaintenanceHandler struct {
	handlers.BaseHandler
	service MaintenanceService
}

// NewMaintenanceHandler creates a new maintenance handler
func NewMaintenanceHandler(svc MaintenanceService, logger *zap.Logger) *MaintenanceHandler {
	return &MaintenanceHandler{
		service:     svc,
		BaseHandler: handlers.BaseHandler{Logger: logger},
	}
}

// RegisterRoutes registers the admin resync route on an authenticated router
func (h *MaintenanceHandler) RegisterRoutes(r chi.Router) {
	r.Post("/courses/{courseId}/resync", h.ResyncCourse)
}

// RegisterInternalRoutes registers resync routes for service-to-service calls
func (h *MaintenanceHandler) RegisterInternalRoutes(r chi.Router) {
	r.Post("/courses/resync", h.ResyncAll)
	r.Post("/courses/{courseId}/resync", h.ResyncCourse)
}

// ResyncCourse handles POST /admin/courses/{courseId}/resync
// @Summary Resync a course
// @Description Recomputes the course counters and syllabus from its modules and lessons. Admin only.
// @Tags maintenance
// @Produce json
// @Security BearerAuth
// @Param courseId path int true "Course ID"
// @Success 200 {object} models.ResyncResult
// @Failure 403 {object} models.ResyncResult "Admin role required"
// @Failure 404 {object} models.ResyncResult "Course not found"
// @Failure 500 {object} models.ResyncResult
// @Router /admin/courses/{courseId}/resync [post]
func (h *MaintenanceHandler) ResyncCourse(w http.ResponseWriter, r *http.Request) {
	caller, ok := principal(r)
	if !ok {
		h.RespondError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	courseID, err := pathID(r, "courseId")
	if err != nil {
		h.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result := h.service.ResyncCourse(r.Context(), caller, courseID)
	status := http.StatusOK
	if !result.Success {
		status = statusForKind(result.Kind)
	}
	h.RespondJSON(w, status, result)
}

// ResyncAll handles POST /internal/courses/resync
// @Summary Resync every course
// @Description Rebuilds all course aggregates and reports the courses that failed
// @Tags maintenance
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} models.ResyncAllReport
// @Failure 500 {object} handlers.ErrorResponse
// @Router /internal/courses/resync [post]
func (h *MaintenanceHandler) ResyncAll(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.ResyncAll(r.Context())
	if err != nil {
		h.Logger.Error("failed to resync courses", zap.Error(err))
		h.RespondError(w, http.StatusInternalServerError, "failed to resync courses")
		return
	}

	h.RespondJSON(w, http.StatusOK, report)
}
