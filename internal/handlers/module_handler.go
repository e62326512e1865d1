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

// ModuleService is the interface that wraps the module operations
type ModuleService interface {
	// Create adds a module to a course
	Create(ctx context.Context, principal authservice.Principal, courseID int, req *models.CreateModuleRequest) models.OperationResult
	// Update renames and/or reorders a module
	Update(ctx context.Context, principal authservice.Principal, courseID, moduleID int, req *models.UpdateModuleRequest) models.OperationResult
	// Delete removes a module together with its lessons
	Delete(ctx context.Context, principal authservice.Principal, courseID, moduleID int) models.OperationResult
}

// ModuleHandler handles HTTP requests for module operations
type ModuleHandler struct {
	handlers.BaseHandler
	service ModuleService
}

// NewModuleHandler creates a new module handler
func NewModuleHandler(svc ModuleService, logger *zap.Logger) *ModuleHandler {
	return &ModuleHandler{
		service:     svc,
		BaseHandler: handlers.BaseHandler{Logger: logger},
	}
}

// RegisterRoutes registers module routes on an authenticated router
func (h *ModuleHandler) RegisterRoutes(r chi.Router) {
	r.Post("/courses/{courseId}/modules", h.Create)
	r.Patch("/courses/{courseId}/modules/{moduleId}", h.Update)
	r.Delete("/courses/{courseId}/modules/{moduleId}", h.Delete)
}

// Create handles POST /admin/courses/{courseId}/modules
// @Summary Create a module
// @Tags modules
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param courseId path int true "Course ID"
// @Param request body models.CreateModuleRequest true "Module"
// @Success 201 {object} models.OperationResult
// @Failure 400 {object} models.OperationResult "Validation error"
// @Failure 403 {object} models.OperationResult "Insufficient permissions"
// @Failure 404 {object} models.OperationResult "Course not found"
// @Router /admin/courses/{courseId}/modules [post]
func (h *ModuleHandler) Create(w http.ResponseWriter, r *http.Request) {
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

	var req models.CreateModuleRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondResult(&h.BaseHandler, w, http.StatusCreated, h.service.Create(r.Context(), caller, courseID, &req))
}

// Update handles PATCH /admin/courses/{courseId}/modules/{moduleId}
// @Summary Update a module
// @Description Renames and/or reorders a module (partial update)
// @Tags modules
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param courseId path int true "Course ID"
// @Param moduleId path int true "Module ID"
// @Param request body models.UpdateModuleRequest true "Fields to change"
// @Success 200 {object} models.OperationResult
// @Failure 400 {object} models.OperationResult "Validation error"
// @Failure 403 {object} models.OperationResult "Insufficient permissions"
// @Failure 404 {object} models.OperationResult "Module not found"
// @Router /admin/courses/{courseId}/modules/{moduleId} [patch]
func (h *ModuleHandler) Update(w http.ResponseWriter, r *http.Request) {
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
	moduleID, err := pathID(r, "moduleId")
	if err != nil {
		h.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req models.UpdateModuleRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondResult(&h.BaseHandler, w, http.StatusOK, h.service.Update(r.Context(), caller, courseID, moduleID, &req))
}

// Delete handles DELETE /admin/courses/{courseId}/modules/{moduleId}
// @Summary Delete a module
// @Description Deletes a module with all of its lessons and schedules removal of their videos
// @Tags modules
// @Produce json
// @Security BearerAuth
// @Param courseId path int true "Course ID"
// @Param moduleId path int true "Module ID"
// @Success 200 {object} models.OperationResult
// @Failure 403 {object} models.OperationResult "Insufficient permissions"
// @Failure 404 {object} models.OperationResult "Module not found"
// @Router /admin/courses/{courseId}/modules/{moduleId} [delete]
func (h *ModuleHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
	moduleID, err := pathID(r, "moduleId")
	if err != nil {
		h.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondResult(&h.BaseHandler, w, http.StatusOK, h.service.Delete(r.Context(), caller, courseID, moduleID))
}
