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

// LessonService is the interface that wraps the lesson mutation operations
type LessonService interface {
	// Upsert creates or updates a lesson in a module
	//
	// "ctx" is the context for the request.
	// "principal" is the authenticated caller.
	// "courseID" is the ID of the course.
	// "moduleID" is the ID of the module.
	// "lessonID" is the ID of the lesson, empty to create one with a generated ID.
	// "payload" is the lesson content.
	//
	// Returns the operation result.
	Upsert(ctx context.Context, principal authservice.Principal, courseID, moduleID int, lessonID string, payload *models.LessonPayload) models.OperationResult
	// Delete removes a lesson from a module
	//
	// "ctx" is the context for the request.
	// "principal" is the authenticated caller.
	// "courseID" is the ID of the course.
	// "moduleID" is the ID of the module.
	// "lessonID" is the ID of the lesson.
	//
	// Returns the operation result.
	Delete(ctx context.Context, principal authservice.Principal, courseID, moduleID int, lessonID string) models.OperationResult
	// Move transfers a lesson to another module of the same course
	//
	// "ctx" is the context for the request.
	// "principal" is the authenticated caller.
	// "courseID" is the ID of the course.
	// "lessonID" is the ID of the lesson.
	// "req" describes the source and destination modules.
	//
	// Returns the operation result.
	Move(ctx context.Context, principal authservice.Principal, courseID int, lessonID string, req *models.MoveLessonRequest) models.OperationResult
}

// LessonHandler handles HTTP requests for lesson mutations
type LessonHandler struct {
	handlers.BaseHandler
	service LessonService
}

// NewLessonHandler creates a new lesson handler
func NewLessonHandler(svc LessonService, logger *zap.Logger) *LessonHandler {
	return &LessonHandler{
		service:     svc,
		BaseHandler: handlers.BaseHandler{Logger: logger},
	}
}

// RegisterRoutes registers lesson routes on an authenticated router
func (h *LessonHandler) RegisterRoutes(r chi.Router) {
	r.Put("/courses/{courseId}/modules/{moduleId}/lessons", h.Upsert)
	r.Put("/courses/{courseId}/modules/{moduleId}/lessons/{lessonId}", h.Upsert)
	r.Delete("/courses/{courseId}/modules/{moduleId}/lessons/{lessonId}", h.Delete)
	r.Post("/courses/{courseId}/lessons/{lessonId}/move", h.Move)
}

// Upsert handles PUT /admin/courses/{courseId}/modules/{moduleId}/lessons/{lessonId}
// @Summary Create or update a lesson
// @Description Creates the lesson when it does not exist (a generated ID is used when lessonId is omitted), otherwise replaces its content. The course syllabus is rebuilt afterwards.
// @Tags lessons
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param courseId path int true "Course ID"
// @Param moduleId path int true "Module ID"
// @Param lessonId path string false "Lesson ID (UUID)"
// @Param request body models.LessonPayload true "Lesson content"
// @Success 200 {object} models.OperationResult
// @Failure 400 {object} models.OperationResult "Validation error"
// @Failure 403 {object} models.OperationResult "Insufficient permissions"
// @Failure 404 {object} models.OperationResult "Module not found"
// @Failure 409 {object} models.OperationResult "Lesson ID already used"
// @Failure 500 {object} models.OperationResult
// @Router /admin/courses/{courseId}/modules/{moduleId}/lessons/{lessonId} [put]
func (h *LessonHandler) Upsert(w http.ResponseWriter, r *http.Request) {
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

	var payload models.LessonPayload
	if err := h.DecodeJSON(r, &payload); err != nil {
		h.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result := h.service.Upsert(r.Context(), caller, courseID, moduleID, chi.URLParam(r, "lessonId"), &payload)
	respondResult(&h.BaseHandler, w, http.StatusOK, result)
}

// Delete handles DELETE /admin/courses/{courseId}/modules/{moduleId}/lessons/{lessonId}
// @Summary Delete a lesson
// @Description Deletes a lesson and schedules removal of its video. Deleting a missing lesson succeeds.
// @Tags lessons
// @Produce json
// @Security BearerAuth
// @Param courseId path int true "Course ID"
// @Param moduleId path int true "Module ID"
// @Param lessonId path string true "Lesson ID"
// @Success 200 {object} models.OperationResult
// @Failure 403 {object} models.OperationResult "Insufficient permissions"
// @Failure 500 {object} models.OperationResult
// @Router /admin/courses/{courseId}/modules/{moduleId}/lessons/{lessonId} [delete]
func (h *LessonHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

	result := h.service.Delete(r.Context(), caller, courseID, moduleID, chi.URLParam(r, "lessonId"))
	respondResult(&h.BaseHandler, w, http.StatusOK, result)
}

// Move handles POST /admin/courses/{courseId}/lessons/{lessonId}/move
// @Summary Move a lesson
// @Description Moves a lesson to another module of the same course, keeping its ID
// @Tags lessons
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param courseId path int true "Course ID"
// @Param lessonId path string true "Lesson ID"
// @Param request body models.MoveLessonRequest true "Source and destination"
// @Success 200 {object} models.OperationResult
// @Failure 400 {object} models.OperationResult "Validation error"
// @Failure 403 {object} models.OperationResult "Insufficient permissions"
// @Failure 404 {object} models.OperationResult "Lesson or destination module not found"
// @Failure 500 {object} models.OperationResult
// @Router /admin/courses/{courseId}/lessons/{lessonId}/move [post]
func (h *LessonHandler) Move(w http.ResponseWriter, r *http.Request) {
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

	var req models.MoveLessonRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result := h.service.Move(r.Context(), caller, courseID, chi.URLParam(r, "lessonId"), &req)
	respondResult(&h.BaseHandler, w, http.StatusOK, result)
}
