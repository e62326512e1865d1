package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/courseforge/backend/internal/models"
	authservice "github.com/courseforge/backend/libs/auth/service"
	"github.com/courseforge/backend/libs/handlers"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CourseService is the interface that wraps the course operations
type CourseService interface {
	// Create creates a course owned by the caller
	//
	// "ctx" is the context for the request.
	// "principal" is the authenticated caller.
	// "req" is the course to create.
	//
	// Returns the operation result with the new course ID.
	Create(ctx context.Context, principal authservice.Principal, req *models.CreateCourseRequest) models.OperationResult
	// Get returns a course with its aggregate and syllabus
	//
	// "ctx" is the context for the request.
	// "id" is the ID of the course.
	//
	// Returns the course, or an error wrapping models.ErrNotFound.
	Get(ctx context.Context, id int) (*models.Course, error)
}

// CourseHandler handles HTTP requests for courses
type CourseHandler struct {
	handlers.BaseHandler
	service CourseService
}

// NewCourseHandler creates a new course handler
func NewCourseHandler(svc CourseService, logger *zap.Logger) *CourseHandler {
	return &CourseHandler{
		service:     svc,
		BaseHandler: handlers.BaseHandler{Logger: logger},
	}
}

// RegisterRoutes registers course routes on an authenticated router
func (h *CourseHandler) RegisterRoutes(r chi.Router) {
	r.Post("/courses", h.Create)
}

// RegisterPublicRoutes registers routes that need no authentication
func (h *CourseHandler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/courses/{courseId}", h.Get)
}

// Create handles POST /admin/courses
// @Summary Create a course
// @Description Creates an empty course. Admins may set authorId to create a course for another tutor.
// @Tags courses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CreateCourseRequest true "Course"
// @Success 201 {object} models.OperationResult
// @Failure 400 {object} models.OperationResult "Validation error"
// @Failure 403 {object} models.OperationResult "Insufficient permissions"
// @Failure 409 {object} models.OperationResult "Slug already taken"
// @Router /admin/courses [post]
func (h *CourseHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller, ok := principal(r)
	if !ok {
		h.RespondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req models.CreateCourseRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondResult(&h.BaseHandler, w, http.StatusCreated, h.service.Create(r.Context(), caller, &req))
}

// Get handles GET /courses/{courseId}
// @Summary Get a course
// @Description Returns a course with its counters and syllabus
// @Tags courses
// @Produce json
// @Param courseId path int true "Course ID"
// @Success 200 {object} models.Course
// @Failure 400 {object} handlers.ErrorResponse "Invalid course ID"
// @Failure 404 {object} handlers.ErrorResponse "Course not found"
// @Failure 500 {object} handlers.ErrorResponse
// @Router /courses/{courseId} [get]
func (h *CourseHandler) Get(w http.ResponseWriter, r *http.Request) {
	courseID, err := pathID(r, "courseId")
	if err != nil {
		h.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	course, err := h.service.Get(r.Context(), courseID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			h.RespondError(w, http.StatusNotFound, "course not found")
			return
		}
		h.Logger.Error("failed to get course", zap.Int("course_id", courseID), zap.Error(err))
		h.RespondError(w, http.StatusInternalServerError, "failed to get course")
		return
	}

	h.RespondJSON(w, http.StatusOK, course)
}
