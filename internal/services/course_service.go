package services

import (
	"context"
	"strconv"
	"time"

	"github.com/courseforge/backend/internal/models"
	authservice "github.com/courseforge/backend/libs/auth/service"
	"go.uber.org/zap"
)

// CourseRepository defines methods for course data access
type CourseRepository interface {
	// Create creates a new course with an empty aggregate
	//
	// "ctx" is the context for the request.
	// "course" is the course to create.
	//
	// Returns an error wrapping models.ErrConflict when the slug is taken, or another error if any.
	Create(ctx context.Context, course *models.Course) error
	// GetByID retrieves a course with its aggregate fields
	//
	// "ctx" is the context for the request.
	// "id" is the ID of the course.
	//
	// Returns the course, or an error wrapping models.ErrNotFound.
	GetByID(ctx context.Context, id int) (*models.Course, error)
	// GetAggregateStamp reads the current revision of the aggregate row
	//
	// "ctx" is the context for the request.
	// "id" is the ID of the course.
	//
	// Returns the stamp, or an error wrapping models.ErrNotFound.
	GetAggregateStamp(ctx context.Context, id int) (models.AggregateStamp, error)
}

// CourseReadCache keeps serialized course aggregates for readers
type CourseReadCache interface {
	// GetCourse returns the cached course, or nil on a miss
	GetCourse(ctx context.Context, id int) (*models.Course, error)
	// SetCourse stores a course
	SetCourse(ctx context.Context, course *models.Course) error
	// InvalidateCourse drops the cached course
	InvalidateCourse(ctx context.Context, courseID int) error
}

type courseService struct {
	repo   CourseRepository
	cache  CourseReadCache
	now    func() time.Time
	logger *zap.Logger
}

// NewCourseService creates the course service. cache may be nil.
func NewCourseService(repo CourseRepository, cache CourseReadCache, logger *zap.Logger) *courseService {
	return &courseService{
		repo:   repo,
		cache:  cache,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger,
	}
}

// Create creates a course owned by the caller. Admins may create a course for another author.
func (s *courseService) Create(ctx context.Context, principal authservice.Principal, req *models.CreateCourseRequest) models.OperationResult {
	if principal.Role < authservice.RoleTutor {
		return failureResult(s.logger, "create course", ErrForbidden)
	}
	if err := validateStruct(req); err != nil {
		return failureResult(s.logger, "create course", err)
	}

	authorID := principal.UserID
	if req.AuthorID != 0 && req.AuthorID != principal.UserID {
		if !principal.IsAdmin() {
			return failureResult(s.logger, "create course", ErrForbidden)
		}
		authorID = req.AuthorID
	}

	now := s.now()
	course := &models.Course{
		AuthorID:      authorID,
		Slug:          req.Slug,
		Title:         req.Title,
		TotalDuration: FormatDuration(0),
		Syllabus:      []models.SyllabusItem{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Create(ctx, course); err != nil {
		return failureResult(s.logger, "create course", err)
	}

	return models.OperationResult{Success: true, ID: strconv.Itoa(course.ID), Message: "course created"}
}

// Get returns a course with its syllabus, served from the cache when possible
func (s *courseService) Get(ctx context.Context, id int) (*models.Course, error) {
	if s.cache != nil {
		cached, err := s.cache.GetCourse(ctx, id)
		if err != nil {
			s.logger.Warn("course cache read failed", zap.Int("course_id", id), zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	course, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.fillCache(ctx, course)
	}
	return course, nil
}

// fillCache stores course, then drops the entry again if the row moved on
// since it was read. Writers save the aggregate before invalidating, so a
// stale entry is removed either here or by the writer.
func (s *courseService) fillCache(ctx context.Context, course *models.Course) {
	if err := s.cache.SetCourse(ctx, course); err != nil {
		s.logger.Warn("course cache write failed", zap.Int("course_id", course.ID), zap.Error(err))
		return
	}

	stamp, err := s.repo.GetAggregateStamp(ctx, course.ID)
	if err == nil && stamp.Equal(course.Stamp()) {
		return
	}

	s.logger.Debug("dropping course cache entry read before a rebuild", zap.Int("course_id", course.ID), zap.Error(err))
	if err := s.cache.InvalidateCourse(ctx, course.ID); err != nil {
		s.logger.Warn("course cache invalidation failed", zap.Int("course_id", course.ID), zap.Error(err))
	}
}
