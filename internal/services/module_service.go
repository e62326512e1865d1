package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/courseforge/backend/internal/models"
	authservice "github.com/courseforge/backend/libs/auth/service"
	"go.uber.org/zap"
)

// ModuleCourseRepository defines the course methods used by module operations
type ModuleCourseRepository interface {
	OwnershipChecker
	// BumpStructureVersion marks the course tree as changed
	//
	// "ctx" is the context for the request.
	// "id" is the ID of the course.
	//
	// Returns an error wrapping models.ErrNotFound when the course does not exist.
	BumpStructureVersion(ctx context.Context, id int) error
}

// ModuleRepository defines methods for module data access
type ModuleRepository interface {
	// Create creates a new module
	//
	// "ctx" is the context for the request.
	// "module" is the module to create.
	//
	// Returns an error if any.
	Create(ctx context.Context, module *models.Module) error
	// GetByID retrieves a module of a course
	//
	// "ctx" is the context for the request.
	// "courseID" is the ID of the course.
	// "id" is the ID of the module.
	//
	// Returns the module, or an error wrapping models.ErrNotFound.
	GetByID(ctx context.Context, courseID, id int) (*models.Module, error)
	// Update updates the title and/or order of a module
	//
	// "ctx" is the context for the request.
	// "module" is the module to update; an empty title or negative order leaves the field unchanged.
	//
	// Returns an error if any.
	Update(ctx context.Context, module *models.Module) error
	// Delete deletes a module of a course
	//
	// "ctx" is the context for the request.
	// "courseID" is the ID of the course.
	// "id" is the ID of the module.
	//
	// Returns an error if any.
	Delete(ctx context.Context, courseID, id int) error
}

// ModuleLessonRepository defines the lesson methods used by module operations
type ModuleLessonRepository interface {
	// ListVideoURLsByModule returns the video URLs of a module's lessons
	//
	// "ctx" is the context for the request.
	// "moduleID" is the ID of the module.
	//
	// Returns the URLs and an error if any.
	ListVideoURLsByModule(ctx context.Context, moduleID int) ([]string, error)
	// DeleteByModule removes all lessons of a module
	//
	// "ctx" is the context for the request.
	// "moduleID" is the ID of the module.
	//
	// Returns the number of removed lessons and an error if any.
	DeleteByModule(ctx context.Context, moduleID int) (int64, error)
}

type moduleService struct {
	tx         Transactor
	courses    ModuleCourseRepository
	modules    ModuleRepository
	lessons    ModuleLessonRepository
	postCommit *PostCommit
	now        func() time.Time
	logger     *zap.Logger
}

// NewModuleService creates the module operations service
func NewModuleService(
	tx Transactor,
	courses ModuleCourseRepository,
	modules ModuleRepository,
	lessons ModuleLessonRepository,
	postCommit *PostCommit,
	logger *zap.Logger,
) *moduleService {
	return &moduleService{
		tx:         tx,
		courses:    courses,
		modules:    modules,
		lessons:    lessons,
		postCommit: postCommit,
		now:        func() time.Time { return time.Now().UTC() },
		logger:     logger,
	}
}

// Create adds a module to a course
func (s *moduleService) Create(ctx context.Context, principal authservice.Principal, courseID int, req *models.CreateModuleRequest) models.OperationResult {
	if err := authorizeCourse(ctx, s.courses, principal, courseID); err != nil {
		return failureResult(s.logger, "create module", err)
	}
	if err := validateStruct(req); err != nil {
		return failureResult(s.logger, "create module", err)
	}

	now := s.now()
	module := &models.Module{
		CourseID:  courseID,
		Title:     req.Title,
		Order:     req.Order,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.courses.BumpStructureVersion(ctx, courseID); err != nil {
			return err
		}
		return s.modules.Create(ctx, module)
	})
	if err != nil {
		return failureResult(s.logger, "create module", err)
	}

	s.postCommit.Run(ctx, courseID)

	return models.OperationResult{Success: true, ID: strconv.Itoa(module.ID), Message: "module created"}
}

// Update renames and/or reorders a module
func (s *moduleService) Update(ctx context.Context, principal authservice.Principal, courseID, moduleID int, req *models.UpdateModuleRequest) models.OperationResult {
	if err := authorizeCourse(ctx, s.courses, principal, courseID); err != nil {
		return failureResult(s.logger, "update module", err)
	}
	if err := validateStruct(req); err != nil {
		return failureResult(s.logger, "update module", err)
	}
	if req.Title == nil && req.Order == nil {
		return failureResult(s.logger, "update module", fieldError("title", "title or order is required"))
	}

	module := &models.Module{ID: moduleID, CourseID: courseID, Order: -1, UpdatedAt: s.now()}
	if req.Title != nil {
		module.Title = *req.Title
	}
	if req.Order != nil {
		module.Order = *req.Order
	}

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.modules.GetByID(ctx, courseID, moduleID); err != nil {
			return err
		}
		if err := s.modules.Update(ctx, module); err != nil {
			return err
		}
		return s.courses.BumpStructureVersion(ctx, courseID)
	})
	if err != nil {
		return failureResult(s.logger, "update module", err)
	}

	s.postCommit.Run(ctx, courseID)

	return models.OperationResult{Success: true, ID: strconv.Itoa(moduleID), Message: "module updated"}
}

// Delete removes a module with all of its lessons; their videos are cleaned up after commit
func (s *moduleService) Delete(ctx context.Context, principal authservice.Principal, courseID, moduleID int) models.OperationResult {
	if err := authorizeCourse(ctx, s.courses, principal, courseID); err != nil {
		return failureResult(s.logger, "delete module", err)
	}

	var videos []string
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.modules.GetByID(ctx, courseID, moduleID); err != nil {
			return err
		}

		var err error
		videos, err = s.lessons.ListVideoURLsByModule(ctx, moduleID)
		if err != nil {
			return err
		}

		removed, err := s.lessons.DeleteByModule(ctx, moduleID)
		if err != nil {
			return err
		}
		if err := s.modules.Delete(ctx, courseID, moduleID); err != nil {
			return err
		}

		s.logger.Debug("module deleted",
			zap.Int("course_id", courseID),
			zap.Int("module_id", moduleID),
			zap.Int64("lessons", removed),
		)
		return s.courses.BumpStructureVersion(ctx, courseID)
	})
	if err != nil {
		return failureResult(s.logger, "delete module", err)
	}

	s.postCommit.Run(ctx, courseID, videos...)

	return models.OperationResult{Success: true, ID: strconv.Itoa(moduleID), Message: fmt.Sprintf("module deleted with %d videos scheduled for cleanup", len(videos))}
}
