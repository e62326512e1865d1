package services

import (
	"context"
	"fmt"
	"time"

	"github.com/courseforge/backend/internal/models"
	authservice "github.com/courseforge/backend/libs/auth/service"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LessonCourseRepository defines the course methods used by lesson mutations
type LessonCourseRepository interface {
	OwnershipChecker
	// BumpStructureVersion marks the course tree as changed
	//
	// "ctx" is the context for the request.
	// "id" is the ID of the course.
	//
	// Returns an error wrapping models.ErrNotFound when the course does not exist.
	BumpStructureVersion(ctx context.Context, id int) error
	// ApplyCounterDelta adjusts the lesson counters without a full rebuild
	//
	// "ctx" is the context for the request.
	// "id" is the ID of the course.
	// "lessonsDelta" is added to the lesson count.
	// "durationDelta" is added to the total duration in seconds.
	//
	// Returns an error if any.
	ApplyCounterDelta(ctx context.Context, id, lessonsDelta, durationDelta int) error
}

// LessonModuleRepository defines the module methods used by lesson mutations
type LessonModuleRepository interface {
	// Exists checks that a module belongs to a course
	//
	// "ctx" is the context for the request.
	// "courseID" is the ID of the course.
	// "id" is the ID of the module.
	//
	// Returns a boolean and an error if any.
	Exists(ctx context.Context, courseID, id int) (bool, error)
}

// LessonRepository defines methods for lesson data access
type LessonRepository interface {
	// Get retrieves a lesson of a course
	//
	// "ctx" is the context for the request.
	// "courseID" is the ID of the course.
	// "id" is the ID of the lesson.
	//
	// Returns the lesson, nil when it does not exist, and an error if any.
	Get(ctx context.Context, courseID int, id string) (*models.Lesson, error)
	// Create inserts a lesson under the ID it carries
	//
	// "ctx" is the context for the request.
	// "lesson" is the lesson to create.
	//
	// Returns an error wrapping models.ErrConflict when the ID is taken, or another error if any.
	Create(ctx context.Context, lesson *models.Lesson) error
	// Update overwrites the content of a lesson in its module
	//
	// "ctx" is the context for the request.
	// "lesson" is the lesson to update.
	//
	// Returns an error if any.
	Update(ctx context.Context, lesson *models.Lesson) error
	// Delete removes a lesson from a module
	//
	// "ctx" is the context for the request.
	// "courseID" is the ID of the course.
	// "moduleID" is the ID of the module.
	// "id" is the ID of the lesson.
	//
	// Returns whether a lesson was removed and an error if any.
	Delete(ctx context.Context, courseID, moduleID int, id string) (bool, error)
	// Move transfers a lesson to another module, keeping its ID
	//
	// "ctx" is the context for the request.
	// "courseID" is the ID of the course.
	// "id" is the ID of the lesson.
	// "fromModuleID" is the current module of the lesson.
	// "toModuleID" is the destination module.
	// "newOrder" is the position of the lesson in the destination module.
	// "updatedAt" is the new update timestamp.
	//
	// Returns an error wrapping models.ErrNotFound when the lesson is not in the source module.
	Move(ctx context.Context, courseID int, id string, fromModuleID, toModuleID, newOrder int, updatedAt time.Time) error
}

type lessonService struct {
	tx         Transactor
	courses    LessonCourseRepository
	modules    LessonModuleRepository
	lessons    LessonRepository
	postCommit *PostCommit
	fastPath   bool
	now        func() time.Time
	newID      func() string
	logger     *zap.Logger
}

// NewLessonService creates the lesson mutation service.
//
// When fastPath is true the course counters are adjusted inside each lesson
// transaction; the rebuild that follows remains authoritative.
func NewLessonService(
	tx Transactor,
	courses LessonCourseRepository,
	modules LessonModuleRepository,
	lessons LessonRepository,
	postCommit *PostCommit,
	fastPath bool,
	logger *zap.Logger,
) *lessonService {
	return &lessonService{
		tx:         tx,
		courses:    courses,
		modules:    modules,
		lessons:    lessons,
		postCommit: postCommit,
		fastPath:   fastPath,
		now:        func() time.Time { return time.Now().UTC() },
		newID:      func() string { return uuid.NewString() },
		logger:     logger,
	}
}

// Upsert creates or updates a lesson in a module.
//
// An empty lessonID creates a lesson with a generated ID; an unknown lessonID
// creates the lesson under that ID. A replaced video is cleaned up after commit.
func (s *lessonService) Upsert(ctx context.Context, principal authservice.Principal, courseID, moduleID int, lessonID string, payload *models.LessonPayload) models.OperationResult {
	if err := authorizeCourse(ctx, s.courses, principal, courseID); err != nil {
		return failureResult(s.logger, "upsert lesson", err)
	}
	if err := validateStruct(payload); err != nil {
		return failureResult(s.logger, "upsert lesson", err)
	}
	if lessonID != "" {
		if _, err := uuid.Parse(lessonID); err != nil {
			return failureResult(s.logger, "upsert lesson", fieldError("lessonId", "lessonId must be a valid UUID"))
		}
	}

	var (
		id         = lessonID
		created    bool
		staleVideo string
	)
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		exists, err := s.modules.Exists(ctx, courseID, moduleID)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("module %w", models.ErrNotFound)
		}

		var prior *models.Lesson
		if id != "" {
			prior, err = s.lessons.Get(ctx, courseID, id)
			if err != nil {
				return err
			}
		}
		if prior != nil && prior.ModuleID != moduleID {
			return fieldError("lessonId", "lesson belongs to another module; move it first")
		}

		now := s.now()
		lesson := &models.Lesson{
			ID:          id,
			CourseID:    courseID,
			ModuleID:    moduleID,
			Title:       payload.Title,
			Description: payload.Description,
			VideoURL:    payload.VideoURL,
			Duration:    models.DurationFromSeconds(payload.DurationSeconds),
			Order:       payload.Order,
			Reward:      payload.Reward,
			FreePreview: payload.FreePreview,
			UpdatedAt:   now,
		}

		lessonsDelta, durationDelta := 0, lesson.Duration.Seconds()
		if prior == nil {
			if lesson.ID == "" {
				lesson.ID = s.newID()
				id = lesson.ID
			}
			lesson.CreatedAt = now
			if err := s.lessons.Create(ctx, lesson); err != nil {
				return err
			}
			created = true
			lessonsDelta = 1
		} else {
			lesson.CreatedAt = prior.CreatedAt
			if err := s.lessons.Update(ctx, lesson); err != nil {
				return err
			}
			if prior.VideoURL != "" && prior.VideoURL != lesson.VideoURL {
				staleVideo = prior.VideoURL
			}
			durationDelta -= prior.Duration.Seconds()
		}

		if err := s.courses.BumpStructureVersion(ctx, courseID); err != nil {
			return err
		}
		if s.fastPath {
			return s.courses.ApplyCounterDelta(ctx, courseID, lessonsDelta, durationDelta)
		}
		return nil
	})
	if err != nil {
		return failureResult(s.logger, "upsert lesson", err)
	}

	s.postCommit.Run(ctx, courseID, staleVideo)

	message := "lesson updated"
	if created {
		message = "lesson created"
	}
	return models.OperationResult{Success: true, ID: id, Message: message}
}

// Delete removes a lesson and its video. Deleting a missing lesson succeeds and
// still rebuilds the course aggregate.
func (s *lessonService) Delete(ctx context.Context, principal authservice.Principal, courseID, moduleID int, lessonID string) models.OperationResult {
	if err := authorizeCourse(ctx, s.courses, principal, courseID); err != nil {
		return failureResult(s.logger, "delete lesson", err)
	}
	if lessonID == "" {
		return failureResult(s.logger, "delete lesson", fieldError("lessonId", "lessonId is required"))
	}

	var (
		removed   bool
		elsewhere bool
		video     string
	)
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		prior, err := s.lessons.Get(ctx, courseID, lessonID)
		if err != nil {
			return err
		}
		if prior == nil {
			return nil
		}
		if prior.ModuleID != moduleID {
			elsewhere = true
			return nil
		}

		removed, err = s.lessons.Delete(ctx, courseID, moduleID, lessonID)
		if err != nil || !removed {
			return err
		}
		video = prior.VideoURL

		if err := s.courses.BumpStructureVersion(ctx, courseID); err != nil {
			return err
		}
		if s.fastPath {
			return s.courses.ApplyCounterDelta(ctx, courseID, -1, -prior.Duration.Seconds())
		}
		return nil
	})
	if err != nil {
		return failureResult(s.logger, "delete lesson", err)
	}

	s.postCommit.Run(ctx, courseID, video)

	message := "lesson deleted"
	switch {
	case elsewhere:
		message = "lesson not found in module"
	case !removed:
		message = "lesson already deleted"
	}
	return models.OperationResult{Success: true, ID: lessonID, Message: message}
}

// Move transfers a lesson to another module of the same course in one
// transaction. The lesson keeps its ID; siblings are not renumbered.
func (s *lessonService) Move(ctx context.Context, principal authservice.Principal, courseID int, lessonID string, req *models.MoveLessonRequest) models.OperationResult {
	if err := authorizeCourse(ctx, s.courses, principal, courseID); err != nil {
		return failureResult(s.logger, "move lesson", err)
	}
	if err := validateStruct(req); err != nil {
		return failureResult(s.logger, "move lesson", err)
	}
	if lessonID == "" {
		return failureResult(s.logger, "move lesson", fieldError("lessonId", "lessonId is required"))
	}

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		lesson, err := s.lessons.Get(ctx, courseID, lessonID)
		if err != nil {
			return err
		}
		if lesson == nil || lesson.ModuleID != req.FromModuleID {
			return fmt.Errorf("lesson %w", models.ErrNotFound)
		}

		exists, err := s.modules.Exists(ctx, courseID, req.ToModuleID)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("destination module %w", models.ErrNotFound)
		}

		if err := s.lessons.Move(ctx, courseID, lessonID, req.FromModuleID, req.ToModuleID, req.NewOrder, s.now()); err != nil {
			return err
		}
		return s.courses.BumpStructureVersion(ctx, courseID)
	})
	if err != nil {
		return failureResult(s.logger, "move lesson", err)
	}

	s.postCommit.Run(ctx, courseID)

	return models.OperationResult{Success: true, ID: lessonID, Message: "lesson moved"}
}
