package services

import (
	"context"

	"github.com/courseforge/backend/internal/models"
	authservice "github.com/courseforge/backend/libs/auth/service"
	"go.uber.org/zap"
)

// Transactor runs a function inside one database transaction
type Transactor interface {
	// WithinTransaction runs fn atomically
	//
	// "ctx" is the context for the request; repositories called with the context passed to fn join the transaction.
	// "fn" is the unit of work. Returning an error rolls the transaction back.
	//
	// Returns the error of fn, or a begin/commit error.
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// SyllabusRebuilder recomputes the course aggregate
type SyllabusRebuilder interface {
	// Rebuild recomputes and stores the aggregate of a course
	//
	// "ctx" is the context for the request.
	// "courseID" is the ID of the course.
	//
	// Returns the stored aggregate and an error if any.
	Rebuild(ctx context.Context, courseID int) (*models.CourseAggregate, error)
}

// CleanupScheduler defers removal of orphaned media objects
type CleanupScheduler interface {
	// ScheduleCleanup hands a video URL to the cleanup worker
	//
	// "ctx" is the context for the request.
	// "videoURL" is the stored URL of the orphaned video.
	//
	// Returns an error if the work item could not be scheduled.
	ScheduleCleanup(ctx context.Context, videoURL string) error
}

// CacheInvalidator tells readers that a course changed
type CacheInvalidator interface {
	// InvalidateCourse drops cached copies of a course
	//
	// "ctx" is the context for the request.
	// "courseID" is the ID of the course.
	//
	// Returns an error if any.
	InvalidateCourse(ctx context.Context, courseID int) error
}

// PostCommit runs the side effects that follow a committed structural change.
// None of its failures reach the caller.
type PostCommit struct {
	rebuilder SyllabusRebuilder
	cleanup   CleanupScheduler
	cache     CacheInvalidator
	logger    *zap.Logger
}

// NewPostCommit creates the post-commit pipeline. cleanup and cache may be nil.
func NewPostCommit(rebuilder SyllabusRebuilder, cleanup CleanupScheduler, cache CacheInvalidator, logger *zap.Logger) *PostCommit {
	return &PostCommit{
		rebuilder: rebuilder,
		cleanup:   cleanup,
		cache:     cache,
		logger:    logger,
	}
}

// Run schedules cleanup of orphaned videos, rebuilds the course aggregate and
// invalidates caches. It is detached from the cancellation of ctx.
func (p *PostCommit) Run(ctx context.Context, courseID int, orphanedVideos ...string) {
	ctx = context.WithoutCancel(ctx)

	for _, videoURL := range orphanedVideos {
		if videoURL == "" {
			continue
		}
		if p.cleanup == nil {
			p.logger.Warn("no media cleaner configured, video left in storage", zap.String("url", videoURL))
			continue
		}
		if err := p.cleanup.ScheduleCleanup(ctx, videoURL); err != nil {
			p.logger.Warn("failed to schedule media cleanup",
				zap.Int("course_id", courseID),
				zap.String("url", videoURL),
				zap.Error(err),
			)
		}
	}

	if _, err := p.rebuilder.Rebuild(ctx, courseID); err != nil {
		p.logger.Error("syllabus rebuild failed, course aggregate is stale",
			zap.Int("course_id", courseID),
			zap.Error(err),
		)
	}

	p.invalidate(ctx, courseID)
}

func (p *PostCommit) invalidate(ctx context.Context, courseID int) {
	if p.cache == nil {
		return
	}
	if err := p.cache.InvalidateCourse(ctx, courseID); err != nil {
		p.logger.Warn("failed to invalidate course cache", zap.Int("course_id", courseID), zap.Error(err))
	}
}

// OwnershipChecker reports whether a user authored a course
type OwnershipChecker interface {
	// CheckOwnership checks if a course belongs to an author
	//
	// "ctx" is the context for the request.
	// "id" is the ID of the course.
	// "authorID" is the ID of the author.
	//
	// Returns a boolean and an error if any.
	CheckOwnership(ctx context.Context, id, authorID int) (bool, error)
}

// authorizeCourse allows admins, and tutors editing a course they authored
func authorizeCourse(ctx context.Context, checker OwnershipChecker, principal authservice.Principal, courseID int) error {
	if principal.IsAdmin() {
		return nil
	}
	if principal.Role < authservice.RoleTutor {
		return ErrForbidden
	}

	owned, err := checker.CheckOwnership(ctx, courseID, principal.UserID)
	if err != nil {
		return err
	}
	if !owned {
		return ErrForbidden
	}
	return nil
}
