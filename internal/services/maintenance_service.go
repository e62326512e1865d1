package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/courseforge/backend/internal/models"
	authservice "github.com/courseforge/backend/libs/auth/service"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// resyncConcurrency bounds the number of courses rebuilt at once by ResyncAll
const resyncConcurrency = 4

// MaintenanceCourseRepository defines the course methods used by drift repair
type MaintenanceCourseRepository interface {
	// ListIDs retrieves the IDs of all courses
	//
	// "ctx" is the context for the request.
	//
	// Returns the IDs and an error if any.
	ListIDs(ctx context.Context) ([]int, error)
}

type maintenanceService struct {
	courses   MaintenanceCourseRepository
	rebuilder SyllabusRebuilder
	cache     CacheInvalidator
	logger    *zap.Logger
}

// NewMaintenanceService creates the drift-repair service. cache may be nil.
func NewMaintenanceService(courses MaintenanceCourseRepository, rebuilder SyllabusRebuilder, cache CacheInvalidator, logger *zap.Logger) *maintenanceService {
	return &maintenanceService{
		courses:   courses,
		rebuilder: rebuilder,
		cache:     cache,
		logger:    logger,
	}
}

// ResyncCourse rebuilds one course aggregate and reports the recomputed totals. Admin only.
func (s *maintenanceService) ResyncCourse(ctx context.Context, principal authservice.Principal, courseID int) models.ResyncResult {
	if !principal.IsAdmin() {
		return models.ResyncResult{Message: ErrForbidden.Error(), Kind: models.FailureForbidden}
	}

	aggregate, err := s.resync(ctx, courseID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ResyncResult{Message: err.Error(), Kind: models.FailureNotFound}
		}
		s.logger.Error("resync failed", zap.Int("course_id", courseID), zap.Error(err))
		return models.ResyncResult{Message: "resync failed", Kind: models.FailureInternal}
	}

	return models.ResyncResult{
		Success: true,
		Stats: models.ResyncStats{
			Modules:  aggregate.ModulesCount,
			Lessons:  aggregate.TotalLessons,
			Duration: aggregate.TotalDuration,
		},
	}
}

// ResyncAll rebuilds every course. A failing course is recorded and does not stop the run.
func (s *maintenanceService) ResyncAll(ctx context.Context) (*models.ResyncAllReport, error) {
	ids, err := s.courses.ListIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}

	report := &models.ResyncAllReport{Total: len(ids), Failed: map[int]string{}}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(resyncConcurrency)
	for _, id := range ids {
		g.Go(func() error {
			if _, err := s.resync(gctx, id); err != nil {
				s.logger.Warn("course resync failed", zap.Int("course_id", id), zap.Error(err))
				mu.Lock()
				report.Failed[id] = err.Error()
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	s.logger.Info("resync finished", zap.Int("courses", report.Total), zap.Int("failed", len(report.Failed)))
	return report, nil
}

func (s *maintenanceService) resync(ctx context.Context, courseID int) (*models.CourseAggregate, error) {
	aggregate, err := s.rebuilder.Rebuild(ctx, courseID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.InvalidateCourse(ctx, courseID); err != nil {
			s.logger.Warn("failed to invalidate course cache", zap.Int("course_id", courseID), zap.Error(err))
		}
	}
	return aggregate, nil
}
