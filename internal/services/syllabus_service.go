package services

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/courseforge/backend/internal/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// SyllabusCourseRepository defines methods for writing the course aggregate
type SyllabusCourseRepository interface {
	// GetStructureVersion returns the structure version of a course
	//
	// "ctx" is the context for the request.
	// "id" is the ID of the course.
	//
	// Returns the version, or an error wrapping models.ErrNotFound when the course does not exist.
	GetStructureVersion(ctx context.Context, id int) (int64, error)
	// SaveAggregate overwrites every derived field of the course in one write
	//
	// "ctx" is the context for the request.
	// "id" is the ID of the course.
	// "aggregate" is the recomputed projection.
	// "expectedVersion" makes the write conditional on the structure version; nil writes unconditionally.
	// "updatedAt" is the new update timestamp of the course.
	//
	// Returns models.ErrVersionConflict when the version moved on, or another error if any.
	SaveAggregate(ctx context.Context, id int, aggregate *models.CourseAggregate, expectedVersion *int64, updatedAt time.Time) error
}

// SyllabusModuleRepository defines methods for reading the modules of a course
type SyllabusModuleRepository interface {
	// ListByCourse retrieves all modules of a course
	//
	// "ctx" is the context for the request.
	// "courseID" is the ID of the course.
	//
	// Returns the modules and an error if any.
	ListByCourse(ctx context.Context, courseID int) ([]models.Module, error)
}

// SyllabusLessonRepository defines methods for reading the lessons of a module
type SyllabusLessonRepository interface {
	// ListByModule retrieves all lessons of a module
	//
	// "ctx" is the context for the request.
	// "moduleID" is the ID of the module.
	//
	// Returns the lessons and an error if any.
	ListByModule(ctx context.Context, moduleID int) ([]models.Lesson, error)
}

type syllabusService struct {
	courses     SyllabusCourseRepository
	modules     SyllabusModuleRepository
	lessons     SyllabusLessonRepository
	maxAttempts int
	locks       *courseLocks
	now         func() time.Time
	logger      *zap.Logger
}

// NewSyllabusService creates the rebuilder of course aggregates.
//
// "maxAttempts" bounds the version-checked writes before the rebuild falls back to
// an unconditional write.
func NewSyllabusService(
	courses SyllabusCourseRepository,
	modules SyllabusModuleRepository,
	lessons SyllabusLessonRepository,
	maxAttempts int,
	logger *zap.Logger,
) *syllabusService {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &syllabusService{
		courses:     courses,
		modules:     modules,
		lessons:     lessons,
		maxAttempts: maxAttempts,
		locks:       newCourseLocks(),
		now:         time.Now,
		logger:      logger,
	}
}

// Rebuild recomputes the aggregate of a course from its modules and lessons and
// overwrites the stored projection.
//
// Each attempt reads the structure version, reads the tree and writes only if the
// version is unchanged. When every attempt raced a structural commit, the last
// computed aggregate is written unconditionally; the next rebuild corrects it.
func (s *syllabusService) Rebuild(ctx context.Context, courseID int) (*models.CourseAggregate, error) {
	unlock := s.locks.lock(courseID)
	defer unlock()

	var aggregate *models.CourseAggregate
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		version, err := s.courses.GetStructureVersion(ctx, courseID)
		if err != nil {
			return nil, err
		}

		aggregate, err = s.compute(ctx, courseID)
		if err != nil {
			return nil, err
		}

		err = s.courses.SaveAggregate(ctx, courseID, aggregate, &version, s.now())
		if err == nil {
			return aggregate, nil
		}
		if !errors.Is(err, models.ErrVersionConflict) {
			return nil, err
		}

		s.logger.Debug("course structure changed during rebuild",
			zap.Int("course_id", courseID),
			zap.Int("attempt", attempt),
		)
	}

	s.logger.Warn("rebuild kept racing structural changes, writing last read",
		zap.Int("course_id", courseID),
		zap.Int("attempts", s.maxAttempts),
	)
	if err := s.courses.SaveAggregate(ctx, courseID, aggregate, nil, s.now()); err != nil {
		return nil, err
	}
	return aggregate, nil
}

// compute reads the module tree of a course, one goroutine per module, and folds it
func (s *syllabusService) compute(ctx context.Context, courseID int) (*models.CourseAggregate, error) {
	modules, err := s.modules.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list modules: %w", err)
	}

	trees := make([]models.ModuleTree, len(modules))
	g, gctx := errgroup.WithContext(ctx)
	for i, module := range modules {
		g.Go(func() error {
			lessons, err := s.lessons.ListByModule(gctx, module.ID)
			if err != nil {
				return fmt.Errorf("failed to list lessons of module %d: %w", module.ID, err)
			}
			trees[i] = models.ModuleTree{Module: module, Lessons: lessons}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return BuildAggregate(trees), nil
}

// BuildAggregate folds a module tree into the course projection.
// Malformed lesson durations count as zero. The input is not modified.
func BuildAggregate(trees []models.ModuleTree) *models.CourseAggregate {
	sorted := slices.Clone(trees)
	slices.SortStableFunc(sorted, func(a, b models.ModuleTree) int {
		return cmp.Or(cmp.Compare(a.Module.Order, b.Module.Order), cmp.Compare(a.Module.ID, b.Module.ID))
	})

	aggregate := &models.CourseAggregate{
		ModulesCount: len(sorted),
		Syllabus:     make([]models.SyllabusItem, 0, len(sorted)),
	}

	for _, tree := range sorted {
		lessons := slices.Clone(tree.Lessons)
		slices.SortStableFunc(lessons, func(a, b models.Lesson) int {
			return cmp.Or(cmp.Compare(a.Order, b.Order), cmp.Compare(a.ID, b.ID))
		})

		item := models.SyllabusItem{
			ModuleID: tree.Module.ID,
			Title:    tree.Module.Title,
			Order:    tree.Module.Order,
			Lessons:  make([]models.SyllabusLesson, 0, len(lessons)),
		}
		for _, lesson := range lessons {
			seconds := lesson.Duration.Seconds()
			aggregate.TotalLessons++
			aggregate.TotalDurationSeconds += seconds
			item.Lessons = append(item.Lessons, models.SyllabusLesson{
				LessonID:        lesson.ID,
				Title:           lesson.Title,
				DurationSeconds: seconds,
				FreePreview:     lesson.FreePreview,
			})
		}
		aggregate.Syllabus = append(aggregate.Syllabus, item)
	}

	aggregate.TotalDuration = FormatDuration(aggregate.TotalDurationSeconds)
	return aggregate
}

// FormatDuration renders seconds as HH:MM:SS, or MM:SS when there are no whole hours
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	sec := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, sec)
	}
	return fmt.Sprintf("%02d:%02d", m, sec)
}

// courseLocks serializes rebuilds of the same course inside one process
type courseLocks struct {
	mu      sync.Mutex
	entries map[int]*courseLock
}

type courseLock struct {
	mu   sync.Mutex
	refs int
}

func newCourseLocks() *courseLocks {
	return &courseLocks{entries: make(map[int]*courseLock)}
}

// lock blocks until the course is free and returns the matching unlock
func (l *courseLocks) lock(courseID int) func() {
	l.mu.Lock()
	entry, ok := l.entries[courseID]
	if !ok {
		entry = &courseLock{}
		l.entries[courseID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.entries, courseID)
		}
		l.mu.Unlock()
	}
}
