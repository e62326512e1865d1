package services

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"testing"
	"time"

	"github.com/courseforge/backend/internal/models"
	authservice "github.com/courseforge/backend/libs/auth/service"
	"go.uber.org/zap"
)

var (
	adminPrincipal = authservice.Principal{UserID: 1, Role: authservice.RoleAdmin}
	tutorPrincipal = authservice.Principal{UserID: 7, Role: authservice.RoleTutor}
	userPrincipal  = authservice.Principal{UserID: 9, Role: authservice.RoleUser}
)

type fakeTxKey struct{}

// fakeStore is an in-memory course tree with rollback-on-error transactions
type fakeStore struct {
	mu           sync.Mutex
	courses      map[int]models.Course
	modules      map[int]models.Module
	lessons      map[string]models.Lesson
	nextModuleID int
	nextCourseID int

	listLessonsErr error
	saveErr        error
	saveCalls      int
	// onListModules runs inside ListByCourse, used to simulate concurrent structural commits
	onListModules func(s *fakeStore)
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		courses:      map[int]models.Course{},
		modules:      map[int]models.Module{},
		lessons:      map[string]models.Lesson{},
		nextModuleID: 100,
		nextCourseID: 1,
	}
}

func (s *fakeStore) lock(ctx context.Context) func() {
	if ctx.Value(fakeTxKey{}) != nil {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *fakeStore) addCourse(id, authorID int) {
	s.courses[id] = models.Course{ID: id, AuthorID: authorID, Slug: fmt.Sprintf("course-%d", id), TotalDuration: "00:00", Syllabus: []models.SyllabusItem{}}
}

func (s *fakeStore) addModule(courseID, id int, title string, order int) {
	s.modules[id] = models.Module{ID: id, CourseID: courseID, Title: title, Order: order}
}

func (s *fakeStore) addLesson(courseID, moduleID int, id string, seconds float64, order int) {
	s.lessons[id] = models.Lesson{
		ID: id, CourseID: courseID, ModuleID: moduleID, Title: id,
		Duration: models.DurationFromSeconds(seconds), Order: order,
	}
}

func (s *fakeStore) course(id int) models.Course {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.courses[id]
}

// lessonOwners returns every module that holds a lesson with the given id
func (s *fakeStore) lessonOwners(id string) []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	var owners []int
	for _, l := range s.lessons {
		if l.ID == id {
			owners = append(owners, l.ModuleID)
		}
	}
	return owners
}

// WithinTransaction serializes transactions and restores a snapshot when fn fails
func (s *fakeStore) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(fakeTxKey{}) != nil {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	courses := maps.Clone(s.courses)
	modules := maps.Clone(s.modules)
	lessons := maps.Clone(s.lessons)

	if err := fn(context.WithValue(ctx, fakeTxKey{}, true)); err != nil {
		s.courses, s.modules, s.lessons = courses, modules, lessons
		return err
	}
	return nil
}

type fakeCourses struct{ *fakeStore }

func (f fakeCourses) Create(ctx context.Context, course *models.Course) error {
	defer f.lock(ctx)()
	for _, c := range f.courses {
		if c.Slug == course.Slug {
			return fmt.Errorf("failed to create course: %w", models.ErrConflict)
		}
	}
	course.ID = f.nextCourseID
	f.nextCourseID++
	f.courses[course.ID] = *course
	return nil
}

func (f fakeCourses) GetByID(ctx context.Context, id int) (*models.Course, error) {
	defer f.lock(ctx)()
	c, ok := f.courses[id]
	if !ok {
		return nil, fmt.Errorf("course %w", models.ErrNotFound)
	}
	return &c, nil
}

func (f fakeCourses) ListIDs(ctx context.Context) ([]int, error) {
	defer f.lock(ctx)()
	ids := make([]int, 0, len(f.courses))
	for id := range f.courses {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f fakeCourses) CheckOwnership(ctx context.Context, id, authorID int) (bool, error) {
	defer f.lock(ctx)()
	c, ok := f.courses[id]
	return ok && c.AuthorID == authorID, nil
}

func (f fakeCourses) GetStructureVersion(ctx context.Context, id int) (int64, error) {
	defer f.lock(ctx)()
	c, ok := f.courses[id]
	if !ok {
		return 0, fmt.Errorf("course %w", models.ErrNotFound)
	}
	return c.StructureVersion, nil
}

func (f fakeCourses) GetAggregateStamp(ctx context.Context, id int) (models.AggregateStamp, error) {
	defer f.lock(ctx)()
	c, ok := f.courses[id]
	if !ok {
		return models.AggregateStamp{}, fmt.Errorf("course %w", models.ErrNotFound)
	}
	return c.Stamp(), nil
}

func (f fakeCourses) BumpStructureVersion(ctx context.Context, id int) error {
	defer f.lock(ctx)()
	c, ok := f.courses[id]
	if !ok {
		return fmt.Errorf("course %w", models.ErrNotFound)
	}
	c.StructureVersion++
	f.courses[id] = c
	return nil
}

func (f fakeCourses) ApplyCounterDelta(ctx context.Context, id, lessonsDelta, durationDelta int) error {
	defer f.lock(ctx)()
	c := f.courses[id]
	c.TotalLessons = max(0, c.TotalLessons+lessonsDelta)
	c.TotalDurationSeconds = max(0, c.TotalDurationSeconds+durationDelta)
	f.courses[id] = c
	return nil
}

func (f fakeCourses) SaveAggregate(ctx context.Context, id int, aggregate *models.CourseAggregate, expectedVersion *int64, updatedAt time.Time) error {
	defer f.lock(ctx)()
	f.saveCalls++
	if f.saveErr != nil {
		return f.saveErr
	}
	c, ok := f.courses[id]
	if !ok {
		return fmt.Errorf("course %w", models.ErrNotFound)
	}
	if expectedVersion != nil && *expectedVersion != c.StructureVersion {
		return models.ErrVersionConflict
	}
	c.ModulesCount = aggregate.ModulesCount
	c.TotalLessons = aggregate.TotalLessons
	c.TotalDurationSeconds = aggregate.TotalDurationSeconds
	c.TotalDuration = aggregate.TotalDuration
	c.Syllabus = aggregate.Syllabus
	c.UpdatedAt = updatedAt
	f.courses[id] = c
	return nil
}

type fakeModules struct{ *fakeStore }

func (f fakeModules) Create(ctx context.Context, module *models.Module) error {
	defer f.lock(ctx)()
	module.ID = f.nextModuleID
	f.nextModuleID++
	f.modules[module.ID] = *module
	return nil
}

func (f fakeModules) Exists(ctx context.Context, courseID, id int) (bool, error) {
	defer f.lock(ctx)()
	m, ok := f.modules[id]
	return ok && m.CourseID == courseID, nil
}

func (f fakeModules) GetByID(ctx context.Context, courseID, id int) (*models.Module, error) {
	defer f.lock(ctx)()
	m, ok := f.modules[id]
	if !ok || m.CourseID != courseID {
		return nil, fmt.Errorf("module %w", models.ErrNotFound)
	}
	return &m, nil
}

func (f fakeModules) ListByCourse(ctx context.Context, courseID int) ([]models.Module, error) {
	if f.onListModules != nil {
		f.onListModules(f.fakeStore)
	}
	defer f.lock(ctx)()
	var modules []models.Module
	for _, m := range f.modules {
		if m.CourseID == courseID {
			modules = append(modules, m)
		}
	}
	return modules, nil
}

func (f fakeModules) Update(ctx context.Context, module *models.Module) error {
	defer f.lock(ctx)()
	m, ok := f.modules[module.ID]
	if !ok || m.CourseID != module.CourseID {
		return fmt.Errorf("module %w", models.ErrNotFound)
	}
	if module.Title != "" {
		m.Title = module.Title
	}
	if module.Order >= 0 {
		m.Order = module.Order
	}
	m.UpdatedAt = module.UpdatedAt
	f.modules[m.ID] = m
	return nil
}

func (f fakeModules) Delete(ctx context.Context, courseID, id int) error {
	defer f.lock(ctx)()
	m, ok := f.modules[id]
	if !ok || m.CourseID != courseID {
		return fmt.Errorf("module %w", models.ErrNotFound)
	}
	delete(f.modules, id)
	return nil
}

type fakeLessons struct{ *fakeStore }

func (f fakeLessons) Get(ctx context.Context, courseID int, id string) (*models.Lesson, error) {
	defer f.lock(ctx)()
	l, ok := f.lessons[id]
	if !ok || l.CourseID != courseID {
		return nil, nil
	}
	return &l, nil
}

func (f fakeLessons) ListByModule(ctx context.Context, moduleID int) ([]models.Lesson, error) {
	defer f.lock(ctx)()
	if f.listLessonsErr != nil {
		return nil, f.listLessonsErr
	}
	var lessons []models.Lesson
	for _, l := range f.lessons {
		if l.ModuleID == moduleID {
			lessons = append(lessons, l)
		}
	}
	return lessons, nil
}

func (f fakeLessons) ListVideoURLsByModule(ctx context.Context, moduleID int) ([]string, error) {
	defer f.lock(ctx)()
	var urls []string
	for _, l := range f.lessons {
		if l.ModuleID == moduleID && l.VideoURL != "" {
			urls = append(urls, l.VideoURL)
		}
	}
	return urls, nil
}

func (f fakeLessons) Create(ctx context.Context, lesson *models.Lesson) error {
	defer f.lock(ctx)()
	if _, ok := f.lessons[lesson.ID]; ok {
		return fmt.Errorf("failed to create lesson: %w", models.ErrConflict)
	}
	f.lessons[lesson.ID] = *lesson
	return nil
}

func (f fakeLessons) Update(ctx context.Context, lesson *models.Lesson) error {
	defer f.lock(ctx)()
	l, ok := f.lessons[lesson.ID]
	if !ok || l.CourseID != lesson.CourseID || l.ModuleID != lesson.ModuleID {
		return fmt.Errorf("lesson %w", models.ErrNotFound)
	}
	f.lessons[lesson.ID] = *lesson
	return nil
}

func (f fakeLessons) Delete(ctx context.Context, courseID, moduleID int, id string) (bool, error) {
	defer f.lock(ctx)()
	l, ok := f.lessons[id]
	if !ok || l.CourseID != courseID || l.ModuleID != moduleID {
		return false, nil
	}
	delete(f.lessons, id)
	return true, nil
}

func (f fakeLessons) Move(ctx context.Context, courseID int, id string, fromModuleID, toModuleID, newOrder int, updatedAt time.Time) error {
	defer f.lock(ctx)()
	l, ok := f.lessons[id]
	if !ok || l.CourseID != courseID || l.ModuleID != fromModuleID {
		return fmt.Errorf("lesson %w", models.ErrNotFound)
	}
	l.ModuleID = toModuleID
	l.Order = newOrder
	l.UpdatedAt = updatedAt
	f.lessons[id] = l
	return nil
}

func (f fakeLessons) DeleteByModule(ctx context.Context, moduleID int) (int64, error) {
	defer f.lock(ctx)()
	var removed int64
	for id, l := range f.lessons {
		if l.ModuleID == moduleID {
			delete(f.lessons, id)
			removed++
		}
	}
	return removed, nil
}

// mockCleanupScheduler records scheduled videos
type mockCleanupScheduler struct {
	mu     sync.Mutex
	videos []string
	err    error
}

func (m *mockCleanupScheduler) ScheduleCleanup(ctx context.Context, videoURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.videos = append(m.videos, videoURL)
	return m.err
}

// mockCacheInvalidator records invalidated courses
type mockCacheInvalidator struct {
	mu      sync.Mutex
	courses []int
	err     error
}

func (m *mockCacheInvalidator) InvalidateCourse(ctx context.Context, courseID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.courses = append(m.courses, courseID)
	return m.err
}

// mockRebuilder counts rebuilds and can fail them
type mockRebuilder struct {
	calls []int
	err   error
}

func (m *mockRebuilder) Rebuild(ctx context.Context, courseID int) (*models.CourseAggregate, error) {
	m.calls = append(m.calls, courseID)
	if m.err != nil {
		return nil, m.err
	}
	return &models.CourseAggregate{TotalDuration: "00:00"}, nil
}

// testEnv wires every service over one fake store
type testEnv struct {
	store       *fakeStore
	cleanup     *mockCleanupScheduler
	cache       *mockCacheInvalidator
	syllabus    *syllabusService
	lessons     *lessonService
	modules     *moduleService
	courses     *courseService
	maintenance *maintenanceService
}

func newTestEnv(t *testing.T, fastPath bool) *testEnv {
	t.Helper()
	store := newFakeStore()
	logger := zap.NewNop()

	env := &testEnv{
		store:   store,
		cleanup: &mockCleanupScheduler{},
		cache:   &mockCacheInvalidator{},
	}
	env.syllabus = NewSyllabusService(fakeCourses{store}, fakeModules{store}, fakeLessons{store}, 3, logger)
	post := NewPostCommit(env.syllabus, env.cleanup, env.cache, logger)
	env.lessons = NewLessonService(store, fakeCourses{store}, fakeModules{store}, fakeLessons{store}, post, fastPath, logger)
	env.modules = NewModuleService(store, fakeCourses{store}, fakeModules{store}, fakeLessons{store}, post, logger)
	env.courses = NewCourseService(fakeCourses{store}, nil, logger)
	env.maintenance = NewMaintenanceService(fakeCourses{store}, env.syllabus, env.cache, logger)
	return env
}

// seedScenario builds course 1 with M1=[L1:60s, L2:120s] and M2=[L3:90s]
func (e *testEnv) seedScenario() {
	e.store.addCourse(1, tutorPrincipal.UserID)
	e.store.addModule(1, 11, "M1", 0)
	e.store.addModule(1, 12, "M2", 1)
	e.store.addLesson(1, 11, "L1", 60, 0)
	e.store.addLesson(1, 11, "L2", 120, 1)
	e.store.addLesson(1, 12, "L3", 90, 0)
}

func syllabusLessonIDs(item models.SyllabusItem) []string {
	ids := make([]string, 0, len(item.Lessons))
	for _, l := range item.Lessons {
		ids = append(ids, l.LessonID)
	}
	return ids
}
