package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/courseforge/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupCourseTestRepository creates a course repository with a mock database
func setupCourseTestRepository(t *testing.T) (*courseRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	repo := NewCourseRepository(db)

	cleanup := func() {
		db.Close()
	}

	return repo, mock, cleanup
}

func TestNewCourseRepository(t *testing.T) {
	db := &sql.DB{}

	repo := NewCourseRepository(db)

	assert.NotNil(t, repo)
	assert.Equal(t, db, repo.db)
}

func TestCourseRepository_Create(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		course        *models.Course
		setupMock     func(sqlmock.Sqlmock)
		expectedError error
		expectedID    int
	}{
		{
			name:   "success",
			course: &models.Course{AuthorID: 7, Slug: "go-basics", Title: "Go Basics", TotalDuration: "00:00", CreatedAt: now, UpdatedAt: now},
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO courses \(author_id, slug, title, total_duration, syllabus, created_at, updated_at\)`).
					WithArgs(7, "go-basics", "Go Basics", "00:00", "[]", now, now).
					WillReturnResult(sqlmock.NewResult(12, 1))
			},
			expectedID: 12,
		},
		{
			name:   "duplicate slug",
			course: &models.Course{AuthorID: 7, Slug: "go-basics", Title: "Go Basics"},
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO courses`).
					WillReturnError(duplicateEntryError())
			},
			expectedError: models.ErrConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, cleanup := setupCourseTestRepository(t)
			defer cleanup()

			tt.setupMock(mock)

			err := repo.Create(context.Background(), tt.course)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expectedID, tt.course.ID)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestCourseRepository_GetByID(t *testing.T) {
	now := time.Now()
	columns := []string{
		"id", "author_id", "slug", "title", "modules_count", "total_lessons", "total_duration_seconds",
		"total_duration", "syllabus", "structure_version", "created_at", "updated_at",
	}

	tests := []struct {
		name          string
		setupMock     func(sqlmock.Sqlmock)
		expectedError error
		validate      func(*testing.T, *models.Course)
	}{
		{
			name: "success with syllabus",
			setupMock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows(columns).
					AddRow(1, 7, "go-basics", "Go Basics", 1, 2, 270, "04:30",
						[]byte(`[{"moduleId":3,"title":"Intro","order":0,"lessons":[{"lessonId":"a","title":"L1","durationSeconds":120,"freePreview":true}]}]`),
						4, now, now)
				mock.ExpectQuery(`SELECT id, author_id, slug, title, modules_count, total_lessons, total_duration_seconds, total_duration, syllabus, structure_version, created_at, updated_at FROM courses WHERE id = \?`).
					WithArgs(1).
					WillReturnRows(rows)
			},
			validate: func(t *testing.T, c *models.Course) {
				assert.Equal(t, "04:30", c.TotalDuration)
				assert.Equal(t, int64(4), c.StructureVersion)
				require.Len(t, c.Syllabus, 1)
				assert.Equal(t, 3, c.Syllabus[0].ModuleID)
				require.Len(t, c.Syllabus[0].Lessons, 1)
				assert.Equal(t, 120, c.Syllabus[0].Lessons[0].DurationSeconds)
			},
		},
		{
			name: "null syllabus decodes to empty list",
			setupMock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows(columns).
					AddRow(1, 7, "go-basics", "Go Basics", 0, 0, 0, "00:00", nil, 0, now, now)
				mock.ExpectQuery(`SELECT (.+) FROM courses WHERE id = \?`).
					WithArgs(1).
					WillReturnRows(rows)
			},
			validate: func(t *testing.T, c *models.Course) {
				assert.NotNil(t, c.Syllabus)
				assert.Empty(t, c.Syllabus)
			},
		},
		{
			name: "not found",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT (.+) FROM courses WHERE id = \?`).
					WithArgs(1).
					WillReturnError(sql.ErrNoRows)
			},
			expectedError: models.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, cleanup := setupCourseTestRepository(t)
			defer cleanup()

			tt.setupMock(mock)

			course, err := repo.GetByID(context.Background(), 1)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, course)
			} else {
				require.NoError(t, err)
				tt.validate(t, course)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestCourseRepository_ListIDs(t *testing.T) {
	repo, mock, cleanup := setupCourseTestRepository(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT id FROM courses ORDER BY id`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(2).AddRow(5))

	ids, err := repo.ListIDs(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 5}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepository_CheckOwnership(t *testing.T) {
	tests := []struct {
		name          string
		setupMock     func(sqlmock.Sqlmock)
		expected      bool
		expectedError bool
	}{
		{
			name: "owner",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM courses WHERE id = \? AND author_id = \?\)`).
					WithArgs(1, 7).
					WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
			},
			expected: true,
		},
		{
			name: "not owner",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT EXISTS`).
					WithArgs(1, 7).
					WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
			},
			expected: false,
		},
		{
			name: "database error",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT EXISTS`).
					WithArgs(1, 7).
					WillReturnError(errors.New("database error"))
			},
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, cleanup := setupCourseTestRepository(t)
			defer cleanup()

			tt.setupMock(mock)

			owned, err := repo.CheckOwnership(context.Background(), 1, 7)

			if tt.expectedError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expected, owned)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestCourseRepository_GetAggregateStamp(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name          string
		setupMock     func(mock sqlmock.Sqlmock)
		expected      models.AggregateStamp
		expectedError error
	}{
		{
			name: "success",
			setupMock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{"structure_version", "updated_at"}).AddRow(4, now)
				mock.ExpectQuery(`SELECT structure_version, updated_at FROM courses WHERE id = \?`).
					WithArgs(1).
					WillReturnRows(rows)
			},
			expected: models.AggregateStamp{StructureVersion: 4, UpdatedAt: now},
		},
		{
			name: "not found",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT structure_version, updated_at FROM courses WHERE id = \?`).
					WithArgs(1).
					WillReturnError(sql.ErrNoRows)
			},
			expectedError: models.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, cleanup := setupCourseTestRepository(t)
			defer cleanup()

			tt.setupMock(mock)

			stamp, err := repo.GetAggregateStamp(context.Background(), 1)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
			} else {
				require.NoError(t, err)
				assert.True(t, tt.expected.Equal(stamp))
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestCourseRepository_BumpStructureVersion(t *testing.T) {
	t.Run("missing course", func(t *testing.T) {
		repo, mock, cleanup := setupCourseTestRepository(t)
		defer cleanup()

		mock.ExpectExec(`UPDATE courses SET structure_version = structure_version \+ 1 WHERE id = \?`).
			WithArgs(9).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.BumpStructureVersion(context.Background(), 9)

		assert.ErrorIs(t, err, models.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCourseRepository_ApplyCounterDelta(t *testing.T) {
	repo, mock, cleanup := setupCourseTestRepository(t)
	defer cleanup()

	mock.ExpectExec(`UPDATE courses SET total_lessons = GREATEST\(0, CAST\(total_lessons AS SIGNED\) \+ \?\)`).
		WithArgs(-1, -150, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.ApplyCounterDelta(context.Background(), 1, -1, -150)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepository_SaveAggregate(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	aggregate := &models.CourseAggregate{
		ModulesCount:         2,
		TotalLessons:         3,
		TotalDurationSeconds: 270,
		TotalDuration:        "04:30",
		Syllabus:             []models.SyllabusItem{},
	}
	version := int64(5)

	tests := []struct {
		name            string
		expectedVersion *int64
		setupMock       func(sqlmock.Sqlmock)
		expectedError   error
	}{
		{
			name:            "version matches",
			expectedVersion: &version,
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE courses SET modules_count = \?, total_lessons = \?, total_duration_seconds = \?, total_duration = \?, syllabus = \?, updated_at = \? WHERE id = \? AND structure_version = \?`).
					WithArgs(2, 3, 270, "04:30", []byte("[]"), now, 1, int64(5)).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name:            "version moved on",
			expectedVersion: &version,
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE courses SET (.+) AND structure_version = \?`).
					WillReturnResult(sqlmock.NewResult(0, 0))
			},
			expectedError: models.ErrVersionConflict,
		},
		{
			name: "unconditional write on missing course",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE courses SET (.+) WHERE id = \?`).
					WithArgs(2, 3, 270, "04:30", []byte("[]"), now, 1).
					WillReturnResult(sqlmock.NewResult(0, 0))
			},
			expectedError: models.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, cleanup := setupCourseTestRepository(t)
			defer cleanup()

			tt.setupMock(mock)

			err := repo.SaveAggregate(context.Background(), 1, aggregate, tt.expectedVersion, now)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
