package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/courseforge/backend/internal/models"
)

type courseRepository struct {
	db *sql.DB
}

// NewCourseRepository creates a new course repository
func NewCourseRepository(db *sql.DB) *courseRepository {
	return &courseRepository{
		db: db,
	}
}

// Create creates a new course with an empty aggregate
func (r *courseRepository) Create(ctx context.Context, course *models.Course) error {
	query := `
		INSERT INTO courses (author_id, slug, title, total_duration, syllabus, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := conn(ctx, r.db).ExecContext(ctx, query,
		course.AuthorID,
		course.Slug,
		course.Title,
		course.TotalDuration,
		"[]",
		course.CreatedAt,
		course.UpdatedAt,
	)
	if err != nil {
		return mapWriteError(err, "create course")
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	course.ID = int(id)
	return nil
}

// GetByID retrieves a course with its aggregate fields
func (r *courseRepository) GetByID(ctx context.Context, id int) (*models.Course, error) {
	query := `
		SELECT id, author_id, slug, title, modules_count, total_lessons, total_duration_seconds,
			total_duration, syllabus, structure_version, created_at, updated_at
		FROM courses
		WHERE id = ?
		LIMIT 1
	`

	var course models.Course
	var syllabus []byte
	err := conn(ctx, r.db).QueryRowContext(ctx, query, id).Scan(
		&course.ID,
		&course.AuthorID,
		&course.Slug,
		&course.Title,
		&course.ModulesCount,
		&course.TotalLessons,
		&course.TotalDurationSeconds,
		&course.TotalDuration,
		&syllabus,
		&course.StructureVersion,
		&course.CreatedAt,
		&course.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("course %w", models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get course by id: %w", err)
	}

	course.Syllabus = []models.SyllabusItem{}
	if len(syllabus) > 0 {
		if err := json.Unmarshal(syllabus, &course.Syllabus); err != nil {
			return nil, fmt.Errorf("failed to decode syllabus: %w", err)
		}
	}

	return &course, nil
}

// ListIDs retrieves the IDs of all courses
func (r *courseRepository) ListIDs(ctx context.Context) ([]int, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, `SELECT id FROM courses ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query course ids: %w", err)
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan course id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return ids, nil
}

// CheckOwnership checks if a course was authored by the given user
func (r *courseRepository) CheckOwnership(ctx context.Context, id, authorID int) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM courses WHERE id = ? AND author_id = ?)`

	var exists bool
	err := conn(ctx, r.db).QueryRowContext(ctx, query, id, authorID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check course ownership: %w", err)
	}

	return exists, nil
}

// GetStructureVersion returns the current structure version of a course
func (r *courseRepository) GetStructureVersion(ctx context.Context, id int) (int64, error) {
	query := `SELECT structure_version FROM courses WHERE id = ? LIMIT 1`

	var version int64
	err := conn(ctx, r.db).QueryRowContext(ctx, query, id).Scan(&version)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("course %w", models.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get structure version: %w", err)
	}

	return version, nil
}

// GetAggregateStamp returns the current revision of the course aggregate row
func (r *courseRepository) GetAggregateStamp(ctx context.Context, id int) (models.AggregateStamp, error) {
	query := `SELECT structure_version, updated_at FROM courses WHERE id = ? LIMIT 1`

	var stamp models.AggregateStamp
	err := conn(ctx, r.db).QueryRowContext(ctx, query, id).Scan(&stamp.StructureVersion, &stamp.UpdatedAt)
	if err == sql.ErrNoRows {
		return models.AggregateStamp{}, fmt.Errorf("course %w", models.ErrNotFound)
	}
	if err != nil {
		return models.AggregateStamp{}, fmt.Errorf("failed to get aggregate stamp: %w", err)
	}

	return stamp, nil
}

// BumpStructureVersion marks the course tree as changed.
// Called inside every structural transaction; it also locks the course row until commit.
func (r *courseRepository) BumpStructureVersion(ctx context.Context, id int) error {
	query := `UPDATE courses SET structure_version = structure_version + 1 WHERE id = ?`

	result, err := conn(ctx, r.db).ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to bump structure version: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("course %w", models.ErrNotFound)
	}

	return nil
}

// ApplyCounterDelta adjusts the lesson counters in place.
// This is the non-authoritative fast path; a rebuild always overwrites the result.
func (r *courseRepository) ApplyCounterDelta(ctx context.Context, id, lessonsDelta, durationDelta int) error {
	query := `
		UPDATE courses
		SET total_lessons = GREATEST(0, CAST(total_lessons AS SIGNED) + ?),
			total_duration_seconds = GREATEST(0, CAST(total_duration_seconds AS SIGNED) + ?)
		WHERE id = ?
	`

	_, err := conn(ctx, r.db).ExecContext(ctx, query, lessonsDelta, durationDelta, id)
	if err != nil {
		return fmt.Errorf("failed to apply counter delta: %w", err)
	}

	return nil
}

// SaveAggregate overwrites every derived field of the course in one write.
//
// When expectedVersion is not nil the write only happens if no structural change
// committed since that version was read; ErrVersionConflict is returned otherwise.
func (r *courseRepository) SaveAggregate(ctx context.Context, id int, aggregate *models.CourseAggregate, expectedVersion *int64, updatedAt time.Time) error {
	syllabus, err := json.Marshal(aggregate.Syllabus)
	if err != nil {
		return fmt.Errorf("failed to encode syllabus: %w", err)
	}

	query := `
		UPDATE courses
		SET modules_count = ?, total_lessons = ?, total_duration_seconds = ?, total_duration = ?,
			syllabus = ?, updated_at = ?
		WHERE id = ?
	`
	args := []any{
		aggregate.ModulesCount,
		aggregate.TotalLessons,
		aggregate.TotalDurationSeconds,
		aggregate.TotalDuration,
		syllabus,
		updatedAt,
		id,
	}
	if expectedVersion != nil {
		query += " AND structure_version = ?"
		args = append(args, *expectedVersion)
	}

	result, err := conn(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to save course aggregate: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		if expectedVersion != nil {
			return models.ErrVersionConflict
		}
		return fmt.Errorf("course %w", models.ErrNotFound)
	}

	return nil
}
