package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/courseforge/backend/internal/models"
)

type lessonRepository struct {
	db *sql.DB
}

// NewLessonRepository creates a new lesson repository
func NewLessonRepository(db *sql.DB) *lessonRepository {
	return &lessonRepository{
		db: db,
	}
}

const lessonColumns = "id, course_id, module_id, title, description, video_url, duration_seconds, `order`, reward, free_preview, created_at, updated_at"

func scanLesson(scanner interface{ Scan(...any) error }) (*models.Lesson, error) {
	var lesson models.Lesson
	var description, videoURL sql.NullString
	err := scanner.Scan(
		&lesson.ID,
		&lesson.CourseID,
		&lesson.ModuleID,
		&lesson.Title,
		&description,
		&videoURL,
		&lesson.Duration,
		&lesson.Order,
		&lesson.Reward,
		&lesson.FreePreview,
		&lesson.CreatedAt,
		&lesson.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	lesson.Description = description.String
	lesson.VideoURL = videoURL.String
	return &lesson, nil
}

// Get retrieves a lesson by course and id, or nil when it does not exist.
// Inside a transaction the row is locked until commit.
func (r *lessonRepository) Get(ctx context.Context, courseID int, id string) (*models.Lesson, error) {
	query := `SELECT ` + lessonColumns + ` FROM lessons WHERE id = ? AND course_id = ?` + lockClause(ctx, true)

	lesson, err := scanLesson(conn(ctx, r.db).QueryRowContext(ctx, query, id, courseID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lesson: %w", err)
	}

	return lesson, nil
}

// ListByModule retrieves the lessons of a module, sorted by order
func (r *lessonRepository) ListByModule(ctx context.Context, moduleID int) ([]models.Lesson, error) {
	query := `SELECT ` + lessonColumns + ` FROM lessons WHERE module_id = ? ORDER BY ` + "`order`" + `, id`

	rows, err := conn(ctx, r.db).QueryContext(ctx, query, moduleID)
	if err != nil {
		return nil, fmt.Errorf("failed to query lessons: %w", err)
	}
	defer rows.Close()

	var lessons []models.Lesson
	for rows.Next() {
		lesson, err := scanLesson(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lesson: %w", err)
		}
		lessons = append(lessons, *lesson)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return lessons, nil
}

// ListVideoURLsByModule returns the non-empty video URLs of a module's lessons
func (r *lessonRepository) ListVideoURLsByModule(ctx context.Context, moduleID int) ([]string, error) {
	query := `SELECT video_url FROM lessons WHERE module_id = ? AND video_url IS NOT NULL AND video_url <> ''`

	rows, err := conn(ctx, r.db).QueryContext(ctx, query, moduleID)
	if err != nil {
		return nil, fmt.Errorf("failed to query lesson videos: %w", err)
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("failed to scan video url: %w", err)
		}
		urls = append(urls, url)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return urls, nil
}

// Create inserts a lesson under the id it already carries
func (r *lessonRepository) Create(ctx context.Context, lesson *models.Lesson) error {
	query := `
		INSERT INTO lessons (` + lessonColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := conn(ctx, r.db).ExecContext(ctx, query,
		lesson.ID,
		lesson.CourseID,
		lesson.ModuleID,
		lesson.Title,
		nullString(lesson.Description),
		nullString(lesson.VideoURL),
		lesson.Duration,
		lesson.Order,
		lesson.Reward,
		lesson.FreePreview,
		lesson.CreatedAt,
		lesson.UpdatedAt,
	)
	if err != nil {
		return mapWriteError(err, "create lesson")
	}

	return nil
}

// Update overwrites the content fields of a lesson in its current module.
// created_at is never touched.
func (r *lessonRepository) Update(ctx context.Context, lesson *models.Lesson) error {
	query := `
		UPDATE lessons
		SET title = ?, description = ?, video_url = ?, duration_seconds = ?, ` + "`order`" + ` = ?,
			reward = ?, free_preview = ?, updated_at = ?
		WHERE id = ? AND course_id = ? AND module_id = ?
	`

	result, err := conn(ctx, r.db).ExecContext(ctx, query,
		lesson.Title,
		nullString(lesson.Description),
		nullString(lesson.VideoURL),
		lesson.Duration,
		lesson.Order,
		lesson.Reward,
		lesson.FreePreview,
		lesson.UpdatedAt,
		lesson.ID,
		lesson.CourseID,
		lesson.ModuleID,
	)
	if err != nil {
		return fmt.Errorf("failed to update lesson: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("lesson %w", models.ErrNotFound)
	}

	return nil
}

// Delete removes a lesson from a module. It reports whether a row was removed.
func (r *lessonRepository) Delete(ctx context.Context, courseID, moduleID int, id string) (bool, error) {
	query := `DELETE FROM lessons WHERE id = ? AND course_id = ? AND module_id = ?`

	result, err := conn(ctx, r.db).ExecContext(ctx, query, id, courseID, moduleID)
	if err != nil {
		return false, fmt.Errorf("failed to delete lesson: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// Move reassigns a lesson to another module in a single write.
// The lesson keeps its id and content; only its owner and position change.
func (r *lessonRepository) Move(ctx context.Context, courseID int, id string, fromModuleID, toModuleID, newOrder int, updatedAt time.Time) error {
	query := `
		UPDATE lessons
		SET module_id = ?, ` + "`order`" + ` = ?, updated_at = ?
		WHERE id = ? AND course_id = ? AND module_id = ?
	`

	result, err := conn(ctx, r.db).ExecContext(ctx, query, toModuleID, newOrder, updatedAt, id, courseID, fromModuleID)
	if err != nil {
		return fmt.Errorf("failed to move lesson: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("lesson %w", models.ErrNotFound)
	}

	return nil
}

// DeleteByModule removes all lessons of a module and returns how many were removed
func (r *lessonRepository) DeleteByModule(ctx context.Context, moduleID int) (int64, error) {
	result, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM lessons WHERE module_id = ?`, moduleID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete module lessons: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
