package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/courseforge/backend/internal/models"
)

type moduleRepository struct {
	db *sql.DB
}

// NewModuleRepository creates a new module repository
func NewModuleRepository(db *sql.DB) *moduleRepository {
	return &moduleRepository{
		db: db,
	}
}

// Create creates a new module
func (r *moduleRepository) Create(ctx context.Context, module *models.Module) error {
	query := `
		INSERT INTO modules (course_id, title, ` + "`order`" + `, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := conn(ctx, r.db).ExecContext(ctx, query,
		module.CourseID,
		module.Title,
		module.Order,
		module.CreatedAt,
		module.UpdatedAt,
	)
	if err != nil {
		return mapWriteError(err, "create module")
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	module.ID = int(id)
	return nil
}

// Exists checks that a module belongs to a course.
// Inside a transaction the row is share-locked so it cannot be deleted before commit.
func (r *moduleRepository) Exists(ctx context.Context, courseID, id int) (bool, error) {
	query := `SELECT id FROM modules WHERE id = ? AND course_id = ?` + lockClause(ctx, false)

	var found int
	err := conn(ctx, r.db).QueryRowContext(ctx, query, id, courseID).Scan(&found)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check module existence: %w", err)
	}

	return true, nil
}

// GetByID retrieves a module of a course
func (r *moduleRepository) GetByID(ctx context.Context, courseID, id int) (*models.Module, error) {
	query := `
		SELECT id, course_id, title, ` + "`order`" + `, created_at, updated_at
		FROM modules
		WHERE id = ? AND course_id = ?
	` + lockClause(ctx, true)

	var module models.Module
	err := conn(ctx, r.db).QueryRowContext(ctx, query, id, courseID).Scan(
		&module.ID,
		&module.CourseID,
		&module.Title,
		&module.Order,
		&module.CreatedAt,
		&module.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("module %w", models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get module by id: %w", err)
	}

	return &module, nil
}

// ListByCourse retrieves all modules of a course, sorted by order
func (r *moduleRepository) ListByCourse(ctx context.Context, courseID int) ([]models.Module, error) {
	query := `
		SELECT id, course_id, title, ` + "`order`" + `, created_at, updated_at
		FROM modules
		WHERE course_id = ?
		ORDER BY ` + "`order`" + `, id
	`

	rows, err := conn(ctx, r.db).QueryContext(ctx, query, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query modules: %w", err)
	}
	defer rows.Close()

	var modules []models.Module
	for rows.Next() {
		var module models.Module
		err := rows.Scan(
			&module.ID,
			&module.CourseID,
			&module.Title,
			&module.Order,
			&module.CreatedAt,
			&module.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan module: %w", err)
		}
		modules = append(modules, module)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return modules, nil
}

// Update updates the title and/or order of a module (partial update)
func (r *moduleRepository) Update(ctx context.Context, module *models.Module) error {
	var setParts []string
	var args []any

	if module.Title != "" {
		setParts = append(setParts, "title = ?")
		args = append(args, module.Title)
	}
	if module.Order >= 0 {
		setParts = append(setParts, "`order` = ?")
		args = append(args, module.Order)
	}

	if len(setParts) == 0 {
		return fmt.Errorf("no fields to update")
	}

	setParts = append(setParts, "updated_at = ?")
	args = append(args, module.UpdatedAt)

	query := fmt.Sprintf(`
		UPDATE modules
		SET %s
		WHERE id = ? AND course_id = ?
	`, strings.Join(setParts, ", "))

	args = append(args, module.ID, module.CourseID)

	result, err := conn(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update module: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("module %w", models.ErrNotFound)
	}

	return nil
}

// Delete deletes a module of a course
func (r *moduleRepository) Delete(ctx context.Context, courseID, id int) error {
	query := `DELETE FROM modules WHERE id = ? AND course_id = ?`

	result, err := conn(ctx, r.db).ExecContext(ctx, query, id, courseID)
	if err != nil {
		return fmt.Errorf("failed to delete module: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("module %w", models.ErrNotFound)
	}

	return nil
}
