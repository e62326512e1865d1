package repositories

import (
	"context"
	"database/sql"
	"fmt"
)

type transactor struct {
	db *sql.DB
}

// NewTransactor creates a unit-of-work executor over the database pool
func NewTransactor(db *sql.DB) *transactor {
	return &transactor{
		db: db,
	}
}

// WithinTransaction runs fn inside one database transaction.
//
// Repository calls made with the context passed to fn join the transaction.
// The transaction commits when fn returns nil and rolls back otherwise.
// Nested calls reuse the outer transaction.
func (t *transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
