package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/courseforge/backend/internal/models"
	"github.com/go-sql-driver/mysql"
)

// DBTX is the subset of *sql.DB and *sql.Tx used by repositories
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txKey struct{}

// conn returns the transaction bound to ctx, or the pool when there is none
func conn(ctx context.Context, db *sql.DB) DBTX {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return db
}

// inTx reports whether ctx carries a transaction
func inTx(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(*sql.Tx)
	return ok
}

// lockClause returns a row-locking suffix when reading inside a transaction
func lockClause(ctx context.Context, exclusive bool) string {
	if !inTx(ctx) {
		return ""
	}
	if exclusive {
		return " FOR UPDATE"
	}
	return " LOCK IN SHARE MODE"
}

const mysqlDuplicateEntry = 1062

// mapWriteError turns driver errors into model sentinels where one applies
func mapWriteError(err error, action string) error {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
		return fmt.Errorf("failed to %s: %w", action, models.ErrConflict)
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}
