// Package driver abstracts the SQL connection used by the SQL memory store so
// it can run on either pgx/v5 or database/sql.
package driver

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoRows is returned by Row.Scan implementations that normalize the
// driver-specific "no rows" error.
var ErrNoRows = errors.New("no rows in result set")

// Row represents a single database row.
// This interface is compatible with both pgx.Row and *sql.Row.
type Row interface {
	Scan(dest ...any) error
}

// Rows represents a result set from a query.
// This interface is compatible with both pgx.Rows and *sql.Rows.
type Rows interface {
	Close()
	Err() error
	Next() bool
	Scan(dest ...any) error
}

// Executor can represent either a connection pool or a transaction.
type Executor interface {
	// Begin starts a new transaction, or a savepoint inside a transaction.
	Begin(ctx context.Context) (ExecutorTx, error)

	// Exec runs a statement and returns the number of rows affected.
	Exec(ctx context.Context, sql string, args ...any) (int64, error)

	Query(ctx context.Context, sql string, args ...any) (Rows, error)

	QueryRow(ctx context.Context, sql string, args ...any) Row
}

// ExecutorTx is an Executor bound to an open transaction.
type ExecutorTx interface {
	Executor
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// WithTx runs fn inside a transaction on exec, committing when fn returns nil
// and rolling back otherwise.
func WithTx(ctx context.Context, exec Executor, fn func(tx ExecutorTx) error) error {
	tx, err := exec.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
