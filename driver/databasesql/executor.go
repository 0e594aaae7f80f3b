// Package databasesql implements driver.Executor on database/sql. It imports
// lib/pq, so sql.Open("postgres", dsn) works without a separate import.
package databasesql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/youssefsiam38/agentscope/driver"
)

// Executor wraps *sql.DB for non-transactional operations.
type Executor struct {
	db *sql.DB
}

// New creates an executor on db
func New(db *sql.DB) *Executor {
	return &Executor{db: db}
}

// Open opens a PostgreSQL connection through lib/pq
func Open(dsn string) (*Executor, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return New(db), nil
}

// DB returns the underlying handle
func (e *Executor) DB() *sql.DB {
	return e.db
}

func (e *Executor) Begin(ctx context.Context) (driver.ExecutorTx, error) {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &ExecutorTx{tx: tx}, nil
}

func (e *Executor) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	result, err := e.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (e *Executor) Query(ctx context.Context, query string, args ...any) (driver.Rows, error) {
	rows, err := e.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return &rowsWrapper{rows}, nil
}

func (e *Executor) QueryRow(ctx context.Context, query string, args ...any) driver.Row {
	return rowWrapper{e.db.QueryRowContext(ctx, query, args...)}
}

// ExecutorTx wraps *sql.Tx. database/sql has no nested transactions, so
// nested Begin calls are emulated with savepoints.
type ExecutorTx struct {
	tx        *sql.Tx
	savepoint string
	depth     *int
}

func (e *ExecutorTx) Begin(ctx context.Context) (driver.ExecutorTx, error) {
	if e.depth == nil {
		e.depth = new(int)
	}
	*e.depth++
	name := fmt.Sprintf("sp_%d", *e.depth)
	if _, err := e.tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return nil, err
	}
	return &ExecutorTx{tx: e.tx, savepoint: name, depth: e.depth}, nil
}

func (e *ExecutorTx) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	result, err := e.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (e *ExecutorTx) Query(ctx context.Context, query string, args ...any) (driver.Rows, error) {
	rows, err := e.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return &rowsWrapper{rows}, nil
}

func (e *ExecutorTx) QueryRow(ctx context.Context, query string, args ...any) driver.Row {
	return rowWrapper{e.tx.QueryRowContext(ctx, query, args...)}
}

func (e *ExecutorTx) Commit(ctx context.Context) error {
	if e.savepoint != "" {
		_, err := e.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+e.savepoint)
		return err
	}
	return e.tx.Commit()
}

func (e *ExecutorTx) Rollback(ctx context.Context) error {
	if e.savepoint != "" {
		_, err := e.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+e.savepoint)
		return err
	}
	return e.tx.Rollback()
}

// rowsWrapper adapts *sql.Rows, whose Close returns an error.
type rowsWrapper struct {
	rows *sql.Rows
}

func (r *rowsWrapper) Close()                 { _ = r.rows.Close() }
func (r *rowsWrapper) Err() error             { return r.rows.Err() }
func (r *rowsWrapper) Next() bool             { return r.rows.Next() }
func (r *rowsWrapper) Scan(dest ...any) error { return r.rows.Scan(dest...) }

type rowWrapper struct {
	row *sql.Row
}

func (r rowWrapper) Scan(dest ...any) error {
	err := r.row.Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return driver.ErrNoRows
	}
	return err
}

var (
	_ driver.Executor   = (*Executor)(nil)
	_ driver.ExecutorTx = (*ExecutorTx)(nil)
)
