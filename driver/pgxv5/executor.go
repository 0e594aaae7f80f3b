// Package pgxv5 implements driver.Executor on a pgx/v5 pool.
//
//	pool, _ := pgxpool.New(ctx, databaseURL)
//	mem := sqlmem.New(pgxv5.New(pool), sqlmem.WithSessionID("s1"))
package pgxv5

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/youssefsiam38/agentscope/driver"
)

// Executor wraps pgxpool.Pool for non-transactional operations.
type Executor struct {
	pool *pgxpool.Pool
}

// New creates an executor on pool
func New(pool *pgxpool.Pool) *Executor {
	return &Executor{pool: pool}
}

// Pool returns the underlying pool
func (e *Executor) Pool() *pgxpool.Pool {
	return e.pool
}

func (e *Executor) Begin(ctx context.Context) (driver.ExecutorTx, error) {
	tx, err := e.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &ExecutorTx{tx: tx}, nil
}

func (e *Executor) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	result, err := e.pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

func (e *Executor) Query(ctx context.Context, sql string, args ...any) (driver.Rows, error) {
	rows, err := e.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return &rowsWrapper{rows}, nil
}

func (e *Executor) QueryRow(ctx context.Context, sql string, args ...any) driver.Row {
	return rowWrapper{e.pool.QueryRow(ctx, sql, args...)}
}

// ExecutorTx wraps pgx.Tx. Nested Begin calls become savepoints.
type ExecutorTx struct {
	tx pgx.Tx
}

func (e *ExecutorTx) Begin(ctx context.Context) (driver.ExecutorTx, error) {
	tx, err := e.tx.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &ExecutorTx{tx: tx}, nil
}

func (e *ExecutorTx) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	result, err := e.tx.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

func (e *ExecutorTx) Query(ctx context.Context, sql string, args ...any) (driver.Rows, error) {
	rows, err := e.tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return &rowsWrapper{rows}, nil
}

func (e *ExecutorTx) QueryRow(ctx context.Context, sql string, args ...any) driver.Row {
	return rowWrapper{e.tx.QueryRow(ctx, sql, args...)}
}

func (e *ExecutorTx) Commit(ctx context.Context) error {
	return e.tx.Commit(ctx)
}

func (e *ExecutorTx) Rollback(ctx context.Context) error {
	return e.tx.Rollback(ctx)
}

// rowsWrapper adapts pgx.Rows to driver.Rows.
type rowsWrapper struct {
	pgx.Rows
}

type rowWrapper struct {
	row pgx.Row
}

func (r rowWrapper) Scan(dest ...any) error {
	err := r.row.Scan(dest...)
	if errors.Is(err, pgx.ErrNoRows) {
		return driver.ErrNoRows
	}
	return err
}

var (
	_ driver.Executor   = (*Executor)(nil)
	_ driver.ExecutorTx = (*ExecutorTx)(nil)
)
