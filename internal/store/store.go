// Package store is the pgx-backed implementation of permalink.Store.
//
// Uniqueness is enforced by the database: unique violations surface as
// permalink.ErrConflict for the allocator's retry loop, and the alias
// inserts use ON CONFLICT DO NOTHING so concurrent renames racing to
// retire the same value stay idempotent.
package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/plumehq/plume/internal/database"
	"github.com/plumehq/plume/internal/permalink"
)

// Postgres error codes relevant to the permalink contract.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// DBTX is the subset of pgx operations shared by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements permalink.Store against PostgreSQL.
type Store struct {
	// pool is nil on transaction-bound instances produced by InTx.
	pool *pgxpool.Pool
	db   DBTX
}

// New creates a Store on top of a connection pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, db: pool}
}

// InTx runs fn against a transaction-bound Store. Nested calls on an
// already transaction-bound Store join the current transaction.
func (s *Store) InTx(ctx context.Context, fn func(permalink.Store) error) error {
	if s.pool == nil {
		return fn(s)
	}
	return database.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&Store{db: tx})
	})
}

// mapErr translates storage errors into the domain's sentinels.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return permalink.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return errors.Join(permalink.ErrConflict, err)
		case pgForeignKeyViolation:
			// A dangling owner or post reference behaves like a missing
			// record from the caller's point of view.
			return errors.Join(permalink.ErrNotFound, err)
		}
	}
	return err
}
