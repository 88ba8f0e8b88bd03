// Package store is the Postgres-backed entity store of spec §4.3: CRUD
// with created_at/updated_at/created_by/updated_by, unique constraints
// surfaced as a typed conflict, and free-form status_reason strings carried
// alongside every status transition. No Postgres driver appears anywhere
// in the example pack, so this package is built on jackc/pgx/v5 (named,
// not grounded — an ecosystem-standard pick, see DESIGN.md), used directly
// with hand-written parameterized SQL rather than an ORM, matching every
// example repo's general avoidance of ORMs in favour of typed client code.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/amd-eai/airm/internal/apierrors"
)

// postgresUniqueViolation is the SQLSTATE Postgres raises for a unique
// constraint violation.
const postgresUniqueViolation = "23505"

// Store wraps a connection pool; all entity accessors hang off it as
// methods (Store) or take a *pgxpool.Pool/pgx.Tx directly where a caller
// needs to compose several writes into one transaction (see WithTx).
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to Postgres using connString (a libpq-style DSN).
func Open(ctx context.Context, connString string) (*Store, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping store: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping verifies the connection pool can still reach Postgres, used by the
// controller's /v1/health route.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, letting every
// entity accessor run either against the pool directly or inside a
// caller-managed transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// Tx wraps a pgx.Tx. Entity writes that must run inside a caller-managed
// transaction (CreateProject, CreateQuota, ...) are methods on *Tx; the
// other accessors are methods on *Store and run against the pool.
type Tx struct {
	tx pgx.Tx
}

// WithTx runs fn inside a single DB transaction; fn's own writes should use
// the Tx passed in, not s. A panic or returned error rolls back; otherwise
// the transaction commits. Callers building an outbox-guarded operation
// should nest outbox.Scope *outside* this call so that commit happens
// before flush (spec §4.2, §9 "Scoped resources").
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx *Tx) error) (err error) {
	pgxTx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = pgxTx.Rollback(ctx)
			panic(p)
		}

		if err != nil {
			_ = pgxTx.Rollback(ctx)
			return
		}

		err = pgxTx.Commit(ctx)
	}()

	err = fn(ctx, &Tx{tx: pgxTx})

	return err
}

// mapWriteError turns a Postgres-specific error into the store's typed
// vocabulary: a unique violation becomes apierrors.Conflict, a missing row
// (pgx.ErrNoRows) becomes the caller's responsibility to turn into
// apierrors.NotFound with the right resource name, everything else passes
// through wrapped.
func mapWriteError(op string, err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == postgresUniqueViolation {
		return apierrors.Conflict(fmt.Sprintf("%s: %s already exists", op, pgErr.ConstraintName))
	}

	return fmt.Errorf("%s: %w", op, err)
}

// isNoRows reports whether err is pgx's no-rows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
