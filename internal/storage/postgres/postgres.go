// Package postgres stores registry, token and vesting records in PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"solana-security-token/internal/storage/migrations"
)

// Pool wraps pgxpool.Pool for dependency injection.
type Pool struct {
	*pgxpool.Pool
}

// NewPool creates a new Postgres connection pool.
func NewPool(ctx context.Context, dsn string) (*Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// Open connects to dsn and applies the embedded migrations.
func Open(ctx context.Context, dsn string) (*Pool, error) {
	pool, err := NewPool(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := migrations.RunPostgresMigrations(ctx, pool.Pool); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// Close closes the connection pool.
func (p *Pool) Close() {
	p.Pool.Close()
}

// querier is satisfied by both pgx.Tx and *pgxpool.Pool.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgreSQL error codes
const (
	pgErrUniqueViolation     = "23505" // unique_violation
	pgErrForeignKeyViolation = "23503" // foreign_key_violation
)

// isDuplicateKeyError checks if error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	return hasCode(err, pgErrUniqueViolation)
}

// isForeignKeyError checks if error references a missing parent row.
func isForeignKeyError(err error) bool {
	return hasCode(err, pgErrForeignKeyViolation)
}

func hasCode(err error, code string) bool {
	if err == nil {
		return false
	}

	// Use pgconn.PgError for reliable error code detection
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}

	return false
}

// isNotFoundError checks if error indicates no rows found.
func isNotFoundError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// u64 columns are BIGINT; values round-trip bit-for-bit.
func i64(v uint64) int64 { return int64(v) }
func u64(v int64) uint64 { return uint64(v) }

func nullableI64(v *uint64) *int64 {
	if v == nil {
		return nil
	}
	n := int64(*v)
	return &n
}

func nullableU64(v *int64) *uint64 {
	if v == nil {
		return nil
	}
	n := uint64(*v)
	return &n
}

// updated reports whether a write touched a row.
func updated(tag pgconn.CommandTag) bool {
	return tag.RowsAffected() > 0
}
