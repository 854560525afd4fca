// Package db defines the connection-pool seam between the Postgres
// store and jackc/pgx, so tests can substitute pgxmock for a live pool.
package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool is the subset of pgxpool.Pool the store layer depends on.
// Both *pgxpool.Pool and pgxmock.PgxPoolIface satisfy it.
type Pool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

var _ Pool = (*pgxpool.Pool)(nil)
