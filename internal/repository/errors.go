// Package repository holds the MySQL data access for the settlement
// service.  Sentinel errors below let the ingestion, reseed and settlement
// layers tell a missing reference apart from a storage failure.  For
// example, ErrStationNotFound during ingestion turns a row into a skip,
// while any other error marks it failed.
package repository

import (
	"context"
	"database/sql"
	"errors"
)

// ErrStationNotFound is returned when a station code has no row in
// toll_stations.
var ErrStationNotFound = errors.New("station not found")

// ErrUserNotFound is returned when a username or id has no row in users.
var ErrUserNotFound = errors.New("user not found")

// ErrTokenNotFound is returned when an auth token is unknown or expired.
var ErrTokenNotFound = errors.New("token not found")

// querier is the subset of *sql.DB and *sql.Tx the repositories need, so
// one query body serves both the plain and the Tx variants.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// rollback is deferred right after BeginTx; it is a no-op once the
// transaction has been committed.
func rollback(tx *sql.Tx) {
	_ = tx.Rollback()
}
