package repository

import (
	"context"
	"database/sql"
)

// Counts is the row census reported by the health check.
type Counts struct {
	Stations int64
	Tags     int64
	Passes   int64
}

// HealthRepo checks storage reachability.
type HealthRepo struct{ db *sql.DB }

func NewHealthRepo(db *sql.DB) *HealthRepo { return &HealthRepo{db: db} }

// Ping verifies the connection.
func (r *HealthRepo) Ping(ctx context.Context) error { return r.db.PingContext(ctx) }

// Counts returns the number of stations, tags and passes.
func (r *HealthRepo) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	err := r.db.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM toll_stations),
		        (SELECT COUNT(*) FROM vehicle_tags),
		        (SELECT COUNT(*) FROM passes)`).Scan(&c.Stations, &c.Tags, &c.Passes)
	return c, err
}
