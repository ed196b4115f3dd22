package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/toll-settlement/internal/model"
)

// ReseedRepo wipes and reloads the reference tables.
//
// Deletes run children before parents.  MySQL commits implicitly on
// ALTER TABLE, so the AUTO_INCREMENT reset runs after the data
// transaction has committed; on an empty table it restarts at 1.
type ReseedRepo struct {
	db        *sql.DB
	companies *CompanyRepo
	stations  *StationRepo
}

// NewReseedRepo returns a ReseedRepo bound to db.
func NewReseedRepo(db *sql.DB) *ReseedRepo {
	return &ReseedRepo{db: db, companies: NewCompanyRepo(db), stations: NewStationRepo(db)}
}

var passTables = []string{"passes", "vehicle_tags"}

var referenceTables = []string{"passes", "vehicle_tags", "toll_stations", "toll_companies"}

// ReplaceReference deletes every pass, tag, station and company and loads
// companies and stations in their place, all in one transaction.
func (r *ReseedRepo) ReplaceReference(ctx context.Context, companies []model.TollCompany, stations []model.TollStation) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer rollback(tx)

	if err := deleteAll(ctx, tx, referenceTables); err != nil {
		return err
	}
	if err := r.companies.UpsertBulkTx(ctx, tx, companies); err != nil {
		return err
	}
	if err := r.stations.InsertBulkTx(ctx, tx, stations); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	return r.resetCounters(ctx)
}

// ResetPasses deletes passes and tags, keeping stations and companies.
func (r *ReseedRepo) ResetPasses(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer rollback(tx)

	if err := deleteAll(ctx, tx, passTables); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	return r.resetCounters(ctx)
}

func (r *ReseedRepo) resetCounters(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, "ALTER TABLE passes AUTO_INCREMENT = 1")
	return err
}

func deleteAll(ctx context.Context, tx *sql.Tx, tables []string) error {
	for _, t := range tables {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+t); err != nil {
			return err
		}
	}
	return nil
}
