package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/toll-settlement/internal/model"
)

// PassRepo writes passes.  Each WritePass call is one transaction holding
// the tag upsert, the station lookup and the pass insert, so a row that is
// skipped or fails leaves nothing behind.
type PassRepo struct {
	db       *sql.DB
	tags     *TagRepo
	stations *StationRepo
}

// NewPassRepo returns a PassRepo bound to db.
func NewPassRepo(db *sql.DB) *PassRepo {
	return &PassRepo{db: db, tags: NewTagRepo(db), stations: NewStationRepo(db)}
}

// WritePass resolves the tag, classifies the crossing against the
// station's current operator and stores it.  It returns ErrStationNotFound
// when the station is unknown; the transaction is rolled back in that case.
func (r *PassRepo) WritePass(ctx context.Context, row model.PassRow) (model.Pass, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Pass{}, err
	}
	defer rollback(tx)

	tagOp := model.NormalizeCode(row.CompanyID)
	if err := r.tags.ResolveTx(ctx, tx, row.TagID, tagOp); err != nil {
		return model.Pass{}, err
	}
	stationOp, err := r.stations.OwnerTx(ctx, tx, row.StationID)
	if err != nil {
		return model.Pass{}, err
	}

	p := model.Pass{
		StationID: row.StationID,
		TagID:     row.TagID,
		Timestamp: row.Timestamp,
		Charge:    row.Charge,
		Type:      model.ClassifyPass(tagOp, stationOp),
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO passes (station_id, tag_id, timestamp, charge, pass_type) VALUES (?, ?, ?, ?, ?)`,
		p.StationID, p.TagID, p.Timestamp, p.Charge, string(p.Type))
	if err != nil {
		return model.Pass{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Pass{}, err
	}
	p.ID = uint64(id)

	if err := tx.Commit(); err != nil {
		return model.Pass{}, err
	}
	return p, nil
}
