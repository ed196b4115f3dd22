package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/toll-settlement/internal/model"
)

// SettlementRepo runs the aggregation queries behind the settlement
// reports.  Every query joins passes to the station (station operator)
// and to the tag (tag operator) and filters on the half-open window
// [w.Start, w.End).
type SettlementRepo struct {
	db *sql.DB
}

// NewSettlementRepo returns a SettlementRepo bound to db.
func NewSettlementRepo(db *sql.DB) *SettlementRepo { return &SettlementRepo{db: db} }

// StationPasses lists the passes of one station ordered by timestamp, each
// with the tag's current home operator.
func (r *SettlementRepo) StationPasses(ctx context.Context, stationID string, w model.Window) ([]model.StationPass, error) {
	const q = `SELECT p.pass_id, p.timestamp, p.tag_id, v.company_id, p.pass_type, p.charge
	           FROM passes p
	           JOIN vehicle_tags v ON v.tag_id = p.tag_id
	           WHERE p.station_id = ? AND p.timestamp >= ? AND p.timestamp < ?
	           ORDER BY p.timestamp ASC, p.pass_id ASC`
	rows, err := r.db.QueryContext(ctx, q, stationID, w.Start, w.End)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.StationPass
	for rows.Next() {
		var (
			sp  model.StationPass
			typ string
		)
		if err := rows.Scan(&sp.PassID, &sp.Timestamp, &sp.TagID, &sp.TagProvider, &typ, &sp.Charge); err != nil {
			return nil, err
		}
		sp.Type = model.PassType(typ)
		out = append(out, sp)
	}
	return out, rows.Err()
}

// OperatorPasses lists passes at stationOp's stations made with tagOp's tags.
func (r *SettlementRepo) OperatorPasses(ctx context.Context, stationOp, tagOp string, w model.Window) ([]model.OperatorPass, error) {
	const q = `SELECT p.pass_id, p.station_id, p.timestamp, p.tag_id, p.charge
	           FROM passes p
	           JOIN toll_stations t ON t.station_id = p.station_id
	           JOIN vehicle_tags v ON v.tag_id = p.tag_id
	           WHERE t.company_id = ? AND v.company_id = ?
	             AND p.timestamp >= ? AND p.timestamp < ?
	           ORDER BY p.timestamp ASC, p.pass_id ASC`
	rows, err := r.db.QueryContext(ctx, q, stationOp, tagOp, w.Start, w.End)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.OperatorPass
	for rows.Next() {
		var op model.OperatorPass
		if err := rows.Scan(&op.PassID, &op.StationID, &op.Timestamp, &op.TagID, &op.Charge); err != nil {
			return nil, err
		}
		out = append(out, op)
	}
	return out, rows.Err()
}

// PassesCost counts and sums passes at stationOp's stations made with
// tagOp's tags.  No matching rows yields {0, 0}.
func (r *SettlementRepo) PassesCost(ctx context.Context, stationOp, tagOp string, w model.Window) (model.PassesCost, error) {
	const q = `SELECT COUNT(*), COALESCE(SUM(p.charge), 0)
	           FROM passes p
	           JOIN toll_stations t ON t.station_id = p.station_id
	           JOIN vehicle_tags v ON v.tag_id = p.tag_id
	           WHERE t.company_id = ? AND v.company_id = ?
	             AND p.timestamp >= ? AND p.timestamp < ?`
	var pc model.PassesCost
	if err := r.db.QueryRowContext(ctx, q, stationOp, tagOp, w.Start, w.End).Scan(&pc.Count, &pc.Total); err != nil {
		return model.PassesCost{}, err
	}
	return pc, nil
}

// VisitorCharges groups visitor traffic at op's stations by the visiting
// tag operator.
func (r *SettlementRepo) VisitorCharges(ctx context.Context, op string, w model.Window) ([]model.VisitorCharges, error) {
	const q = `SELECT v.company_id, COUNT(*), COALESCE(SUM(p.charge), 0)
	           FROM passes p
	           JOIN toll_stations t ON t.station_id = p.station_id
	           JOIN vehicle_tags v ON v.tag_id = p.tag_id
	           WHERE t.company_id = ? AND v.company_id <> t.company_id
	             AND p.timestamp >= ? AND p.timestamp < ?
	           GROUP BY v.company_id
	           ORDER BY v.company_id`
	rows, err := r.db.QueryContext(ctx, q, op, w.Start, w.End)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.VisitorCharges
	for rows.Next() {
		var vc model.VisitorCharges
		if err := rows.Scan(&vc.VisitingOpID, &vc.Count, &vc.Total); err != nil {
			return nil, err
		}
		out = append(out, vc)
	}
	return out, rows.Err()
}

// StationOwner returns the current operator of stationID or
// ErrStationNotFound.
func (r *SettlementRepo) StationOwner(ctx context.Context, stationID string) (string, error) {
	return stationOwner(ctx, r.db, stationID)
}

// CompanyExists reports whether companyID is a toll company.
func (r *SettlementRepo) CompanyExists(ctx context.Context, companyID string) (bool, error) {
	return NewCompanyRepo(r.db).Exists(ctx, companyID)
}

// OperatorExists reports whether companyID owns at least one station.
func (r *SettlementRepo) OperatorExists(ctx context.Context, companyID string) (bool, error) {
	return NewStationRepo(r.db).OperatorExists(ctx, companyID)
}
