package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/toll-settlement/internal/model"
)

// stationChunk caps the number of rows per multi-row INSERT so a large
// reference file stays under max_allowed_packet.
const stationChunk = 500

const stationColumns = `station_id, company_id, station_name, position_marker, locality, road,
	latitude, longitude, email, price1, price2, price3, price4`

// StationRepo provides station lookups for the resolver, the settlement
// engine and the catalog endpoints.
type StationRepo struct {
	db *sql.DB
}

// NewStationRepo constructs a StationRepo with the given DB handle.
func NewStationRepo(db *sql.DB) *StationRepo { return &StationRepo{db: db} }

// Owner returns the operator that owns stationID, or ErrStationNotFound.
func (r *StationRepo) Owner(ctx context.Context, stationID string) (string, error) {
	return stationOwner(ctx, r.db, stationID)
}

// OwnerTx is Owner inside the caller's transaction.
func (r *StationRepo) OwnerTx(ctx context.Context, tx *sql.Tx, stationID string) (string, error) {
	return stationOwner(ctx, tx, stationID)
}

func stationOwner(ctx context.Context, q querier, stationID string) (string, error) {
	var companyID string
	err := q.QueryRowContext(ctx,
		"SELECT company_id FROM toll_stations WHERE station_id = ?",
		strings.TrimSpace(stationID)).Scan(&companyID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrStationNotFound
		}
		return "", err
	}
	return companyID, nil
}

// Exists reports whether stationID is a known station.
func (r *StationRepo) Exists(ctx context.Context, stationID string) (bool, error) {
	_, err := r.Owner(ctx, stationID)
	if errors.Is(err, ErrStationNotFound) {
		return false, nil
	}
	return err == nil, err
}

// OperatorExists reports whether companyID owns at least one station.
func (r *StationRepo) OperatorExists(ctx context.Context, companyID string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		"SELECT 1 FROM toll_stations WHERE company_id = ? LIMIT 1",
		model.NormalizeCode(companyID)).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// List returns all stations ordered by operator then station id.  An empty
// companyID returns every station.
func (r *StationRepo) List(ctx context.Context, companyID string) ([]model.TollStation, error) {
	q := "SELECT " + stationColumns + " FROM toll_stations"
	var args []interface{}
	if companyID != "" {
		q += " WHERE company_id = ?"
		args = append(args, model.NormalizeCode(companyID))
	}
	q += " ORDER BY company_id, station_id"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.TollStation
	for rows.Next() {
		var s model.TollStation
		if err := rows.Scan(
			&s.ID, &s.CompanyID, &s.Name, &s.PositionMarker, &s.Locality, &s.Road,
			&s.Latitude, &s.Longitude, &s.Email, &s.Price1, &s.Price2, &s.Price3, &s.Price4,
		); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// InsertBulkTx inserts stations with multi-row statements of at most
// stationChunk rows each, all inside tx.
func (r *StationRepo) InsertBulkTx(ctx context.Context, tx *sql.Tx, stations []model.TollStation) error {
	for start := 0; start < len(stations); start += stationChunk {
		end := start + stationChunk
		if end > len(stations) {
			end = len(stations)
		}
		batch := stations[start:end]

		var sb strings.Builder
		sb.WriteString("INSERT INTO toll_stations (" + stationColumns + ") VALUES ")
		args := make([]interface{}, 0, len(batch)*13)
		for i, s := range batch {
			if i > 0 {
				sb.WriteString(",")
			}
			sb.WriteString("(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				s.ID, s.CompanyID, s.Name, s.PositionMarker, s.Locality, s.Road,
				s.Latitude, s.Longitude, s.Email, s.Price1, s.Price2, s.Price3, s.Price4)
		}
		if _, err := tx.ExecContext(ctx, sb.String(), args...); err != nil {
			return err
		}
	}
	return nil
}
