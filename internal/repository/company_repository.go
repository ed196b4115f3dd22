package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/toll-settlement/internal/model"
)

// CompanyRepo reads and writes toll_companies.
type CompanyRepo struct {
	db *sql.DB
}

// NewCompanyRepo constructs a CompanyRepo with the given DB handle.
func NewCompanyRepo(db *sql.DB) *CompanyRepo { return &CompanyRepo{db: db} }

// Exists reports whether companyID is a known toll company.
func (r *CompanyRepo) Exists(ctx context.Context, companyID string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		"SELECT 1 FROM toll_companies WHERE company_id = ? LIMIT 1",
		model.NormalizeCode(companyID)).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// List returns every company ordered by id.
func (r *CompanyRepo) List(ctx context.Context) ([]model.TollCompany, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT company_id, company_name FROM toll_companies ORDER BY company_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.TollCompany
	for rows.Next() {
		var c model.TollCompany
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpsertBulkTx writes companies in a single multi-row statement.  An
// existing company_id keeps its row and takes the new name.
func (r *CompanyRepo) UpsertBulkTx(ctx context.Context, tx *sql.Tx, companies []model.TollCompany) error {
	if len(companies) == 0 {
		return nil
	}
	query := "INSERT INTO toll_companies (company_id, company_name) VALUES "
	args := make([]interface{}, 0, len(companies)*2)
	for i, c := range companies {
		if i > 0 {
			query += ","
		}
		query += "(?, ?)"
		args = append(args, c.ID, c.Name)
	}
	query += " ON DUPLICATE KEY UPDATE company_name = VALUES(company_name)"
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}
