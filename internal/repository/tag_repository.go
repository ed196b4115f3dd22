package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/toll-settlement/internal/model"
)

// TagRepo upserts vehicle tags.  A tag has exactly one home operator; the
// most recent sighting wins.
type TagRepo struct {
	db *sql.DB
}

// NewTagRepo constructs a TagRepo with the given DB handle.
func NewTagRepo(db *sql.DB) *TagRepo { return &TagRepo{db: db} }

const upsertTag = `INSERT INTO vehicle_tags (tag_id, company_id) VALUES (?, ?)
	ON DUPLICATE KEY UPDATE company_id = VALUES(company_id)`

// Resolve creates the tag on first sight or overwrites its home operator.
func (r *TagRepo) Resolve(ctx context.Context, tagID, companyID string) error {
	_, err := r.db.ExecContext(ctx, upsertTag, tagID, model.NormalizeCode(companyID))
	return err
}

// ResolveTx is Resolve inside the caller's transaction.
func (r *TagRepo) ResolveTx(ctx context.Context, tx *sql.Tx, tagID, companyID string) error {
	_, err := tx.ExecContext(ctx, upsertTag, tagID, model.NormalizeCode(companyID))
	return err
}
