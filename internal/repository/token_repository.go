package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/toll-settlement/internal/model"
)

// TokenRepo persists the opaque X-OBSERVATORY-AUTH tokens.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// Store inserts a token row.
func (r *TokenRepo) Store(ctx context.Context, token string, userID uint64, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO auth_tokens (token, user_id, expires_at) VALUES (?,?,?)",
		token, userID, exp)
	return err
}

// Lookup returns the owner of a non-expired token, or ErrTokenNotFound.
func (r *TokenRepo) Lookup(ctx context.Context, token string) (model.User, error) {
	var (
		u         model.User
		company   sql.NullString
		expiresAt time.Time
	)
	err := r.DB.QueryRowContext(ctx,
		`SELECT u.id, u.username, u.role, u.company_id, t.expires_at
		 FROM auth_tokens t JOIN users u ON u.id = t.user_id
		 WHERE t.token = ? LIMIT 1`,
		token).Scan(&u.ID, &u.Username, &u.Role, &company, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrTokenNotFound
	}
	if err != nil {
		return model.User{}, err
	}
	if time.Now().UTC().After(expiresAt) {
		return model.User{}, ErrTokenNotFound
	}
	u.CompanyID = company.String
	return u, nil
}

// Delete removes a token.  It returns ErrTokenNotFound when no row matched.
func (r *TokenRepo) Delete(ctx context.Context, token string) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM auth_tokens WHERE token = ?", token)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrTokenNotFound
	}
	return nil
}

// PurgeExpired removes tokens past their expiry and returns how many went.
func (r *TokenRepo) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM auth_tokens WHERE expires_at < ?", time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
