package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/toll-settlement/internal/model"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Upsert creates username or replaces its password hash, role and company.
func (r *UserRepo) Upsert(ctx context.Context, username, passwordHash, role, companyID string) error {
	var company interface{}
	if companyID != "" {
		company = model.NormalizeCode(companyID)
	}
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, role, company_id) VALUES (?,?,?,?)
		 ON DUPLICATE KEY UPDATE password_hash = VALUES(password_hash), role = VALUES(role), company_id = VALUES(company_id)`,
		strings.TrimSpace(username), passwordHash, role, company)
	return err
}

// GetByUsername fetches a user by login name.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (model.User, error) {
	var (
		u       model.User
		company sql.NullString
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, username, password_hash, role, company_id, created_at FROM users WHERE username = ? LIMIT 1",
		strings.TrimSpace(username)).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &company, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrUserNotFound
	}
	if err != nil {
		return model.User{}, err
	}
	u.CompanyID = company.String
	return u, nil
}
