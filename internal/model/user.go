package model

import "time"

// Roles accepted in users.role.
const (
	RoleOperator = "OPERATOR"
	RoleAdmin    = "ADMIN"
)

// User represents an account as stored in the `users` table.  Operator
// accounts may be attached to a toll company; admins are not.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Username     – unique login name.
//  PasswordHash – bcrypt hashed password.
//  Role         – OPERATOR or ADMIN.
//  CompanyID    – operator code for OPERATOR accounts, empty otherwise.
//  CreatedAt    – timestamp of creation.
type User struct {
	ID           uint64    // users.id
	Username     string    // users.username
	PasswordHash string    // users.password_hash
	Role         string    // users.role
	CompanyID    string    // users.company_id (nullable)
	CreatedAt    time.Time // users.created_at
}

// AuthToken models an entry in the `auth_tokens` table.  The token is the
// opaque hex string handed to the client at login and sent back in the
// X-OBSERVATORY-AUTH header; it is deleted at logout.
//
// Fields:
//  Token     – 64 hex characters, primary key.
//  UserID    – owner of the token.
//  ExpiresAt – the token is rejected after this instant.
//  CreatedAt – timestamp of creation.
type AuthToken struct {
	Token     string    // auth_tokens.token
	UserID    uint64    // auth_tokens.user_id
	ExpiresAt time.Time // auth_tokens.expires_at
	CreatedAt time.Time // auth_tokens.created_at
}
