package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/toll-settlement/internal/apperr"
	"github.com/iliyamo/toll-settlement/internal/middleware"
	"github.com/iliyamo/toll-settlement/internal/model"
	"github.com/iliyamo/toll-settlement/internal/repository"
	"github.com/iliyamo/toll-settlement/internal/utils"
)

// UserStore is implemented by repository.UserRepo.
type UserStore interface {
	GetByUsername(ctx context.Context, username string) (model.User, error)
	Upsert(ctx context.Context, username, passwordHash, role, companyID string) error
}

// TokenStore is implemented by repository.TokenRepo.
type TokenStore interface {
	Store(ctx context.Context, token string, userID uint64, exp time.Time) error
	Delete(ctx context.Context, token string) error
}

// AuthHandler bundles dependencies for login and logout.
type AuthHandler struct {
	Users  UserStore
	Tokens TokenStore
	TTL    time.Duration
	Now    func() time.Time
}

func NewAuthHandler(users UserStore, tokens TokenStore, ttl time.Duration) *AuthHandler {
	return &AuthHandler{Users: users, Tokens: tokens, TTL: ttl, Now: time.Now}
}

// ----- DTOs -----

type loginReq struct {
	Username string `json:"username" form:"username" validate:"required,max=64"`
	Password string `json:"password" form:"password" validate:"required,max=128"`
}

type loginResp struct {
	Token string `json:"token"`
}

var errInvalidCredentials = apperr.New(apperr.KindAuth, apperr.CodeInvalidCredential, "invalid credentials")

// Login verifies username and password and issues a new opaque token.
// Accepts JSON or form-encoded bodies.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	username := strings.TrimSpace(req.Username)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByUsername(ctx, username)
	if errors.Is(err, repository.ErrUserNotFound) {
		return errInvalidCredentials
	}
	if err != nil {
		return apperr.Storage(err, "user lookup failed")
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return errInvalidCredentials
	}

	token, err := utils.RandomToken()
	if err != nil {
		return apperr.Wrap(err, apperr.KindInternal, apperr.CodeInternal, "issue token failed")
	}
	if err := h.Tokens.Store(ctx, token, u.ID, h.Now().Add(h.TTL)); err != nil {
		return apperr.Storage(err, "save token failed")
	}
	middleware.GetLogger(c).Info("user logged in", map[string]interface{}{"username": u.Username, "role": u.Role})
	return c.JSON(http.StatusOK, loginResp{Token: token})
}

// Logout deletes the token sent in X-OBSERVATORY-AUTH.
func (h *AuthHandler) Logout(c echo.Context) error {
	token := strings.TrimSpace(c.Request().Header.Get(middleware.AuthHeader))
	if token == "" {
		return apperr.New(apperr.KindAuth, apperr.CodeUnauthorized, "missing "+middleware.AuthHeader+" header")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	err := h.Tokens.Delete(ctx, token)
	if errors.Is(err, repository.ErrTokenNotFound) {
		return apperr.New(apperr.KindAuth, apperr.CodeUnauthorized, "invalid or expired token")
	}
	if err != nil {
		return apperr.Storage(err, "delete token failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}
