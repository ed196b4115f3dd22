package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/toll-settlement/internal/apperr"
	"github.com/iliyamo/toll-settlement/internal/model"
	"github.com/iliyamo/toll-settlement/internal/repository"
)

// AuthHeader carries the opaque token issued at login.
const AuthHeader = "X-OBSERVATORY-AUTH"

// TokenLookup resolves a token to its owner.  repository.TokenRepo
// implements it.
type TokenLookup interface {
	Lookup(ctx context.Context, token string) (model.User, error)
}

// TokenAuth rejects requests without a valid X-OBSERVATORY-AUTH token and
// stores the token's owner in the context for RequireRole and handlers.
func TokenAuth(tokens TokenLookup) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := strings.TrimSpace(c.Request().Header.Get(AuthHeader))
			if raw == "" {
				return apperr.New(apperr.KindAuth, apperr.CodeUnauthorized, "missing "+AuthHeader+" header")
			}
			u, err := tokens.Lookup(c.Request().Context(), raw)
			if errors.Is(err, repository.ErrTokenNotFound) {
				return apperr.New(apperr.KindAuth, apperr.CodeUnauthorized, "invalid or expired token")
			}
			if err != nil {
				return apperr.Storage(err, "token lookup failed")
			}
			c.Set(userKey, u)
			c.Set(tokenKey, raw)
			return next(c)
		}
	}
}
