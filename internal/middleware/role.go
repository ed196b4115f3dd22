package middleware // middleware provides shared request processing for handlers

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/toll-settlement/internal/apperr"
)

// RequireRole aborts with 403 unless the user stored by TokenAuth has one
// of roles.  It must run after TokenAuth.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u, ok := CurrentUser(c)
			if !ok {
				return apperr.New(apperr.KindAuth, apperr.CodeUnauthorized, "authentication required")
			}
			if !allowed[u.Role] {
				return apperr.New(apperr.KindForbidden, apperr.CodeForbidden, "role "+u.Role+" may not access this resource")
			}
			return next(c)
		}
	}
}
