package middleware

// identity.go holds the context keys set by TokenAuth and the helpers that
// read them back.  Unauthenticated requests report "guest".

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/toll-settlement/internal/model"
)

const (
	userKey  = "user"
	tokenKey = "auth_token"
)

// CurrentUser returns the authenticated user, if any.
func CurrentUser(c echo.Context) (model.User, bool) {
	u, ok := c.Get(userKey).(model.User)
	return u, ok
}

// AuthToken returns the raw token the request was authenticated with.
func AuthToken(c echo.Context) string {
	s, _ := c.Get(tokenKey).(string)
	return s
}

// userID returns the authenticated user id as a string, or "guest".
func userID(c echo.Context) string {
	if u, ok := CurrentUser(c); ok {
		return strconv.FormatUint(u.ID, 10)
	}
	return "guest"
}
