package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/toll-settlement/internal/handler"
	"github.com/iliyamo/toll-settlement/internal/middleware"
	"github.com/iliyamo/toll-settlement/internal/model"
)

// Guards are the per-route middlewares built in main.  Nil entries are
// skipped, which keeps tests free of Redis and storage.
type Guards struct {
	Auth        echo.MiddlewareFunc // TokenAuth
	LoginLimit  echo.MiddlewareFunc // limiter on POST /login
	ReportLimit echo.MiddlewareFunc // per-operator limiter on the reports
	AdminLimit  echo.MiddlewareFunc // per-account limiter on admin writes
	Cache       echo.MiddlewareFunc // report response cache
	ImportLock  *middleware.ImportLock
}

func chain(mws ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
	out := make([]echo.MiddlewareFunc, 0, len(mws))
	for _, m := range mws {
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}

// RegisterRoutes registers routes that live outside /api.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers login and logout.  Logout validates the token
// itself so an expired token still gets a 401 rather than a 403.
func RegisterAuth(api *echo.Group, a *handler.AuthHandler, g Guards) {
	api.POST("/login", a.Login, chain(g.LoginLimit)...)
	api.POST("/logout", a.Logout)
}

// RegisterReports registers the settlement reports.  Any authenticated
// user may read them within their operator's budget; successful responses
// are cached.
func RegisterReports(api *echo.Group, s *handler.SettlementHandler, g Guards) {
	mw := chain(g.Auth, g.ReportLimit, g.Cache)
	api.GET("/tollStationPasses/:stationID/:from/:to", s.TollStationPasses, mw...)
	api.GET("/passAnalysis/:stationOpID/:tagOpID/:from/:to", s.PassAnalysis, mw...)
	api.GET("/passesCost/:stationOpID/:tagOpID/:from/:to", s.PassesCost, mw...)
	api.GET("/chargesBy/:tollOpID/:from/:to", s.ChargesBy, mw...)
	api.GET("/netCharges/:tollOpID1/:tollOpID2/:from/:to", s.NetCharges, mw...)
}

// RegisterCatalog registers the public reference-data lists.
func RegisterCatalog(api *echo.Group, c *handler.CatalogHandler) {
	api.GET("/operators", c.Operators)
	api.GET("/stations", c.Stations)
	api.GET("/tollStations", c.TollStations)
	api.GET("/mapStations", c.MapStations)
}

// RegisterAdmin registers /admin.  The healthcheck is public; everything
// else needs an ADMIN token, and data writes hold the import lock.
func RegisterAdmin(api *echo.Group, a *handler.AdminHandler, h *handler.HealthHandler, g Guards) {
	api.GET("/admin/healthcheck", h.Check)

	var exclusive echo.MiddlewareFunc
	if g.ImportLock != nil {
		exclusive = g.ImportLock.Exclusive()
	}
	admin := chain(g.Auth, middleware.RequireRole(model.RoleAdmin), g.AdminLimit)
	writes := chain(g.Auth, middleware.RequireRole(model.RoleAdmin), g.AdminLimit, exclusive)

	api.POST("/admin/addpasses", a.AddPasses, writes...)
	api.POST("/admin/resetpasses", a.ResetPasses, writes...)
	api.POST("/admin/resetstations", a.ResetStations, writes...)
	api.POST("/admin/usermod", a.Usermod, admin...)
}
