package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/toll-settlement/internal/middleware"
	"github.com/iliyamo/toll-settlement/internal/repository"
)

// Health is the liveness probe used by load balancers.  It never touches
// storage.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// HealthChecker is implemented by repository.HealthRepo.
type HealthChecker interface {
	Ping(ctx context.Context) error
	Counts(ctx context.Context) (repository.Counts, error)
}

// HealthHandler serves the admin healthcheck.
type HealthHandler struct {
	Repo HealthChecker
	// DBConnection is reported as-is; it must not carry the password.
	DBConnection string
}

type healthResp struct {
	Status       string `json:"status"`
	DBConnection string `json:"dbconnection"`
	NStations    *int64 `json:"n_stations,omitempty"`
	NTags        *int64 `json:"n_tags,omitempty"`
	NPasses      *int64 `json:"n_passes,omitempty"`
}

// Check reports storage reachability and the size of the settlement data.
func (h *HealthHandler) Check(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	failed := healthResp{Status: "failed", DBConnection: h.DBConnection}
	if err := h.Repo.Ping(ctx); err != nil {
		middleware.GetLogger(c).Error("healthcheck ping failed", err, nil)
		return c.JSON(http.StatusInternalServerError, failed)
	}
	n, err := h.Repo.Counts(ctx)
	if err != nil {
		middleware.GetLogger(c).Error("healthcheck counts failed", err, nil)
		return c.JSON(http.StatusInternalServerError, failed)
	}
	return c.JSON(http.StatusOK, healthResp{
		Status:       "OK",
		DBConnection: h.DBConnection,
		NStations:    &n.Stations,
		NTags:        &n.Tags,
		NPasses:      &n.Passes,
	})
}
