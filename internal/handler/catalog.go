package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/toll-settlement/internal/apperr"
	"github.com/iliyamo/toll-settlement/internal/model"
	"github.com/iliyamo/toll-settlement/internal/report"
)

// CompanyLister is implemented by repository.CompanyRepo.
type CompanyLister interface {
	List(ctx context.Context) ([]model.TollCompany, error)
}

// StationLister is implemented by repository.StationRepo.
type StationLister interface {
	List(ctx context.Context, companyID string) ([]model.TollStation, error)
}

// CatalogHandler serves the reference data used by clients to fill their
// pickers and the station map.
type CatalogHandler struct {
	CompanyRepo CompanyLister
	StationRepo StationLister
}

type stationsReq struct {
	Operator string `query:"operator" validate:"omitempty,max=16"`
	FormatParam
}

// Operators lists every toll company.
func (h *CatalogHandler) Operators(c echo.Context) error {
	companies, err := h.CompanyRepo.List(c.Request().Context())
	if err != nil {
		return apperr.Storage(err, "operators query failed")
	}
	return c.JSON(http.StatusOK, report.NewOperators(companies))
}

// Stations lists station ids and names, optionally for one operator.
func (h *CatalogHandler) Stations(c echo.Context) error {
	stations, _, err := h.list(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, report.NewStationNames(stations))
}

// TollStations lists every station with its coordinates.
func (h *CatalogHandler) TollStations(c echo.Context) error {
	stations, _, err := h.list(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, report.NewStationLocations(stations))
}

// MapStations lists station markers with their operator, as JSON or CSV.
func (h *CatalogHandler) MapStations(c echo.Context) error {
	stations, format, err := h.list(c)
	if err != nil {
		return err
	}
	return render(c, format, http.StatusOK, "mapStations", report.NewMapStations(stations))
}

func (h *CatalogHandler) list(c echo.Context) ([]model.TollStation, string, error) {
	var req stationsReq
	if err := bindAndValidate(c, &req); err != nil {
		return nil, "", err
	}
	stations, err := h.StationRepo.List(c.Request().Context(), req.Operator)
	if err != nil {
		return nil, "", apperr.Storage(err, "stations query failed")
	}
	if len(stations) == 0 {
		return nil, "", apperr.ErrNoContent
	}
	return stations, req.Format, nil
}
