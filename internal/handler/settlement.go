package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/toll-settlement/internal/model"
	"github.com/iliyamo/toll-settlement/internal/report"
	"github.com/iliyamo/toll-settlement/internal/settlement"
)

// Reports is the settlement engine as seen by the HTTP layer.
type Reports interface {
	StationPasses(ctx context.Context, stationID, from, to string) (*settlement.StationPassesReport, error)
	PassAnalysis(ctx context.Context, stationOp, tagOp, from, to string) (*settlement.PassAnalysisReport, error)
	PassesCost(ctx context.Context, stationOp, tagOp, from, to string) (*settlement.PassesCostReport, error)
	ChargesBy(ctx context.Context, op, from, to string) (*settlement.ChargesByReport, error)
	NetCharges(ctx context.Context, op1, op2, from, to string) (*settlement.NetChargesReport, error)
}

// SettlementHandler serves the five settlement reports.
type SettlementHandler struct {
	Engine Reports
	Now    func() time.Time
}

// NewSettlementHandler returns a handler stamping responses with the wall
// clock.
func NewSettlementHandler(engine Reports) *SettlementHandler {
	return &SettlementHandler{Engine: engine, Now: time.Now}
}

// PeriodParams are the YYYYMMDD bounds shared by every report.  Calendar
// validity and ordering are checked by the engine.
type PeriodParams struct {
	From string `param:"from" validate:"required,len=8,numeric"`
	To   string `param:"to" validate:"required,len=8,numeric"`
}

type stationPassesReq struct {
	StationID string `param:"stationID" validate:"required,max=32"`
	PeriodParams
	FormatParam
}

type operatorPairReq struct {
	StationOpID string `param:"stationOpID" validate:"required,max=16"`
	TagOpID     string `param:"tagOpID" validate:"required,max=16"`
	PeriodParams
	FormatParam
}

type chargesByReq struct {
	TollOpID string `param:"tollOpID" validate:"required,max=16"`
	PeriodParams
	FormatParam
}

type netChargesReq struct {
	TollOpID1 string `param:"tollOpID1" validate:"required,max=16"`
	TollOpID2 string `param:"tollOpID2" validate:"required,max=16"`
	PeriodParams
	FormatParam
}

// TollStationPasses handles GET /tollStationPasses/:stationID/:from/:to.
func (h *SettlementHandler) TollStationPasses(c echo.Context) error {
	var req stationPassesReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	stationID := strings.ToUpper(strings.TrimSpace(req.StationID))
	rep, err := h.Engine.StationPasses(c.Request().Context(), stationID, req.From, req.To)
	if err != nil {
		return err
	}
	return render(c, req.Format, http.StatusOK, "tollStationPasses", report.NewStationPasses(rep, h.Now()))
}

// PassAnalysis handles GET /passAnalysis/:stationOpID/:tagOpID/:from/:to.
func (h *SettlementHandler) PassAnalysis(c echo.Context) error {
	var req operatorPairReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	rep, err := h.Engine.PassAnalysis(c.Request().Context(),
		model.NormalizeCode(req.StationOpID), model.NormalizeCode(req.TagOpID), req.From, req.To)
	if err != nil {
		return err
	}
	return render(c, req.Format, http.StatusOK, "passAnalysis", report.NewPassAnalysis(rep, h.Now()))
}

// PassesCost handles GET /passesCost/:stationOpID/:tagOpID/:from/:to.
func (h *SettlementHandler) PassesCost(c echo.Context) error {
	var req operatorPairReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	rep, err := h.Engine.PassesCost(c.Request().Context(),
		model.NormalizeCode(req.StationOpID), model.NormalizeCode(req.TagOpID), req.From, req.To)
	if err != nil {
		return err
	}
	return render(c, req.Format, http.StatusOK, "passesCost", report.NewPassesCost(rep, h.Now()))
}

// ChargesBy handles GET /chargesBy/:tollOpID/:from/:to.
func (h *SettlementHandler) ChargesBy(c echo.Context) error {
	var req chargesByReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	rep, err := h.Engine.ChargesBy(c.Request().Context(), model.NormalizeCode(req.TollOpID), req.From, req.To)
	if err != nil {
		return err
	}
	return render(c, req.Format, http.StatusOK, "chargesBy", report.NewChargesBy(rep, h.Now()))
}

// NetCharges handles GET /netCharges/:tollOpID1/:tollOpID2/:from/:to.
func (h *SettlementHandler) NetCharges(c echo.Context) error {
	var req netChargesReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	rep, err := h.Engine.NetCharges(c.Request().Context(),
		model.NormalizeCode(req.TollOpID1), model.NormalizeCode(req.TollOpID2), req.From, req.To)
	if err != nil {
		return err
	}
	return render(c, req.Format, http.StatusOK, "netCharges", report.NewNetCharges(rep, h.Now()))
}
