// Package settlement computes the inter-operator reports: passes per
// station, passes and cost between a station operator and a tag operator,
// visitor charges per operator and the net bilateral balance.
package settlement

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/toll-settlement/internal/apperr"
	"github.com/iliyamo/toll-settlement/internal/model"
	"github.com/iliyamo/toll-settlement/internal/repository"
)

// Store is the read side the engine aggregates over.
// repository.SettlementRepo implements it against MySQL.
type Store interface {
	StationOwner(ctx context.Context, stationID string) (string, error)
	CompanyExists(ctx context.Context, companyID string) (bool, error)
	OperatorExists(ctx context.Context, companyID string) (bool, error)
	StationPasses(ctx context.Context, stationID string, w model.Window) ([]model.StationPass, error)
	OperatorPasses(ctx context.Context, stationOp, tagOp string, w model.Window) ([]model.OperatorPass, error)
	PassesCost(ctx context.Context, stationOp, tagOp string, w model.Window) (model.PassesCost, error)
	VisitorCharges(ctx context.Context, op string, w model.Window) ([]model.VisitorCharges, error)
}

// Engine validates report parameters and runs the matching aggregation.
// Parameters are checked before any aggregation query, and a report with
// nothing to show returns apperr.ErrNoContent.
type Engine struct {
	store   Store
	timeout time.Duration
}

// NewEngine returns an Engine over store.  A positive timeout bounds each
// report call.
func NewEngine(store Store, timeout time.Duration) *Engine {
	return &Engine{store: store, timeout: timeout}
}

// StationPassesReport is the pass list of one station.
type StationPassesReport struct {
	StationID       string
	StationOperator string
	Window          model.Window
	Passes          []model.StationPass
}

// PassAnalysisReport lists passes of TagOp's tags at StationOp's stations.
type PassAnalysisReport struct {
	StationOp string
	TagOp     string
	Window    model.Window
	Passes    []model.OperatorPass
}

// PassesCostReport aggregates the same selection as PassAnalysisReport.
type PassesCostReport struct {
	StationOp string
	TagOp     string
	Window    model.Window
	Cost      model.PassesCost
}

// ChargesByReport groups visitor charges at Operator's stations.
type ChargesByReport struct {
	Operator string
	Window   model.Window
	Visitors []model.VisitorCharges
}

// NetChargesReport is the bilateral balance between two operators.
type NetChargesReport struct {
	Window model.Window
	model.NetCharges
}

func (e *Engine) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.timeout > 0 {
		return context.WithTimeout(ctx, e.timeout)
	}
	return context.WithCancel(ctx)
}

// StationPasses lists the passes through stationID in the period.
func (e *Engine) StationPasses(ctx context.Context, stationID, from, to string) (*StationPassesReport, error) {
	w, err := ParsePeriod(from, to)
	if err != nil {
		return nil, err
	}
	if stationID == "" {
		return nil, apperr.Validation(apperr.CodeMissingField, "station id is required")
	}
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	owner, err := e.store.StationOwner(ctx, stationID)
	if errors.Is(err, repository.ErrStationNotFound) {
		return nil, apperr.New(apperr.KindNotFoundReference, apperr.CodeUnknownStation, "unknown station "+stationID)
	}
	if err != nil {
		return nil, apperr.Storage(err, "station lookup failed")
	}
	passes, err := e.store.StationPasses(ctx, stationID, w)
	if err != nil {
		return nil, apperr.Storage(err, "station passes query failed")
	}
	if len(passes) == 0 {
		return nil, apperr.ErrNoContent
	}
	return &StationPassesReport{StationID: stationID, StationOperator: owner, Window: w, Passes: passes}, nil
}

// PassAnalysis lists passes of tagOp's tags at stationOp's stations.
func (e *Engine) PassAnalysis(ctx context.Context, stationOp, tagOp, from, to string) (*PassAnalysisReport, error) {
	w, err := ParsePeriod(from, to)
	if err != nil {
		return nil, err
	}
	stationOp, tagOp = model.NormalizeCode(stationOp), model.NormalizeCode(tagOp)
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	if err := e.checkPair(ctx, stationOp, tagOp); err != nil {
		return nil, err
	}
	passes, err := e.store.OperatorPasses(ctx, stationOp, tagOp, w)
	if err != nil {
		return nil, apperr.Storage(err, "pass analysis query failed")
	}
	if len(passes) == 0 {
		return nil, apperr.ErrNoContent
	}
	return &PassAnalysisReport{StationOp: stationOp, TagOp: tagOp, Window: w, Passes: passes}, nil
}

// PassesCost counts and sums the passes PassAnalysis would list.
func (e *Engine) PassesCost(ctx context.Context, stationOp, tagOp, from, to string) (*PassesCostReport, error) {
	w, err := ParsePeriod(from, to)
	if err != nil {
		return nil, err
	}
	stationOp, tagOp = model.NormalizeCode(stationOp), model.NormalizeCode(tagOp)
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	if err := e.checkPair(ctx, stationOp, tagOp); err != nil {
		return nil, err
	}
	cost, err := e.store.PassesCost(ctx, stationOp, tagOp, w)
	if err != nil {
		return nil, apperr.Storage(err, "passes cost query failed")
	}
	if cost.Count == 0 {
		return nil, apperr.ErrNoContent
	}
	return &PassesCostReport{StationOp: stationOp, TagOp: tagOp, Window: w, Cost: cost}, nil
}

// ChargesBy groups visitor traffic at op's stations by visiting operator.
func (e *Engine) ChargesBy(ctx context.Context, op, from, to string) (*ChargesByReport, error) {
	w, err := ParsePeriod(from, to)
	if err != nil {
		return nil, err
	}
	op = model.NormalizeCode(op)
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	if err := e.checkCompany(ctx, op); err != nil {
		return nil, err
	}
	visitors, err := e.store.VisitorCharges(ctx, op, w)
	if err != nil {
		return nil, apperr.Storage(err, "charges query failed")
	}
	if len(visitors) == 0 {
		return nil, apperr.ErrNoContent
	}
	return &ChargesByReport{Operator: op, Window: w, Visitors: visitors}, nil
}

// NetCharges computes what op2 owes op1 minus what op1 owes op2.  A
// positive balance means op2 owes op1.
func (e *Engine) NetCharges(ctx context.Context, op1, op2, from, to string) (*NetChargesReport, error) {
	w, err := ParsePeriod(from, to)
	if err != nil {
		return nil, err
	}
	op1, op2 = model.NormalizeCode(op1), model.NormalizeCode(op2)
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	if err := e.checkCompany(ctx, op1); err != nil {
		return nil, err
	}
	if err := e.checkCompany(ctx, op2); err != nil {
		return nil, err
	}
	owedByOp2, err := e.store.PassesCost(ctx, op1, op2, w)
	if err != nil {
		return nil, apperr.Storage(err, "net charges query failed")
	}
	owedByOp1, err := e.store.PassesCost(ctx, op2, op1, w)
	if err != nil {
		return nil, apperr.Storage(err, "net charges query failed")
	}
	if owedByOp2.Total.IsZero() && owedByOp1.Total.IsZero() {
		return nil, apperr.ErrNoContent
	}
	return &NetChargesReport{Window: w, NetCharges: Balance(op1, op2, owedByOp2.Total, owedByOp1.Total)}, nil
}

// Balance builds the net position of op1 against op2.  Rounding happens
// once, on the difference.
func Balance(op1, op2 string, owedByOp2, owedByOp1 decimal.Decimal) model.NetCharges {
	return model.NetCharges{
		Op1:       op1,
		Op2:       op2,
		OwedByOp2: owedByOp2,
		OwedByOp1: owedByOp1,
		Net:       owedByOp2.Sub(owedByOp1).Round(2),
	}
}

func (e *Engine) checkPair(ctx context.Context, stationOp, tagOp string) error {
	if stationOp == "" || tagOp == "" {
		return apperr.Validation(apperr.CodeMissingField, "operator ids are required")
	}
	ok, err := e.store.OperatorExists(ctx, stationOp)
	if err != nil {
		return apperr.Storage(err, "operator lookup failed")
	}
	if !ok {
		return apperr.New(apperr.KindBadParameter, apperr.CodeNotStationOp, stationOp+" operates no stations")
	}
	return e.checkCompany(ctx, tagOp)
}

func (e *Engine) checkCompany(ctx context.Context, op string) error {
	if op == "" {
		return apperr.Validation(apperr.CodeMissingField, "operator id is required")
	}
	ok, err := e.store.CompanyExists(ctx, op)
	if err != nil {
		return apperr.Storage(err, "operator lookup failed")
	}
	if !ok {
		return apperr.New(apperr.KindNotFoundReference, apperr.CodeUnknownOperator, "unknown operator "+op)
	}
	return nil
}
