package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// StationPass is one row of the station passes report: a pass joined with
// the tag's current home operator.
type StationPass struct {
	PassID      uint64
	Timestamp   time.Time
	TagID       string
	TagProvider string
	Type        PassType
	Charge      decimal.Decimal
}

// OperatorPass is one row of the pass analysis report.
type OperatorPass struct {
	PassID    uint64
	StationID string
	Timestamp time.Time
	TagID     string
	Charge    decimal.Decimal
}

// PassesCost aggregates passes of one tag operator at one station operator.
type PassesCost struct {
	Count int64
	Total decimal.Decimal
}

// VisitorCharges aggregates visitor passes of one visiting operator.
type VisitorCharges struct {
	VisitingOpID string
	Count        int64
	Total        decimal.Decimal
}

// NetCharges is the bilateral balance between Op1 and Op2.
//
// Fields:
//  OwedByOp2 – charges at Op1's stations by Op2's tags (Op2 owes Op1).
//  OwedByOp1 – charges at Op2's stations by Op1's tags (Op1 owes Op2).
//  Net       – OwedByOp2 − OwedByOp1 rounded to two decimals; positive
//              means Op2 owes Op1.
type NetCharges struct {
	Op1       string
	Op2       string
	OwedByOp2 decimal.Decimal
	OwedByOp1 decimal.Decimal
	Net       decimal.Decimal
}
