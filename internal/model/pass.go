package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PassType is the stored home/visitor classification of a crossing.
type PassType string

const (
	PassHome    PassType = "home"
	PassVisitor PassType = "visitor"
)

// Pass records one vehicle crossing a toll station.
//
// Fields:
//  ID        – surrogate key assigned by AUTO_INCREMENT.
//  StationID – crossed station.
//  TagID     – crossing transponder.
//  Timestamp – time of the crossing.
//  Charge    – amount charged, non-negative, two decimals.
//  Type      – classification taken when the pass was ingested.  It is
//              never recomputed, even if the tag's home operator changes.
type Pass struct {
	ID        uint64          // passes.pass_id
	StationID string          // passes.station_id
	TagID     string          // passes.tag_id
	Timestamp time.Time       // passes.timestamp
	Charge    decimal.Decimal // passes.charge
	Type      PassType        // passes.pass_type
}

// ClassifyPass returns PassHome when the tag's home operator and the
// station's operator are the same code, PassVisitor otherwise.  Callers
// normalise both codes before comparing.
func ClassifyPass(tagOperator, stationOperator string) PassType {
	if tagOperator == stationOperator {
		return PassHome
	}
	return PassVisitor
}

// PassRow is one decoded line of a passes file, before resolution.
// CompanyID is the tag's home operator as written in the file.
type PassRow struct {
	Line      int
	Timestamp time.Time
	StationID string
	TagID     string
	CompanyID string
	Charge    decimal.Decimal
}
