package report

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/iliyamo/toll-settlement/internal/model"
	"github.com/iliyamo/toll-settlement/internal/settlement"
)

// CSVWriter is implemented by every envelope that has a CSV projection.
type CSVWriter interface {
	WriteCSV(w io.Writer) error
}

func stamp(t time.Time) string { return t.UTC().Format(model.SQLTimeLayout) }

func itoa(n int64) string { return strconv.FormatInt(n, 10) }

func writeAll(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}

// Period holds the fields shared by every report envelope.
type Period struct {
	RequestTimestamp string `json:"requestTimestamp"`
	PeriodFrom       string `json:"periodFrom"`
	PeriodTo         string `json:"periodTo"`
}

func period(w model.Window, now time.Time) Period {
	return Period{
		RequestTimestamp: now.UTC().Format(time.RFC3339),
		PeriodFrom:       w.PeriodFrom(),
		PeriodTo:         w.PeriodTo(),
	}
}

// StationPassItem is one entry of StationPasses.PassList.
type StationPassItem struct {
	PassIndex   int    `json:"passIndex"`
	PassID      uint64 `json:"passID"`
	Timestamp   string `json:"timestamp"`
	TagID       string `json:"tagID"`
	TagProvider string `json:"tagProvider"`
	PassType    string `json:"passType"`
	PassCharge  Money  `json:"passCharge"`
}

// StationPasses is the tollStationPasses envelope.
type StationPasses struct {
	StationID       string `json:"stationID"`
	StationOperator string `json:"stationOperator"`
	Period
	NPasses  int               `json:"nPasses"`
	PassList []StationPassItem `json:"passList"`
}

// NewStationPasses shapes rep; passIndex counts from 1.
func NewStationPasses(rep *settlement.StationPassesReport, now time.Time) StationPasses {
	env := StationPasses{
		StationID:       rep.StationID,
		StationOperator: rep.StationOperator,
		Period:          period(rep.Window, now),
		NPasses:         len(rep.Passes),
		PassList:        make([]StationPassItem, 0, len(rep.Passes)),
	}
	for i, p := range rep.Passes {
		env.PassList = append(env.PassList, StationPassItem{
			PassIndex:   i + 1,
			PassID:      p.PassID,
			Timestamp:   stamp(p.Timestamp),
			TagID:       p.TagID,
			TagProvider: p.TagProvider,
			PassType:    string(p.Type),
			PassCharge:  NewMoney(p.Charge),
		})
	}
	return env
}

// WriteCSV writes one row per pass, each repeating the header fields.
func (e StationPasses) WriteCSV(w io.Writer) error {
	header := []string{"stationID", "stationOperator", "requestTimestamp", "periodFrom", "periodTo", "nPasses",
		"passIndex", "passID", "timestamp", "tagID", "tagProvider", "passType", "passCharge"}
	rows := make([][]string, 0, len(e.PassList))
	for _, p := range e.PassList {
		rows = append(rows, []string{e.StationID, e.StationOperator, e.RequestTimestamp, e.PeriodFrom, e.PeriodTo,
			strconv.Itoa(e.NPasses), strconv.Itoa(p.PassIndex), strconv.FormatUint(p.PassID, 10), p.Timestamp,
			p.TagID, p.TagProvider, p.PassType, p.PassCharge.String()})
	}
	return writeAll(w, header, rows)
}

// OperatorPassItem is one entry of PassAnalysis.PassList.
type OperatorPassItem struct {
	PassIndex  int    `json:"passIndex"`
	PassID     uint64 `json:"passID"`
	StationID  string `json:"stationID"`
	Timestamp  string `json:"timestamp"`
	TagID      string `json:"tagID"`
	PassCharge Money  `json:"passCharge"`
}

// PassAnalysis is the passAnalysis envelope.
type PassAnalysis struct {
	StationOpID string `json:"stationOpID"`
	TagOpID     string `json:"tagOpID"`
	Period
	NPasses  int                `json:"nPasses"`
	PassList []OperatorPassItem `json:"passList"`
}

// NewPassAnalysis shapes rep.
func NewPassAnalysis(rep *settlement.PassAnalysisReport, now time.Time) PassAnalysis {
	env := PassAnalysis{
		StationOpID: rep.StationOp,
		TagOpID:     rep.TagOp,
		Period:      period(rep.Window, now),
		NPasses:     len(rep.Passes),
		PassList:    make([]OperatorPassItem, 0, len(rep.Passes)),
	}
	for i, p := range rep.Passes {
		env.PassList = append(env.PassList, OperatorPassItem{
			PassIndex:  i + 1,
			PassID:     p.PassID,
			StationID:  p.StationID,
			Timestamp:  stamp(p.Timestamp),
			TagID:      p.TagID,
			PassCharge: NewMoney(p.Charge),
		})
	}
	return env
}

// WriteCSV writes the pass list.
func (e PassAnalysis) WriteCSV(w io.Writer) error {
	header := []string{"passIndex", "passID", "stationID", "timestamp", "tagID", "passCharge"}
	rows := make([][]string, 0, len(e.PassList))
	for _, p := range e.PassList {
		rows = append(rows, []string{strconv.Itoa(p.PassIndex), strconv.FormatUint(p.PassID, 10), p.StationID,
			p.Timestamp, p.TagID, p.PassCharge.String()})
	}
	return writeAll(w, header, rows)
}

// PassesCost is the passesCost envelope.
type PassesCost struct {
	TollOpID string `json:"tollOpID"`
	TagOpID  string `json:"tagOpID"`
	Period
	NPasses    int64 `json:"nPasses"`
	PassesCost Money `json:"passesCost"`
}

// NewPassesCost shapes rep.
func NewPassesCost(rep *settlement.PassesCostReport, now time.Time) PassesCost {
	return PassesCost{
		TollOpID:   rep.StationOp,
		TagOpID:    rep.TagOp,
		Period:     period(rep.Window, now),
		NPasses:    rep.Cost.Count,
		PassesCost: NewMoney(rep.Cost.Total),
	}
}

// WriteCSV writes the envelope as a single row.
func (e PassesCost) WriteCSV(w io.Writer) error {
	return writeAll(w,
		[]string{"tollOpID", "tagOpID", "requestTimestamp", "periodFrom", "periodTo", "nPasses", "passesCost"},
		[][]string{{e.TollOpID, e.TagOpID, e.RequestTimestamp, e.PeriodFrom, e.PeriodTo, itoa(e.NPasses), e.PassesCost.String()}})
}

// VisitorItem is one entry of ChargesBy.VOpList.
type VisitorItem struct {
	VisitingOpID string `json:"visitingOpID"`
	NPasses      int64  `json:"nPasses"`
	PassesCost   Money  `json:"passesCost"`
}

// ChargesBy is the chargesBy envelope.
type ChargesBy struct {
	TollOpID string `json:"tollOpID"`
	Period
	VOpList []VisitorItem `json:"vOpList"`
}

// NewChargesBy shapes rep.
func NewChargesBy(rep *settlement.ChargesByReport, now time.Time) ChargesBy {
	env := ChargesBy{
		TollOpID: rep.Operator,
		Period:   period(rep.Window, now),
		VOpList:  make([]VisitorItem, 0, len(rep.Visitors)),
	}
	for _, v := range rep.Visitors {
		env.VOpList = append(env.VOpList, VisitorItem{VisitingOpID: v.VisitingOpID, NPasses: v.Count, PassesCost: NewMoney(v.Total)})
	}
	return env
}

// WriteCSV writes the visiting operator list.
func (e ChargesBy) WriteCSV(w io.Writer) error {
	rows := make([][]string, 0, len(e.VOpList))
	for _, v := range e.VOpList {
		rows = append(rows, []string{v.VisitingOpID, itoa(v.NPasses), v.PassesCost.String()})
	}
	return writeAll(w, []string{"visitingOpID", "nPasses", "passesCost"}, rows)
}

// NetCharges is the netCharges envelope.  PassesCostOpID2 is what operator
// 2 owes operator 1 and PassesCostOpID1 the reverse.
type NetCharges struct {
	TollOpID1 string `json:"tollOpID1"`
	TollOpID2 string `json:"tollOpID2"`
	Period
	PassesCostOpID2 Money `json:"passesCostOpID2"`
	PassesCostOpID1 Money `json:"passesCostOpID1"`
	NetCharges      Money `json:"netCharges"`
}

// NewNetCharges shapes rep.
func NewNetCharges(rep *settlement.NetChargesReport, now time.Time) NetCharges {
	return NetCharges{
		TollOpID1:       rep.Op1,
		TollOpID2:       rep.Op2,
		Period:          period(rep.Window, now),
		PassesCostOpID2: NewMoney(rep.OwedByOp2),
		PassesCostOpID1: NewMoney(rep.OwedByOp1),
		NetCharges:      NewMoney(rep.Net),
	}
}

// WriteCSV writes the envelope as a single row.
func (e NetCharges) WriteCSV(w io.Writer) error {
	return writeAll(w,
		[]string{"tollOpID1", "tollOpID2", "requestTimestamp", "periodFrom", "periodTo", "passesCostOpID2", "passesCostOpID1", "netCharges"},
		[][]string{{e.TollOpID1, e.TollOpID2, e.RequestTimestamp, e.PeriodFrom, e.PeriodTo,
			e.PassesCostOpID2.String(), e.PassesCostOpID1.String(), e.NetCharges.String()}})
}
