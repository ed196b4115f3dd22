// Package ingest turns a passes file into stored passes.  Rows are decoded
// against a fixed positional schema, written through a bounded worker pool
// and reported per row: imported, skipped or failed.
package ingest

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/toll-settlement/internal/apperr"
	"github.com/iliyamo/toll-settlement/internal/model"
)

// Column positions in a passes file.
const (
	colTimestamp = iota
	colStation
	colTag
	colCompany
	colCharge
)

// timestampLayouts are tried in order.  Values without a zone are UTC.
var timestampLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// Skip explains why a row was not imported.
type Skip struct {
	Line   int    `json:"line"`
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

func (s *Skip) Error() string { return fmt.Sprintf("line %d: %s", s.Line, s.Reason) }

func skip(line int, code, format string, args ...interface{}) *Skip {
	return &Skip{Line: line, Code: code, Reason: fmt.Sprintf(format, args...)}
}

// DecodeRow decodes one record.  Required text fields are trimmed and must
// be non-empty; the company code is upper-cased.  A missing or unparsable
// charge becomes 0.00, a negative one skips the row.
func DecodeRow(line int, fields []string) (model.PassRow, *Skip) {
	get := func(i int) string {
		if i < len(fields) {
			return strings.TrimSpace(fields[i])
		}
		return ""
	}

	row := model.PassRow{
		Line:      line,
		StationID: get(colStation),
		TagID:     get(colTag),
		CompanyID: model.NormalizeCode(get(colCompany)),
	}
	rawTS := get(colTimestamp)

	switch {
	case rawTS == "":
		return row, skip(line, apperr.CodeMissingField, "missing timestamp")
	case row.StationID == "":
		return row, skip(line, apperr.CodeMissingField, "missing station_id")
	case row.TagID == "":
		return row, skip(line, apperr.CodeMissingField, "missing tag_id")
	case row.CompanyID == "":
		return row, skip(line, apperr.CodeMissingField, "missing company_id")
	}

	ts, ok := parseTimestamp(rawTS)
	if !ok {
		return row, skip(line, apperr.CodeInvalidTimestamp, "invalid timestamp %q", rawTS)
	}
	row.Timestamp = ts

	row.Charge = parseCharge(get(colCharge))
	if row.Charge.IsNegative() {
		return row, skip(line, apperr.CodeNegativeCharge, "negative charge %s", row.Charge.StringFixed(2))
	}
	return row, nil
}

func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func parseCharge(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d.Round(2)
}
