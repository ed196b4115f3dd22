// Package reseed rebuilds the reference tables (companies and stations)
// from the canonical stations file and clears pass data between runs.
package reseed

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/toll-settlement/internal/apperr"
	"github.com/iliyamo/toll-settlement/internal/ingest"
	"github.com/iliyamo/toll-settlement/internal/model"
)

// Column positions in the reference file.
const (
	colCompanyID = iota
	colCompanyName
	colStationID
	colStationName
	colPositionMarker
	colLocality
	colRoad
	colLatitude
	colLongitude
	colEmail
	colPrice1
	colPrice2
	colPrice3
	colPrice4
)

// Reference is the parsed content of a stations file.  Companies and
// Stations keep first-seen order.
type Reference struct {
	Companies []model.TollCompany
	Stations  []model.TollStation
	Skipped   []ingest.Skip
}

// ParseReference reads the whole stations file.  The first record is a
// header.  A company keeps the name of its first row; a repeated station
// id is skipped; rows missing the company id, company name, station id or
// station name are skipped.
func ParseReference(r io.Reader) (*Reference, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	ref := &Reference{}
	companies := map[string]bool{}
	stations := map[string]bool{}
	header := true
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				ref.Skipped = append(ref.Skipped, ingest.Skip{Line: pe.StartLine, Code: apperr.CodeMalformedRow, Reason: pe.Err.Error()})
				continue
			}
			return nil, apperr.Wrap(err, apperr.KindSourceUnavailable, apperr.CodeFileUnreadable, "stations file could not be read")
		}
		if header {
			header = false
			continue
		}
		line, _ := cr.FieldPos(0)
		get := func(i int) string {
			if i < len(rec) {
				return strings.TrimSpace(rec[i])
			}
			return ""
		}

		companyID := model.NormalizeCode(get(colCompanyID))
		companyName := get(colCompanyName)
		if companyID == "" || companyName == "" {
			ref.Skipped = append(ref.Skipped, ingest.Skip{Line: line, Code: apperr.CodeMissingField, Reason: "missing company id or name"})
			continue
		}
		if !companies[companyID] {
			companies[companyID] = true
			ref.Companies = append(ref.Companies, model.TollCompany{ID: companyID, Name: companyName})
		}

		st := model.TollStation{
			ID:             model.NormalizeCode(get(colStationID)),
			CompanyID:      companyID,
			Name:           get(colStationName),
			PositionMarker: model.NormalizeCode(get(colPositionMarker)),
			Locality:       get(colLocality),
			Road:           get(colRoad),
			Latitude:       nullDecimal(get(colLatitude)),
			Longitude:      nullDecimal(get(colLongitude)),
			Email:          get(colEmail),
			Price1:         price(get(colPrice1)),
			Price2:         price(get(colPrice2)),
			Price3:         price(get(colPrice3)),
			Price4:         price(get(colPrice4)),
		}
		if st.ID == "" || st.Name == "" {
			ref.Skipped = append(ref.Skipped, ingest.Skip{Line: line, Code: apperr.CodeMissingField, Reason: "missing station id or name"})
			continue
		}
		if stations[st.ID] {
			ref.Skipped = append(ref.Skipped, ingest.Skip{Line: line, Code: apperr.CodeDuplicateStation, Reason: "duplicate station " + st.ID})
			continue
		}
		stations[st.ID] = true
		ref.Stations = append(ref.Stations, st)
	}
	return ref, nil
}

func nullDecimal(s string) decimal.NullDecimal {
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsZero() {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

func price(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d.Round(2)
}
