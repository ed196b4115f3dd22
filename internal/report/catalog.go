package report

import (
	"io"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/toll-settlement/internal/model"
)

// Coord is a nullable coordinate rendered as a bare JSON number or null.
type Coord struct{ decimal.NullDecimal }

// MarshalJSON renders the coordinate without quotes.
func (c Coord) MarshalJSON() ([]byte, error) {
	if !c.Valid {
		return []byte("null"), nil
	}
	return []byte(c.Decimal.String()), nil
}

// String renders the coordinate, or "" when it is unknown.
func (c Coord) String() string {
	if !c.Valid {
		return ""
	}
	return c.Decimal.String()
}

// Location is a station position.
type Location struct {
	Lat Coord `json:"lat"`
	Lng Coord `json:"lng"`
}

// Operator is one entry of the operator list.
type Operator struct {
	CompanyID   string `json:"company_id"`
	CompanyName string `json:"company_name"`
}

// NewOperators shapes the company list.
func NewOperators(companies []model.TollCompany) []Operator {
	out := make([]Operator, 0, len(companies))
	for _, c := range companies {
		out = append(out, Operator{CompanyID: c.ID, CompanyName: c.Name})
	}
	return out
}

// StationName is one entry of the station picker list.
type StationName struct {
	StationID   string `json:"station_id"`
	StationName string `json:"station_name"`
}

// NewStationNames shapes stations for the picker list.
func NewStationNames(stations []model.TollStation) []StationName {
	out := make([]StationName, 0, len(stations))
	for _, s := range stations {
		out = append(out, StationName{StationID: s.ID, StationName: s.Name})
	}
	return out
}

// StationLocation is one entry of the tollStations list.
type StationLocation struct {
	StationID string   `json:"stationID"`
	Location  Location `json:"location"`
}

// NewStationLocations shapes stations with their coordinates.
func NewStationLocations(stations []model.TollStation) []StationLocation {
	out := make([]StationLocation, 0, len(stations))
	for _, s := range stations {
		out = append(out, StationLocation{
			StationID: s.ID,
			Location:  Location{Lat: Coord{s.Latitude}, Lng: Coord{s.Longitude}},
		})
	}
	return out
}

// MapStation is one marker of the station map.
type MapStation struct {
	StationID string   `json:"stationID"`
	CompanyID string   `json:"companyID"`
	Location  Location `json:"location"`
}

// MapStations is the mapStations list.  It marshals as a bare array.
type MapStations []MapStation

// NewMapStations shapes stations for the map.
func NewMapStations(stations []model.TollStation) MapStations {
	out := make(MapStations, 0, len(stations))
	for _, s := range stations {
		out = append(out, MapStation{
			StationID: s.ID,
			CompanyID: s.CompanyID,
			Location:  Location{Lat: Coord{s.Latitude}, Lng: Coord{s.Longitude}},
		})
	}
	return out
}

// WriteCSV writes one row per station with flattened coordinates.
func (m MapStations) WriteCSV(w io.Writer) error {
	rows := make([][]string, 0, len(m))
	for _, s := range m {
		rows = append(rows, []string{s.StationID, s.CompanyID, s.Location.Lat.String(), s.Location.Lng.String()})
	}
	return writeAll(w, []string{"stationID", "companyID", "location.lat", "location.lng"}, rows)
}
