package report

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/toll-settlement/internal/model"
)

func catalogStations() []model.TollStation {
	return []model.TollStation{
		{
			ID: "AM01", CompanyID: "AM", Name: "Malgara",
			Latitude:  decimal.NewNullDecimal(decimal.RequireFromString("40.9143000")),
			Longitude: decimal.NewNullDecimal(decimal.RequireFromString("26.8712000")),
		},
		{ID: "NAO04", CompanyID: "NAO", Name: "Moudania"},
	}
}

func TestMapStationsJSONAndCSV(t *testing.T) {
	env := NewMapStations(catalogStations())

	b, err := json.Marshal(env)
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"stationID":"AM01","companyID":"AM","location":{"lat":40.9143,"lng":26.8712}},
		{"stationID":"NAO04","companyID":"NAO","location":{"lat":null,"lng":null}}
	]`, string(b))

	var buf bytes.Buffer
	require.NoError(t, env.WriteCSV(&buf))
	assert.Equal(t, "stationID,companyID,location.lat,location.lng\nAM01,AM,40.9143,26.8712\nNAO04,NAO,,\n", buf.String())
}

func TestStationLists(t *testing.T) {
	names := NewStationNames(catalogStations())
	require.Len(t, names, 2)
	assert.Equal(t, StationName{StationID: "NAO04", StationName: "Moudania"}, names[1])

	locs := NewStationLocations(catalogStations())
	b, err := json.Marshal(locs[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"stationID":"AM01","location":{"lat":40.9143,"lng":26.8712}}`, string(b))

	ops := NewOperators([]model.TollCompany{{ID: "AM", Name: "aegeanmotorway"}})
	assert.Equal(t, []Operator{{CompanyID: "AM", CompanyName: "aegeanmotorway"}}, ops)
}
