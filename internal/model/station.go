package model

import "github.com/shopspring/decimal"

// TollStation describes a toll plaza belonging to exactly one operator.
// Stations are loaded from the reference file during a reseed and are
// immutable otherwise.
//
// Fields:
//  ID             – station code (primary key), e.g. "AM01".
//  CompanyID      – owning operator (FK to toll_companies).
//  Name           – station name.
//  PositionMarker – position marker column of the reference file.
//  Locality       – town or area.
//  Road           – motorway the station sits on.
//  Latitude       – nullable coordinate.
//  Longitude      – nullable coordinate.
//  Email          – operator contact address for the station.
//  Price1..Price4 – per vehicle-class prices.
type TollStation struct {
	ID             string              // toll_stations.station_id
	CompanyID      string              // toll_stations.company_id
	Name           string              // toll_stations.station_name
	PositionMarker string              // toll_stations.position_marker
	Locality       string              // toll_stations.locality
	Road           string              // toll_stations.road
	Latitude       decimal.NullDecimal // toll_stations.latitude
	Longitude      decimal.NullDecimal // toll_stations.longitude
	Email          string              // toll_stations.email
	Price1         decimal.Decimal     // toll_stations.price1
	Price2         decimal.Decimal     // toll_stations.price2
	Price3         decimal.Decimal     // toll_stations.price3
	Price4         decimal.Decimal     // toll_stations.price4
}
