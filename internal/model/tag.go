package model

// VehicleTag is a transponder and its current home operator.  A later
// sighting of the same tag with a different company overwrites CompanyID;
// no history is kept.
type VehicleTag struct {
	ID        string // vehicle_tags.tag_id
	CompanyID string // vehicle_tags.company_id
}
