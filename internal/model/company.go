package model

import "strings"

// TollCompany represents a toll operator as stored in the
// `toll_companies` table.  Companies are created only by the reseed
// controller from the reference file and are never mutated afterwards.
//
// Fields:
//  ID   – short alphanumeric operator code, upper-cased (e.g. "AM", "NAO").
//  Name – human-readable operator name.
type TollCompany struct {
	ID   string `json:"company_id"`   // toll_companies.company_id
	Name string `json:"company_name"` // toll_companies.company_name
}

// NormalizeCode trims and upper-cases an operator, station or tag code
// coming from an external source so that comparisons are byte-exact.
func NormalizeCode(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
