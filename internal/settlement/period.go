package settlement

import (
	"time"

	"github.com/iliyamo/toll-settlement/internal/apperr"
	"github.com/iliyamo/toll-settlement/internal/model"
)

// ParsePeriod validates two YYYYMMDD dates and returns the window covering
// both days in full.
func ParsePeriod(from, to string) (model.Window, error) {
	f, err := parseDate(from)
	if err != nil {
		return model.Window{}, err
	}
	t, err := parseDate(to)
	if err != nil {
		return model.Window{}, err
	}
	if f.After(t) {
		return model.Window{}, apperr.Validation(apperr.CodeInvalidPeriod, "date_from is after date_to")
	}
	return model.NewWindow(f, t), nil
}

func parseDate(s string) (time.Time, error) {
	if len(s) != 8 {
		return time.Time{}, apperr.Validation(apperr.CodeInvalidDate, "invalid date format, use YYYYMMDD")
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return time.Time{}, apperr.Validation(apperr.CodeInvalidDate, "invalid date format, use YYYYMMDD")
		}
	}
	d, err := time.Parse(model.DateLayout, s)
	if err != nil {
		return time.Time{}, apperr.Validation(apperr.CodeInvalidDate, "invalid calendar date "+s)
	}
	return d, nil
}
