package model

import "time"

// DateLayout is the YYYYMMDD form used in report URLs.
const DateLayout = "20060102"

// SQLTimeLayout is how period bounds are rendered in report envelopes.
const SQLTimeLayout = "2006-01-02 15:04:05"

// Window is a report period covering whole days.  Start is midnight of the
// first day; End is midnight after the last day and is exclusive, which for
// second-resolution timestamps is the same set as "last day 23:59:59
// inclusive".
type Window struct {
	Start time.Time
	End   time.Time
}

// NewWindow builds the window for the days from..to inclusive.
func NewWindow(from, to time.Time) Window {
	return Window{
		Start: time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC),
		End:   time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1),
	}
}

// Contains reports whether ts falls inside the window.
func (w Window) Contains(ts time.Time) bool {
	return !ts.Before(w.Start) && ts.Before(w.End)
}

// PeriodFrom renders the first instant of the window, e.g. "2024-01-01 00:00:00".
func (w Window) PeriodFrom() string { return w.Start.Format(SQLTimeLayout) }

// PeriodTo renders the last whole second of the window, e.g. "2024-01-31 23:59:59".
func (w Window) PeriodTo() string { return w.End.Add(-time.Second).Format(SQLTimeLayout) }
