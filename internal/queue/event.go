// Package queue defines the settlement domain events exchanged over the
// message broker, the publisher used by the admin endpoints and the
// consumer that appends them to an audit log.
package queue

import "time"

// Event types.
const (
	EventPassesImported = "passes.imported"
	EventPassesReset    = "passes.reset"
	EventStationsReset  = "stations.reset"
)

// Event is published after every write to the settlement data.  Counts
// that do not apply to a type stay zero.
type Event struct {
	Type       string `json:"type"`
	RequestID  string `json:"request_id,omitempty"`
	Source     string `json:"source,omitempty"`
	Imported   int    `json:"imported,omitempty"`
	Skipped    int    `json:"skipped,omitempty"`
	Failed     int    `json:"failed,omitempty"`
	Companies  int    `json:"companies,omitempty"`
	Stations   int    `json:"stations,omitempty"`
	OccurredAt string `json:"occurred_at"`
}

// NewEvent stamps an event of type typ with the current UTC time.
func NewEvent(typ string) Event {
	return Event{Type: typ, OccurredAt: time.Now().UTC().Format(time.RFC3339)}
}
