package models

import "time"

// EventRecord is an event as returned to clients: upstream metadata merged
// with the user's overlay state.
type EventRecord struct {
	ID           string    `json:"eventId"`
	CalendarID   string    `json:"calendarId"`
	Name         string    `json:"name"`
	StartDate    time.Time `json:"startDate"`
	EndDate      time.Time `json:"endDate"`
	Link         string    `json:"link,omitempty"`
	RecurrenceID string    `json:"recurrenceId,omitempty"`
	Starred      bool      `json:"starred"`
	Hidden       bool      `json:"hidden"`
}

// EventOverlay is the persisted per-user state for one event. Hidden and
// starred are mutually exclusive; writes enforce hidden ⇒ !starred.
type EventOverlay struct {
	UserID     int64  `db:"user_id"`
	CalendarID string `db:"calendar_id"`
	EventID    string `db:"event_id"`
	Hidden     bool   `db:"hidden"`
	Starred    bool   `db:"starred"`
}
