package models

// CalendarRecord is a calendar as returned to clients: upstream metadata
// merged with the user's overlay state.
type CalendarRecord struct {
	ID     string `json:"calendarId"`
	Name   string `json:"name"`
	Color  string `json:"color,omitempty"`
	Link   string `json:"link,omitempty"`
	Hidden bool   `json:"hidden"`
}

// CalendarOverlay is the persisted per-user state for one calendar.
type CalendarOverlay struct {
	UserID     int64  `db:"user_id"`
	CalendarID string `db:"calendar_id"`
	Hidden     bool   `db:"hidden"`
}
