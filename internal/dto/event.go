package dto

import "github.com/dhsdevclub/ticktock-api/internal/models"

// EventListRequest carries the query parameters for the event listing.
type EventListRequest struct {
	CalendarID string
	Search     string
	// Hidden is the tri-state overlay filter: nil means no filtering.
	Hidden     *bool
	TimeZone   string
	PageToken  string
	MaxResults int
}

// EventPatchRequest updates only the overlay fields present in the body.
// RecurrenceID, when set, seeds the new overlay from the recurring parent's.
type EventPatchRequest struct {
	Hidden       *bool   `json:"hidden"`
	Starred      *bool   `json:"starred"`
	RecurrenceID *string `json:"recurrenceId"`
}

// EventWriteResponse echoes the stored overlay state for an event.
type EventWriteResponse struct {
	EventID    string `json:"eventId"`
	CalendarID string `json:"calendarId"`
	Hidden     bool   `json:"hidden"`
	Starred    bool   `json:"starred"`
}

// EventCollection is the pageable event listing payload. NextPageToken is
// empty on the final page.
type EventCollection struct {
	Items         []models.EventRecord `json:"items"`
	NextPageToken string               `json:"nextPageToken,omitempty"`
}
