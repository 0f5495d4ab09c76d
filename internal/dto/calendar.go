package dto

import "github.com/dhsdevclub/ticktock-api/internal/models"

// CalendarListRequest carries the query parameters for listing calendars.
type CalendarListRequest struct {
	Search string
	// Hidden is the tri-state overlay filter: nil means no filtering.
	Hidden *bool
}

// CalendarPatchRequest updates only the fields present in the body.
type CalendarPatchRequest struct {
	Hidden *bool `json:"hidden"`
}

// CalendarPutRequest replaces the writeable calendar state.
type CalendarPutRequest struct {
	Hidden *bool `json:"hidden" binding:"required"`
}

// CalendarWriteResponse echoes the stored writeable state.
type CalendarWriteResponse struct {
	CalendarID string `json:"calendarId"`
	Hidden     bool   `json:"hidden"`
}

// CalendarCollection is the non-pageable calendar listing payload.
type CalendarCollection struct {
	Items []models.CalendarRecord `json:"items"`
}
