// Package gcal adapts the Google Calendar API into the domain records the
// rest of the service works with.
package gcal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/dhsdevclub/ticktock-api/internal/models"
	appErrors "github.com/dhsdevclub/ticktock-api/pkg/errors"
)

const (
	calendarFields = "id,summary,backgroundColor"
	eventFields    = "id,summary,start,end,htmlLink,recurringEventId"
	listFields     = "nextPageToken,items(%s)"

	untitledEvent = "(Untitled Event)"
)

// ErrEventEnded marks an event whose end time is already in the past. Callers
// prune the corresponding overlay instead of surfacing the event.
var ErrEventEnded = errors.New("gcal: event ended in the past")

// ListEventsOptions narrows an events page fetch.
type ListEventsOptions struct {
	PageToken  string
	TimeZone   string
	MaxResults int
	// TimeMin excludes events ending before this instant. Zero means now.
	TimeMin time.Time
}

// API is the calendar surface the services consume.
type API interface {
	ListCalendars(ctx context.Context) ([]models.CalendarRecord, error)
	GetCalendar(ctx context.Context, calendarID string) (*models.CalendarRecord, error)
	ListEvents(ctx context.Context, calendarID string, opts ListEventsOptions) ([]models.EventRecord, string, error)
	GetEvent(ctx context.Context, calendarID, eventID, timeZone string) (*models.EventRecord, error)
}

// Factory builds an API bound to one user's access token.
type Factory interface {
	ClientFor(ctx context.Context, accessToken string) (API, error)
}

// ServiceFactory builds real Calendar API clients. Endpoint, when set,
// overrides the API base URL so tests can point at a fake server.
type ServiceFactory struct {
	Endpoint string
	Now      func() time.Time
}

// ClientFor returns a Client authorised with the given access token.
func (f *ServiceFactory) ClientFor(ctx context.Context, accessToken string) (API, error) {
	opts := []option.ClientOption{
		option.WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})),
	}
	if f.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(f.Endpoint))
	}

	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}

	now := f.Now
	if now == nil {
		now = time.Now
	}
	return &Client{svc: svc, now: now}, nil
}

// Client wraps one authorised Calendar API service.
type Client struct {
	svc *calendar.Service
	now func() time.Time
}

// ListCalendars fetches the user's full calendar list, following upstream
// pagination to the end.
func (c *Client) ListCalendars(ctx context.Context) ([]models.CalendarRecord, error) {
	var calendars []models.CalendarRecord
	pageToken := ""
	for {
		call := c.svc.CalendarList.List().
			Fields(googleapi.Field(fmt.Sprintf(listFields, calendarFields))).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		result, err := call.Do()
		if err != nil {
			return nil, appErrors.FromGoogleAPI(err, "list calendars")
		}
		for _, item := range result.Items {
			calendars = append(calendars, calendarRecord(item))
		}
		pageToken = result.NextPageToken
		if pageToken == "" {
			break
		}
	}
	return calendars, nil
}

// GetCalendar fetches a single entry from the user's calendar list.
func (c *Client) GetCalendar(ctx context.Context, calendarID string) (*models.CalendarRecord, error) {
	item, err := c.svc.CalendarList.Get(calendarID).
		Fields(googleapi.Field(calendarFields)).
		Context(ctx).Do()
	if err != nil {
		return nil, appErrors.FromGoogleAPI(err, fmt.Sprintf("get calendar %q", calendarID))
	}
	record := calendarRecord(item)
	return &record, nil
}

// ListEvents fetches one page of upcoming events and the upstream cursor for
// the next one. The cursor is empty on the final page.
func (c *Client) ListEvents(ctx context.Context, calendarID string, opts ListEventsOptions) ([]models.EventRecord, string, error) {
	timeMin := opts.TimeMin
	if timeMin.IsZero() {
		timeMin = c.now().UTC()
	}
	call := c.svc.Events.List(calendarID).
		Fields(googleapi.Field(fmt.Sprintf(listFields, eventFields))).
		SingleEvents(true).
		TimeMin(timeMin.Format(time.RFC3339)).
		Context(ctx)
	if opts.MaxResults > 0 {
		call = call.MaxResults(int64(opts.MaxResults))
	}
	if opts.TimeZone != "" {
		call = call.TimeZone(opts.TimeZone)
	}
	if opts.PageToken != "" {
		call = call.PageToken(opts.PageToken)
	}

	result, err := call.Do()
	if err != nil {
		return nil, "", appErrors.FromGoogleAPI(err, fmt.Sprintf("list events for %q", calendarID))
	}

	events := make([]models.EventRecord, 0, len(result.Items))
	for _, item := range result.Items {
		events = append(events, eventRecord(item, calendarID))
	}
	return events, result.NextPageToken, nil
}

// GetEvent fetches a single event. ErrEventEnded is returned when the event
// lies entirely in the past.
func (c *Client) GetEvent(ctx context.Context, calendarID, eventID, timeZone string) (*models.EventRecord, error) {
	call := c.svc.Events.Get(calendarID, eventID).
		Fields(googleapi.Field(eventFields)).
		Context(ctx)
	if timeZone != "" {
		call = call.TimeZone(timeZone)
	}
	item, err := call.Do()
	if err != nil {
		return nil, appErrors.FromGoogleAPI(err, fmt.Sprintf("get event %q", eventID))
	}

	record := eventRecord(item, calendarID)
	if record.EndDate.Before(c.now().UTC()) {
		return nil, ErrEventEnded
	}
	return &record, nil
}

func calendarRecord(item *calendar.CalendarListEntry) models.CalendarRecord {
	return models.CalendarRecord{
		ID:    item.Id,
		Name:  item.Summary,
		Color: item.BackgroundColor,
	}
}

func eventRecord(item *calendar.Event, calendarID string) models.EventRecord {
	name := item.Summary
	if name == "" {
		name = untitledEvent
	}
	return models.EventRecord{
		ID:           item.Id,
		CalendarID:   calendarID,
		Name:         name,
		StartDate:    eventTime(item.Start),
		EndDate:      eventTime(item.End),
		Link:         item.HtmlLink,
		RecurrenceID: item.RecurringEventId,
	}
}

// eventTime parses either a timed or an all-day boundary. Offsets beyond the
// wall-clock value are deliberately dropped, matching how clients render the
// dates in the calendar's own time zone.
func eventTime(edt *calendar.EventDateTime) time.Time {
	if edt == nil {
		return time.Time{}
	}
	if edt.DateTime != "" {
		raw := edt.DateTime
		if len(raw) > 19 {
			raw = raw[:19]
		}
		t, err := time.Parse("2006-01-02T15:04:05", raw)
		if err == nil {
			return t
		}
	}
	if edt.Date != "" {
		raw := edt.Date
		if len(raw) > 10 {
			raw = raw[:10]
		}
		t, err := time.Parse("2006-01-02", raw)
		if err == nil {
			return t
		}
	}
	return time.Time{}
}
