package gcal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhsdevclub/ticktock-api/internal/gcal/gcaltest"
	appErrors "github.com/dhsdevclub/ticktock-api/pkg/errors"
)

func newTestClient(t *testing.T, srv *gcaltest.Server, now time.Time) API {
	t.Helper()
	factory := &ServiceFactory{
		Endpoint: srv.URL + "/",
		Now:      func() time.Time { return now },
	}
	api, err := factory.ClientFor(context.Background(), "test-token")
	require.NoError(t, err)
	return api
}

func TestListCalendars(t *testing.T) {
	srv := gcaltest.NewServer()
	defer srv.Close()
	srv.AddCalendar("cal-b", "Robotics", "#ff0000")
	srv.AddCalendar("cal-a", "Choir", "#00ff00")

	api := newTestClient(t, srv, time.Now())
	calendars, err := api.ListCalendars(context.Background())
	require.NoError(t, err)
	require.Len(t, calendars, 2)
	assert.Equal(t, "cal-a", calendars[0].ID)
	assert.Equal(t, "Choir", calendars[0].Name)
	assert.Equal(t, "#00ff00", calendars[0].Color)
	assert.False(t, calendars[0].Hidden)
}

func TestGetCalendarNotFound(t *testing.T) {
	srv := gcaltest.NewServer()
	defer srv.Close()

	api := newTestClient(t, srv, time.Now())
	_, err := api.GetCalendar(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestListEventsPagination(t *testing.T) {
	srv := gcaltest.NewServer()
	defer srv.Close()
	srv.AddCalendar("cal-1", "School", "")
	now := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 5; i++ {
		start := now.Add(time.Duration(i+1) * time.Hour)
		srv.AddEvent("cal-1", "ev-"+string(rune('a'+i)), "Event", start, start.Add(time.Hour), "")
	}

	api := newTestClient(t, srv, now)

	first, cursor, err := api.ListEvents(context.Background(), "cal-1", ListEventsOptions{MaxResults: 3})
	require.NoError(t, err)
	require.Len(t, first, 3)
	require.NotEmpty(t, cursor)
	assert.Equal(t, "ev-a", first[0].ID)

	rest, cursor, err := api.ListEvents(context.Background(), "cal-1", ListEventsOptions{MaxResults: 3, PageToken: cursor})
	require.NoError(t, err)
	require.Len(t, rest, 2)
	assert.Empty(t, cursor)
}

func TestGetEventEnded(t *testing.T) {
	srv := gcaltest.NewServer()
	defer srv.Close()
	srv.AddCalendar("cal-1", "School", "")
	now := time.Now().UTC().Truncate(time.Second)
	srv.AddEvent("cal-1", "ev-old", "Graduation", now.Add(-3*time.Hour), now.Add(-2*time.Hour), "")
	srv.AddEvent("cal-1", "ev-live", "Assembly", now.Add(-time.Hour), now.Add(time.Hour), "")

	api := newTestClient(t, srv, now)

	_, err := api.GetEvent(context.Background(), "cal-1", "ev-old", "UTC")
	assert.ErrorIs(t, err, ErrEventEnded)

	record, err := api.GetEvent(context.Background(), "cal-1", "ev-live", "UTC")
	require.NoError(t, err)
	assert.Equal(t, "Assembly", record.Name)
	assert.NotEmpty(t, record.Link)
}

func TestGetEventNotFoundMapped(t *testing.T) {
	srv := gcaltest.NewServer()
	defer srv.Close()
	srv.AddCalendar("cal-1", "School", "")

	api := newTestClient(t, srv, time.Now())
	_, err := api.GetEvent(context.Background(), "cal-1", "missing", "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestUntitledEventName(t *testing.T) {
	srv := gcaltest.NewServer()
	defer srv.Close()
	srv.AddCalendar("cal-1", "School", "")
	now := time.Now().UTC().Truncate(time.Second)
	srv.AddEvent("cal-1", "ev-1", "", now.Add(time.Hour), now.Add(2*time.Hour), "")

	api := newTestClient(t, srv, now)
	events, _, err := api.ListEvents(context.Background(), "cal-1", ListEventsOptions{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "(Untitled Event)", events[0].Name)
}
