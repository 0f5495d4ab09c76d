package service

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dhsdevclub/ticktock-api/internal/dto"
	"github.com/dhsdevclub/ticktock-api/internal/gcal"
	"github.com/dhsdevclub/ticktock-api/internal/models"
	appErrors "github.com/dhsdevclub/ticktock-api/pkg/errors"
)

type apiStub struct {
	calendars []models.CalendarRecord
	events    map[string][]models.EventRecord
	getErr    map[string]error
}

func (a *apiStub) ListCalendars(ctx context.Context) ([]models.CalendarRecord, error) {
	return a.calendars, nil
}

func (a *apiStub) GetCalendar(ctx context.Context, calendarID string) (*models.CalendarRecord, error) {
	for _, cal := range a.calendars {
		if cal.ID == calendarID {
			c := cal
			return &c, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "calendar not found")
}

func (a *apiStub) ListEvents(ctx context.Context, calendarID string, opts gcal.ListEventsOptions) ([]models.EventRecord, string, error) {
	evs := a.events[calendarID]
	offset := 0
	if opts.PageToken != "" {
		offset, _ = strconv.Atoi(opts.PageToken)
	}
	limit := opts.MaxResults
	if limit <= 0 {
		limit = len(evs)
	}
	end := offset + limit
	if end > len(evs) {
		end = len(evs)
	}
	next := ""
	if end < len(evs) {
		next = strconv.Itoa(end)
	}
	return evs[offset:end], next, nil
}

func (a *apiStub) GetEvent(ctx context.Context, calendarID, eventID, timeZone string) (*models.EventRecord, error) {
	if err, ok := a.getErr[eventID]; ok {
		return nil, err
	}
	for _, ev := range a.events[calendarID] {
		if ev.ID == eventID {
			e := ev
			return &e, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
}

type factoryStub struct {
	api gcal.API
}

func (f factoryStub) ClientFor(ctx context.Context, accessToken string) (gcal.API, error) {
	return f.api, nil
}

type overlayStub struct {
	calendars map[string]*models.CalendarOverlay
	events    map[string]*models.EventOverlay
	order     []string
	deleted   []string
}

func newOverlayStub() *overlayStub {
	return &overlayStub{
		calendars: map[string]*models.CalendarOverlay{},
		events:    map[string]*models.EventOverlay{},
	}
}

func overlayKey(calendarID, eventID string) string {
	return calendarID + "/" + eventID
}

func (s *overlayStub) addEvent(o models.EventOverlay) {
	key := overlayKey(o.CalendarID, o.EventID)
	if _, ok := s.events[key]; !ok {
		s.order = append(s.order, key)
	}
	s.events[key] = &o
}

func (s *overlayStub) GetCalendar(ctx context.Context, userKey int64, calendarID string) (*models.CalendarOverlay, error) {
	return s.calendars[calendarID], nil
}

func (s *overlayStub) ListCalendars(ctx context.Context, userKey int64) ([]models.CalendarOverlay, error) {
	var out []models.CalendarOverlay
	for _, o := range s.calendars {
		out = append(out, *o)
	}
	return out, nil
}

func (s *overlayStub) UpsertCalendar(ctx context.Context, overlay *models.CalendarOverlay) error {
	s.calendars[overlay.CalendarID] = overlay
	return nil
}

func (s *overlayStub) DeleteCalendar(ctx context.Context, userKey int64, calendarID string) (bool, error) {
	if _, ok := s.calendars[calendarID]; !ok {
		return false, nil
	}
	delete(s.calendars, calendarID)
	return true, nil
}

func (s *overlayStub) GetEvent(ctx context.Context, userKey int64, calendarID, eventID string) (*models.EventOverlay, error) {
	return s.events[overlayKey(calendarID, eventID)], nil
}

func (s *overlayStub) UpsertEvent(ctx context.Context, overlay *models.EventOverlay) error {
	if overlay.Hidden {
		overlay.Starred = false
	}
	s.addEvent(*overlay)
	return nil
}

func (s *overlayStub) DeleteEvent(ctx context.Context, userKey int64, calendarID, eventID string) (*models.EventOverlay, error) {
	key := overlayKey(calendarID, eventID)
	prior := s.events[key]
	if prior != nil {
		delete(s.events, key)
		s.deleted = append(s.deleted, eventID)
	}
	return prior, nil
}

func (s *overlayStub) ListStarredEvents(ctx context.Context, userKey int64, calendarID string) ([]models.EventOverlay, error) {
	var out []models.EventOverlay
	for _, key := range s.order {
		o, ok := s.events[key]
		if ok && o.CalendarID == calendarID && o.Starred {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (s *overlayStub) ListEventsByUser(ctx context.Context, userKey int64) ([]models.EventOverlay, error) {
	var out []models.EventOverlay
	for _, key := range s.order {
		if o, ok := s.events[key]; ok {
			out = append(out, *o)
		}
	}
	return out, nil
}

type cacheStub struct {
	pages  map[int64]*models.EventCachePage
	nextID int64
}

func newCacheStub() *cacheStub {
	return &cacheStub{pages: map[int64]*models.EventCachePage{}}
}

func (s *cacheStub) Get(ctx context.Context, userKey, id int64) (*models.EventCachePage, error) {
	page := s.pages[id]
	if page == nil || page.UserID != userKey {
		return nil, nil
	}
	return page, nil
}

func (s *cacheStub) FindByContentDigest(ctx context.Context, userKey int64, digest string) (*models.EventCachePage, error) {
	for _, page := range s.pages {
		if page.UserID == userKey && page.ContentDigest == digest {
			return page, nil
		}
	}
	return nil, nil
}

func (s *cacheStub) Insert(ctx context.Context, page *models.EventCachePage) (int64, error) {
	s.nextID++
	page.ID = s.nextID
	s.pages[page.ID] = page
	return page.ID, nil
}

const testCalendar = "primary"

func testIdentity() models.Identity {
	return models.Identity{ExternalID: "123456789", Key: 42, Token: "token"}
}

// upstreamEvents builds n future events one hour apart in start order.
func upstreamEvents(n int) []models.EventRecord {
	base := time.Now().UTC().Add(time.Hour).Truncate(time.Second)
	events := make([]models.EventRecord, 0, n)
	for i := 0; i < n; i++ {
		id := "ev" + strconv.Itoa(i+1)
		events = append(events, models.EventRecord{
			ID:         id,
			CalendarID: testCalendar,
			Name:       "Event " + strconv.Itoa(i+1),
			StartDate:  base.Add(time.Duration(i) * time.Hour),
			EndDate:    base.Add(time.Duration(i)*time.Hour + 30*time.Minute),
		})
	}
	return events
}

func newEventService(api *apiStub, overlays *overlayStub, cache *cacheStub, pageSize int) *EventService {
	return NewEventService(overlays, cache, factoryStub{api: api}, pageSize, nil, zap.NewNop())
}

func TestEventServiceListStarredFillWholeFirstPage(t *testing.T) {
	overlays := newOverlayStub()
	cache := newCacheStub()
	api := &apiStub{events: map[string][]models.EventRecord{testCalendar: upstreamEvents(40)}}

	// 12 starred events, more than the page size of 10.
	for i := 29; i <= 40; i++ {
		overlays.addEvent(models.EventOverlay{
			UserID:     42,
			CalendarID: testCalendar,
			EventID:    "ev" + strconv.Itoa(i),
			Starred:    true,
		})
	}

	svc := newEventService(api, overlays, cache, 10)
	page1, err := svc.List(context.Background(), testIdentity(), dto.EventListRequest{CalendarID: testCalendar})
	require.NoError(t, err)

	require.Len(t, page1.Items, 10)
	for _, ev := range page1.Items {
		assert.True(t, ev.Starred, "first page is all starred: %s", ev.ID)
	}
	require.NotEmpty(t, page1.NextPageToken)

	page2, err := svc.List(context.Background(), testIdentity(), dto.EventListRequest{
		CalendarID: testCalendar,
		PageToken:  page1.NextPageToken,
	})
	require.NoError(t, err)

	require.Len(t, page2.Items, 10)
	assert.True(t, page2.Items[0].Starred)
	assert.True(t, page2.Items[1].Starred)
	assert.False(t, page2.Items[2].Starred)
	assert.NotEmpty(t, page2.NextPageToken)

	// No event appears on both pages.
	seen := map[string]bool{}
	for _, ev := range page1.Items {
		seen[ev.ID] = true
	}
	for _, ev := range page2.Items {
		assert.False(t, seen[ev.ID], "duplicate across pages: %s", ev.ID)
	}
}

func TestEventServiceListNoTokenOnFinalPartialPage(t *testing.T) {
	overlays := newOverlayStub()
	cache := newCacheStub()
	api := &apiStub{events: map[string][]models.EventRecord{testCalendar: upstreamEvents(4)}}

	svc := newEventService(api, overlays, cache, 10)
	page, err := svc.List(context.Background(), testIdentity(), dto.EventListRequest{CalendarID: testCalendar})
	require.NoError(t, err)
	assert.Len(t, page.Items, 4)
	assert.Empty(t, page.NextPageToken)
}

func TestEventServiceListChronologicalOrder(t *testing.T) {
	overlays := newOverlayStub()
	cache := newCacheStub()
	api := &apiStub{events: map[string][]models.EventRecord{testCalendar: upstreamEvents(6)}}

	svc := newEventService(api, overlays, cache, 10)
	page, err := svc.List(context.Background(), testIdentity(), dto.EventListRequest{CalendarID: testCalendar})
	require.NoError(t, err)
	require.Len(t, page.Items, 6)
	for i := 1; i < len(page.Items); i++ {
		assert.False(t, page.Items[i].StartDate.Before(page.Items[i-1].StartDate))
	}
}

func TestEventServiceListStaleToken(t *testing.T) {
	overlays := newOverlayStub()
	cache := newCacheStub()
	api := &apiStub{events: map[string][]models.EventRecord{testCalendar: upstreamEvents(25)}}

	svc := newEventService(api, overlays, cache, 10)
	page, err := svc.List(context.Background(), testIdentity(), dto.EventListRequest{CalendarID: testCalendar})
	require.NoError(t, err)
	require.NotEmpty(t, page.NextPageToken)

	// Same token, different query parameters.
	_, err = svc.List(context.Background(), testIdentity(), dto.EventListRequest{
		CalendarID: testCalendar,
		Search:     "standup",
		PageToken:  page.NextPageToken,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStalePageToken.Code, appErrors.FromError(err).Code)

	// Malformed token.
	_, err = svc.List(context.Background(), testIdentity(), dto.EventListRequest{
		CalendarID: testCalendar,
		PageToken:  "!!bad!!",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStalePageToken.Code, appErrors.FromError(err).Code)

	// Token owned by a different user.
	other := models.Identity{ExternalID: "987", Key: 77, Token: "token"}
	_, err = svc.List(context.Background(), other, dto.EventListRequest{
		CalendarID: testCalendar,
		PageToken:  page.NextPageToken,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStalePageToken.Code, appErrors.FromError(err).Code)
}

func TestEventServiceListIdenticalBoundaryReusesToken(t *testing.T) {
	overlays := newOverlayStub()
	cache := newCacheStub()
	api := &apiStub{events: map[string][]models.EventRecord{testCalendar: upstreamEvents(25)}}

	svc := newEventService(api, overlays, cache, 10)
	first, err := svc.List(context.Background(), testIdentity(), dto.EventListRequest{CalendarID: testCalendar})
	require.NoError(t, err)
	second, err := svc.List(context.Background(), testIdentity(), dto.EventListRequest{CalendarID: testCalendar})
	require.NoError(t, err)

	assert.Equal(t, first.NextPageToken, second.NextPageToken)
	assert.Len(t, cache.pages, 1)
}

func TestEventServiceListPrunesDeadStars(t *testing.T) {
	overlays := newOverlayStub()
	cache := newCacheStub()
	api := &apiStub{
		events: map[string][]models.EventRecord{testCalendar: upstreamEvents(3)},
		getErr: map[string]error{
			"ghost": appErrors.Clone(appErrors.ErrNotFound, "event not found"),
			"done":  gcal.ErrEventEnded,
		},
	}
	overlays.addEvent(models.EventOverlay{UserID: 42, CalendarID: testCalendar, EventID: "ghost", Starred: true})
	overlays.addEvent(models.EventOverlay{UserID: 42, CalendarID: testCalendar, EventID: "done", Starred: true})

	svc := newEventService(api, overlays, cache, 10)
	page, err := svc.List(context.Background(), testIdentity(), dto.EventListRequest{CalendarID: testCalendar})
	require.NoError(t, err)

	assert.Len(t, page.Items, 3)
	assert.ElementsMatch(t, []string{"ghost", "done"}, overlays.deleted)
}

func TestEventServiceListHiddenFilter(t *testing.T) {
	overlays := newOverlayStub()
	cache := newCacheStub()
	api := &apiStub{events: map[string][]models.EventRecord{testCalendar: upstreamEvents(3)}}
	overlays.addEvent(models.EventOverlay{UserID: 42, CalendarID: testCalendar, EventID: "ev2", Hidden: true})

	svc := newEventService(api, overlays, cache, 10)

	all, err := svc.List(context.Background(), testIdentity(), dto.EventListRequest{CalendarID: testCalendar})
	require.NoError(t, err)
	require.Len(t, all.Items, 3)

	visible := false
	onlyVisible, err := svc.List(context.Background(), testIdentity(), dto.EventListRequest{CalendarID: testCalendar, Hidden: &visible})
	require.NoError(t, err)
	require.Len(t, onlyVisible.Items, 2)
	for _, ev := range onlyVisible.Items {
		assert.NotEqual(t, "ev2", ev.ID)
	}

	hidden := true
	onlyHidden, err := svc.List(context.Background(), testIdentity(), dto.EventListRequest{CalendarID: testCalendar, Hidden: &hidden})
	require.NoError(t, err)
	require.Len(t, onlyHidden.Items, 1)
	assert.Equal(t, "ev2", onlyHidden.Items[0].ID)
}

func TestEventServiceListRecurrenceOverlayFallback(t *testing.T) {
	overlays := newOverlayStub()
	cache := newCacheStub()
	events := upstreamEvents(2)
	events[1].RecurrenceID = "parent"
	api := &apiStub{events: map[string][]models.EventRecord{testCalendar: events}}
	overlays.addEvent(models.EventOverlay{UserID: 42, CalendarID: testCalendar, EventID: "parent", Hidden: true})

	svc := newEventService(api, overlays, cache, 10)
	page, err := svc.List(context.Background(), testIdentity(), dto.EventListRequest{CalendarID: testCalendar})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	for _, ev := range page.Items {
		if ev.ID == "ev2" {
			assert.True(t, ev.Hidden, "instance inherits the parent overlay")
		}
	}
}

func TestEventServiceListSkipsInstancesOfStarredParent(t *testing.T) {
	overlays := newOverlayStub()
	cache := newCacheStub()
	events := upstreamEvents(3)
	events[1].RecurrenceID = "ev1"
	api := &apiStub{events: map[string][]models.EventRecord{testCalendar: events}}
	overlays.addEvent(models.EventOverlay{UserID: 42, CalendarID: testCalendar, EventID: "ev1", Starred: true})

	svc := newEventService(api, overlays, cache, 10)
	page, err := svc.List(context.Background(), testIdentity(), dto.EventListRequest{CalendarID: testCalendar})
	require.NoError(t, err)

	ids := make([]string, 0, len(page.Items))
	for _, ev := range page.Items {
		ids = append(ids, ev.ID)
	}
	assert.ElementsMatch(t, []string{"ev1", "ev3"}, ids)
}

func TestEventServiceListKeywordSearch(t *testing.T) {
	overlays := newOverlayStub()
	cache := newCacheStub()
	events := upstreamEvents(3)
	events[0].Name = "Robotics club meeting"
	events[1].Name = "Chess tournament"
	events[2].Name = "Robotics showcase"
	api := &apiStub{events: map[string][]models.EventRecord{testCalendar: events}}

	svc := newEventService(api, overlays, cache, 10)
	page, err := svc.List(context.Background(), testIdentity(), dto.EventListRequest{CalendarID: testCalendar, Search: "robotics"})
	require.NoError(t, err)

	ids := make([]string, 0, len(page.Items))
	for _, ev := range page.Items {
		ids = append(ids, ev.ID)
	}
	assert.Equal(t, []string{"ev1", "ev3"}, ids)
}

func TestEventServicePatch(t *testing.T) {
	overlays := newOverlayStub()
	cache := newCacheStub()
	api := &apiStub{events: map[string][]models.EventRecord{testCalendar: upstreamEvents(1)}}
	svc := newEventService(api, overlays, cache, 10)
	ident := testIdentity()

	// Calendar not added yet.
	starred := true
	_, err := svc.Patch(context.Background(), ident, testCalendar, "ev1", dto.EventPatchRequest{Starred: &starred})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrCalendarNotAdded.Code, appErrors.FromError(err).Code)

	overlays.calendars[testCalendar] = &models.CalendarOverlay{UserID: 42, CalendarID: testCalendar}

	resp, err := svc.Patch(context.Background(), ident, testCalendar, "ev1", dto.EventPatchRequest{Starred: &starred})
	require.NoError(t, err)
	assert.True(t, resp.Starred)
	assert.False(t, resp.Hidden)

	// Hiding overrides the star.
	hidden := true
	resp, err = svc.Patch(context.Background(), ident, testCalendar, "ev1", dto.EventPatchRequest{Hidden: &hidden})
	require.NoError(t, err)
	assert.True(t, resp.Hidden)
	assert.False(t, resp.Starred)
}

func TestEventServicePatchSeedsFromRecurringParent(t *testing.T) {
	overlays := newOverlayStub()
	cache := newCacheStub()
	api := &apiStub{}
	svc := newEventService(api, overlays, cache, 10)
	ident := testIdentity()

	overlays.calendars[testCalendar] = &models.CalendarOverlay{UserID: 42, CalendarID: testCalendar}
	overlays.addEvent(models.EventOverlay{UserID: 42, CalendarID: testCalendar, EventID: "parent", Starred: true})

	parent := "parent"
	resp, err := svc.Patch(context.Background(), ident, testCalendar, "inst1", dto.EventPatchRequest{RecurrenceID: &parent})
	require.NoError(t, err)
	assert.True(t, resp.Starred, "instance inherits the parent's star")
}

func TestEventServiceReset(t *testing.T) {
	overlays := newOverlayStub()
	cache := newCacheStub()
	svc := newEventService(&apiStub{}, overlays, cache, 10)
	ident := testIdentity()

	_, err := svc.Reset(context.Background(), ident, testCalendar, "ev1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	overlays.addEvent(models.EventOverlay{UserID: 42, CalendarID: testCalendar, EventID: "ev1", Starred: true})
	resp, err := svc.Reset(context.Background(), ident, testCalendar, "ev1")
	require.NoError(t, err)
	assert.Equal(t, "ev1", resp.EventID)
	assert.Empty(t, overlays.events)
}
