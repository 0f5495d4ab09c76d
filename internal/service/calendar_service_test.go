package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dhsdevclub/ticktock-api/internal/dto"
	"github.com/dhsdevclub/ticktock-api/internal/models"
	appErrors "github.com/dhsdevclub/ticktock-api/pkg/errors"
)

func newCalendarService(api *apiStub, overlays *overlayStub) *CalendarService {
	return NewCalendarService(overlays, factoryStub{api: api}, zap.NewNop())
}

func threeCalendars() []models.CalendarRecord {
	return []models.CalendarRecord{
		{ID: "cal-b", Name: "Band"},
		{ID: "cal-a", Name: "Astronomy Club"},
		{ID: "cal-c", Name: "Chess Club"},
	}
}

func TestCalendarServiceListMergesOverlaysAndSorts(t *testing.T) {
	overlays := newOverlayStub()
	overlays.calendars["cal-c"] = &models.CalendarOverlay{UserID: 42, CalendarID: "cal-c", Hidden: true}
	api := &apiStub{calendars: threeCalendars()}

	svc := newCalendarService(api, overlays)
	out, err := svc.List(context.Background(), testIdentity(), dto.CalendarListRequest{})
	require.NoError(t, err)

	require.Len(t, out.Items, 3)
	assert.Equal(t, "Astronomy Club", out.Items[0].Name)
	assert.Equal(t, "Band", out.Items[1].Name)
	assert.Equal(t, "Chess Club", out.Items[2].Name)
	assert.True(t, out.Items[2].Hidden)

	visible := false
	filtered, err := svc.List(context.Background(), testIdentity(), dto.CalendarListRequest{Hidden: &visible})
	require.NoError(t, err)
	require.Len(t, filtered.Items, 2)
	for _, cal := range filtered.Items {
		assert.False(t, cal.Hidden)
	}
}

func TestCalendarServiceListKeywordSearch(t *testing.T) {
	overlays := newOverlayStub()
	api := &apiStub{calendars: threeCalendars()}

	svc := newCalendarService(api, overlays)
	out, err := svc.List(context.Background(), testIdentity(), dto.CalendarListRequest{Search: "club"})
	require.NoError(t, err)

	require.Len(t, out.Items, 2)
	assert.Equal(t, "Astronomy Club", out.Items[0].Name)
	assert.Equal(t, "Chess Club", out.Items[1].Name)
}

func TestCalendarServiceGet(t *testing.T) {
	overlays := newOverlayStub()
	overlays.calendars["cal-a"] = &models.CalendarOverlay{UserID: 42, CalendarID: "cal-a", Hidden: true}
	api := &apiStub{calendars: threeCalendars()}

	svc := newCalendarService(api, overlays)
	cal, err := svc.Get(context.Background(), testIdentity(), "cal-a")
	require.NoError(t, err)
	assert.True(t, cal.Hidden)

	_, err = svc.Get(context.Background(), testIdentity(), "cal-missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCalendarServicePatchAndPut(t *testing.T) {
	overlays := newOverlayStub()
	api := &apiStub{calendars: threeCalendars()}
	svc := newCalendarService(api, overlays)
	ident := testIdentity()

	hidden := true
	resp, err := svc.Patch(context.Background(), ident, "cal-a", dto.CalendarPatchRequest{Hidden: &hidden})
	require.NoError(t, err)
	assert.True(t, resp.Hidden)

	// Patch with an empty body keeps the stored state.
	resp, err = svc.Patch(context.Background(), ident, "cal-a", dto.CalendarPatchRequest{})
	require.NoError(t, err)
	assert.True(t, resp.Hidden)

	visible := false
	resp, err = svc.Put(context.Background(), ident, "cal-a", dto.CalendarPutRequest{Hidden: &visible})
	require.NoError(t, err)
	assert.False(t, resp.Hidden)

	// Unknown calendars are rejected upstream-first.
	_, err = svc.Patch(context.Background(), ident, "cal-missing", dto.CalendarPatchRequest{Hidden: &hidden})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCalendarServiceDelete(t *testing.T) {
	overlays := newOverlayStub()
	overlays.calendars["cal-a"] = &models.CalendarOverlay{UserID: 42, CalendarID: "cal-a"}
	svc := newCalendarService(&apiStub{calendars: threeCalendars()}, overlays)

	require.NoError(t, svc.Delete(context.Background(), testIdentity(), "cal-a"))

	err := svc.Delete(context.Background(), testIdentity(), "cal-a")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrCalendarNotAdded.Code, appErrors.FromError(err).Code)
}
