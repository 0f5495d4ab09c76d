package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dhsdevclub/ticktock-api/internal/gcal"
	"github.com/dhsdevclub/ticktock-api/internal/models"
	appErrors "github.com/dhsdevclub/ticktock-api/pkg/errors"
)

type userListerStub struct {
	keys []int64
}

func (s userListerStub) List(ctx context.Context) ([]int64, error) {
	return s.keys, nil
}

type sessionsStub struct {
	tokens map[int64]string
}

func (s sessionsStub) TokenFor(ctx context.Context, userKey int64) (string, error) {
	token, ok := s.tokens[userKey]
	if !ok {
		return "", appErrors.Clone(appErrors.ErrNotFound, "no live session for user")
	}
	return token, nil
}

func TestGCServiceSweep(t *testing.T) {
	overlays := newOverlayStub()
	overlays.addEvent(models.EventOverlay{UserID: 42, CalendarID: testCalendar, EventID: "ev1", Starred: true})
	overlays.addEvent(models.EventOverlay{UserID: 42, CalendarID: testCalendar, EventID: "done", Starred: true})
	overlays.addEvent(models.EventOverlay{UserID: 42, CalendarID: testCalendar, EventID: "gone", Hidden: true})

	api := &apiStub{
		events: map[string][]models.EventRecord{testCalendar: upstreamEvents(1)},
		getErr: map[string]error{
			"done": gcal.ErrEventEnded,
			"gone": appErrors.Clone(appErrors.ErrNotFound, "event not found"),
		},
	}

	svc := NewGCService(
		userListerStub{keys: []int64{42, 77}},
		overlays,
		factoryStub{api: api},
		sessionsStub{tokens: map[int64]string{42: "token"}},
		nil,
		zap.NewNop(),
	)

	summary, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Old, "ended event pruned")
	assert.Equal(t, 1, summary.Unbound, "missing event pruned")
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 1, summary.SkippedUsers, "user without a session is skipped")

	assert.ElementsMatch(t, []string{"done", "gone"}, overlays.deleted)
	_, remaining := overlays.events[overlayKey(testCalendar, "ev1")]
	assert.True(t, remaining, "live event overlay survives the sweep")
}
