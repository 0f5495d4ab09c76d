package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/dhsdevclub/ticktock-api/internal/dto"
	"github.com/dhsdevclub/ticktock-api/internal/gcal"
	"github.com/dhsdevclub/ticktock-api/internal/models"
	"github.com/dhsdevclub/ticktock-api/internal/search"
	appErrors "github.com/dhsdevclub/ticktock-api/pkg/errors"
	"github.com/dhsdevclub/ticktock-api/pkg/pagetoken"
)

type eventOverlayStore interface {
	GetCalendar(ctx context.Context, userKey int64, calendarID string) (*models.CalendarOverlay, error)
	GetEvent(ctx context.Context, userKey int64, calendarID, eventID string) (*models.EventOverlay, error)
	UpsertEvent(ctx context.Context, overlay *models.EventOverlay) error
	DeleteEvent(ctx context.Context, userKey int64, calendarID, eventID string) (*models.EventOverlay, error)
	ListStarredEvents(ctx context.Context, userKey int64, calendarID string) ([]models.EventOverlay, error)
}

type pageCacheStore interface {
	Get(ctx context.Context, userKey, id int64) (*models.EventCachePage, error)
	FindByContentDigest(ctx context.Context, userKey int64, digest string) (*models.EventCachePage, error)
	Insert(ctx context.Context, page *models.EventCachePage) (int64, error)
}

const maxPageSize = 100

// EventService builds paginated event listings: starred events fetched
// live, the rest streamed from the upstream calendar, overlay flags merged
// in, and page boundaries snapshotted so tokens replay deterministically.
type EventService struct {
	overlays eventOverlayStore
	cache    pageCacheStore
	clients  gcal.Factory
	pageSize int
	metrics  *MetricsService
	logger   *zap.Logger
}

func NewEventService(overlays eventOverlayStore, cache pageCacheStore, clients gcal.Factory, pageSize int, metrics *MetricsService, logger *zap.Logger) *EventService {
	if pageSize <= 0 {
		pageSize = 10
	}
	return &EventService{
		overlays: overlays,
		cache:    cache,
		clients:  clients,
		pageSize: pageSize,
		metrics:  metrics,
		logger:   logger,
	}
}

// List computes one page of the merged event listing for a calendar.
//
// Starred events are always fetched individually so they surface regardless
// of how far in the future they lie. The remainder of the page is filled
// from the upstream listing, skipping events (or instances of recurring
// events) already included via a star. When the page fills up, the overflow
// plus the upstream cursor and any starred events that did not fit are
// persisted, and the row id becomes the opaque next-page token.
func (s *EventService) List(ctx context.Context, ident models.Identity, req dto.EventListRequest) (*dto.EventCollection, error) {
	pageSize := req.MaxResults
	if pageSize <= 0 || pageSize > maxPageSize {
		pageSize = s.pageSize
	}
	timeZone := req.TimeZone
	if timeZone == "" {
		timeZone = "UTC"
	}

	api, err := s.clients.ClientFor(ctx, ident.Token)
	if err != nil {
		return nil, internalError(err, "calendar client")
	}

	params := paramsDigest(ident.Key, req.CalendarID, req.Search, req.Hidden, timeZone, pageSize)

	starred, starredIDs, err := s.collectStarred(ctx, api, ident.Key, req.CalendarID, timeZone)
	if err != nil {
		return nil, err
	}

	var (
		items    []models.EventRecord
		cursor   string
		haveMore = true
	)

	if req.PageToken != "" {
		id, ok := pagetoken.Decode(req.PageToken)
		if !ok {
			return nil, appErrors.ErrStalePageToken
		}
		page, err := s.cache.Get(ctx, ident.Key, id)
		if err != nil {
			return nil, internalError(err, "load cached page")
		}
		if page == nil || page.ParamsDigest != params {
			return nil, appErrors.ErrStalePageToken
		}
		cached, err := page.DecodeItems()
		if err != nil {
			return nil, internalError(err, "decode cached page")
		}
		items = cached
		cursor = page.Cursor
		haveMore = cursor != ""

		// Only the starred events deferred from the previous page are
		// still candidates; the rest were already served.
		deferred := make(map[string]struct{}, len(page.ExtraStarred))
		for _, id := range page.ExtraStarred {
			deferred[id] = struct{}{}
		}
		kept := starred[:0]
		for _, ev := range starred {
			if _, ok := deferred[ev.ID]; ok {
				kept = append(kept, ev)
			}
		}
		starred = kept
	}

	seen := make(map[string]struct{}, len(items)+len(starred))
	for _, ev := range items {
		seen[ev.ID] = struct{}{}
	}

	// Starred events beyond the page size are deferred to the next page.
	var deferredStarred []string
	if len(starred) > pageSize {
		for _, ev := range starred[pageSize:] {
			deferredStarred = append(deferredStarred, ev.ID)
		}
		starred = starred[:pageSize]
	}
	for _, ev := range starred {
		if _, ok := seen[ev.ID]; ok {
			continue
		}
		seen[ev.ID] = struct{}{}
		items = append(items, ev)
	}

	for len(items) < pageSize+1 && haveMore {
		batch, next, err := api.ListEvents(ctx, req.CalendarID, gcal.ListEventsOptions{
			PageToken:  cursor,
			TimeZone:   timeZone,
			MaxResults: pageSize,
		})
		if err != nil {
			return nil, err
		}
		for _, ev := range batch {
			if _, ok := starredIDs[ev.ID]; ok {
				continue
			}
			if ev.RecurrenceID != "" {
				if _, ok := starredIDs[ev.RecurrenceID]; ok {
					continue
				}
			}
			if _, ok := seen[ev.ID]; ok {
				continue
			}
			hidden, starredFlag, err := s.resolveOverlay(ctx, ident.Key, req.CalendarID, ev)
			if err != nil {
				return nil, err
			}
			ev.Hidden = hidden
			ev.Starred = starredFlag
			if req.Hidden != nil && ev.Hidden != *req.Hidden {
				continue
			}
			seen[ev.ID] = struct{}{}
			items = append(items, ev)
		}
		cursor = next
		haveMore = next != ""
	}

	if req.Search != "" {
		items = search.EventKeywordChronSearch(items, req.Search)
	} else {
		items = search.EventChronSort(items)
	}

	// A token is issued only when something remains beyond this page.
	overflow := len(items) > pageSize
	if !overflow && len(deferredStarred) == 0 && !haveMore {
		return &dto.EventCollection{Items: items}, nil
	}

	pageItems := items
	var overflowItems []models.EventRecord
	if overflow {
		pageItems = items[:pageSize]
		overflowItems = items[pageSize:]
	}

	token, err := s.persistBoundary(ctx, ident.Key, params, overflowItems, cursor, deferredStarred)
	if err != nil {
		return nil, err
	}
	return &dto.EventCollection{Items: pageItems, NextPageToken: token}, nil
}

// collectStarred fetches each starred event live. Events that no longer
// exist or have already ended are pruned from the overlay store; transient
// upstream failures keep the overlay but skip the event for this request.
func (s *EventService) collectStarred(ctx context.Context, api gcal.API, userKey int64, calendarID, timeZone string) ([]models.EventRecord, map[string]struct{}, error) {
	overlays, err := s.overlays.ListStarredEvents(ctx, userKey, calendarID)
	if err != nil {
		return nil, nil, internalError(err, "list starred overlays")
	}

	events := make([]models.EventRecord, 0, len(overlays))
	ids := make(map[string]struct{}, len(overlays))
	for _, o := range overlays {
		ev, err := api.GetEvent(ctx, calendarID, o.EventID, timeZone)
		if err != nil {
			if shouldPruneStar(err) {
				if _, derr := s.overlays.DeleteEvent(ctx, userKey, calendarID, o.EventID); derr != nil {
					s.logger.Warn("prune starred overlay",
						zap.String("event_id", o.EventID), zap.Error(derr))
				}
			} else {
				s.logger.Warn("fetch starred event",
					zap.String("event_id", o.EventID), zap.Error(err))
			}
			continue
		}
		ev.Starred = true
		events = append(events, *ev)
		ids[o.EventID] = struct{}{}
	}
	return events, ids, nil
}

// resolveOverlay returns the stored flags for an event, falling back to the
// recurring parent's overlay when the instance has none of its own.
func (s *EventService) resolveOverlay(ctx context.Context, userKey int64, calendarID string, ev models.EventRecord) (hidden, starred bool, err error) {
	overlay, err := s.overlays.GetEvent(ctx, userKey, calendarID, ev.ID)
	if err != nil {
		return false, false, internalError(err, "get event overlay")
	}
	if overlay == nil && ev.RecurrenceID != "" {
		overlay, err = s.overlays.GetEvent(ctx, userKey, calendarID, ev.RecurrenceID)
		if err != nil {
			return false, false, internalError(err, "get parent overlay")
		}
	}
	if overlay == nil {
		return false, false, nil
	}
	return overlay.Hidden, overlay.Starred, nil
}

// persistBoundary stores the page boundary and returns its token, reusing
// an identical existing row when one exists.
func (s *EventService) persistBoundary(ctx context.Context, userKey int64, params string, overflow []models.EventRecord, cursor string, deferredStarred []string) (string, error) {
	page := &models.EventCachePage{
		UserID:       userKey,
		ParamsDigest: params,
		Cursor:       cursor,
		ExtraStarred: pq.StringArray(deferredStarred),
	}
	if err := page.EncodeItems(overflow); err != nil {
		return "", internalError(err, "encode cached page")
	}
	page.ContentDigest = contentDigest(params, cursor, deferredStarred, overflow)

	existing, err := s.cache.FindByContentDigest(ctx, userKey, page.ContentDigest)
	if err != nil {
		return "", internalError(err, "find cached page")
	}
	if existing != nil {
		s.metrics.RecordPageCache(true)
		return pagetoken.Encode(existing.ID), nil
	}

	id, err := s.cache.Insert(ctx, page)
	if err != nil {
		return "", internalError(err, "insert cached page")
	}
	s.metrics.RecordPageCache(false)
	return pagetoken.Encode(id), nil
}

// Patch updates the overlay flags for an event. The calendar must already
// carry an overlay row for the user, otherwise the event has nothing to
// attach to.
func (s *EventService) Patch(ctx context.Context, ident models.Identity, calendarID, eventID string, req dto.EventPatchRequest) (*dto.EventWriteResponse, error) {
	calOverlay, err := s.overlays.GetCalendar(ctx, ident.Key, calendarID)
	if err != nil {
		return nil, internalError(err, "get calendar overlay")
	}
	if calOverlay == nil {
		return nil, appErrors.ErrCalendarNotAdded
	}

	overlay, err := s.overlays.GetEvent(ctx, ident.Key, calendarID, eventID)
	if err != nil {
		return nil, internalError(err, "get event overlay")
	}
	if overlay == nil {
		overlay = &models.EventOverlay{UserID: ident.Key, CalendarID: calendarID, EventID: eventID}
		if req.RecurrenceID != nil && *req.RecurrenceID != "" {
			parent, err := s.overlays.GetEvent(ctx, ident.Key, calendarID, *req.RecurrenceID)
			if err != nil {
				return nil, internalError(err, "get parent overlay")
			}
			if parent != nil {
				overlay.Hidden = parent.Hidden
				overlay.Starred = parent.Starred
			}
		}
	}

	if req.Hidden != nil {
		overlay.Hidden = *req.Hidden
	}
	if req.Starred != nil {
		overlay.Starred = *req.Starred
	}
	if overlay.Hidden {
		overlay.Starred = false
	}

	if err := s.overlays.UpsertEvent(ctx, overlay); err != nil {
		return nil, internalError(err, "upsert event overlay")
	}
	return &dto.EventWriteResponse{
		EventID:    eventID,
		CalendarID: calendarID,
		Hidden:     overlay.Hidden,
		Starred:    overlay.Starred,
	}, nil
}

// Reset removes the overlay row for an event, restoring default flags.
func (s *EventService) Reset(ctx context.Context, ident models.Identity, calendarID, eventID string) (*dto.EventWriteResponse, error) {
	prior, err := s.overlays.DeleteEvent(ctx, ident.Key, calendarID, eventID)
	if err != nil {
		return nil, internalError(err, "delete event overlay")
	}
	if prior == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no stored state for event")
	}
	return &dto.EventWriteResponse{EventID: eventID, CalendarID: calendarID}, nil
}

func shouldPruneStar(err error) bool {
	if err == gcal.ErrEventEnded {
		return true
	}
	switch appErrors.FromError(err).Status {
	case 404, 410:
		return true
	}
	return false
}

// paramsDigest fingerprints the query parameters a page token is bound to.
func paramsDigest(userKey int64, calendarID, keywords string, hidden *bool, timeZone string, pageSize int) string {
	hiddenPart := "any"
	if hidden != nil {
		hiddenPart = strconv.FormatBool(*hidden)
	}
	h := sha256.Sum256([]byte(strings.Join([]string{
		strconv.FormatInt(userKey, 10),
		calendarID,
		keywords,
		hiddenPart,
		timeZone,
		strconv.Itoa(pageSize),
	}, "\x1f")))
	return hex.EncodeToString(h[:])
}

// contentDigest fingerprints the full boundary snapshot for deduplication.
func contentDigest(params, cursor string, deferredStarred []string, overflow []models.EventRecord) string {
	h := sha256.New()
	h.Write([]byte(params))
	h.Write([]byte{0x1f})
	h.Write([]byte(cursor))
	for _, id := range deferredStarred {
		h.Write([]byte{0x1f})
		h.Write([]byte(id))
	}
	for _, ev := range overflow {
		h.Write([]byte{0x1e})
		fmt.Fprintf(h, "%s|%s|%d|%t|%t", ev.ID, ev.Name, ev.StartDate.Unix(), ev.Starred, ev.Hidden)
	}
	return hex.EncodeToString(h.Sum(nil))
}
