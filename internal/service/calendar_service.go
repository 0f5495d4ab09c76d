package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/dhsdevclub/ticktock-api/internal/dto"
	"github.com/dhsdevclub/ticktock-api/internal/gcal"
	"github.com/dhsdevclub/ticktock-api/internal/models"
	"github.com/dhsdevclub/ticktock-api/internal/search"
	appErrors "github.com/dhsdevclub/ticktock-api/pkg/errors"
)

type calendarOverlayStore interface {
	GetCalendar(ctx context.Context, userKey int64, calendarID string) (*models.CalendarOverlay, error)
	ListCalendars(ctx context.Context, userKey int64) ([]models.CalendarOverlay, error)
	UpsertCalendar(ctx context.Context, overlay *models.CalendarOverlay) error
	DeleteCalendar(ctx context.Context, userKey int64, calendarID string) (bool, error)
}

// CalendarService merges the user's Google calendar list with stored
// per-user overlay flags.
type CalendarService struct {
	overlays  calendarOverlayStore
	calendars gcal.Factory
	logger    *zap.Logger
}

func NewCalendarService(overlays calendarOverlayStore, calendars gcal.Factory, logger *zap.Logger) *CalendarService {
	return &CalendarService{overlays: overlays, calendars: calendars, logger: logger}
}

// List returns every calendar visible to the user, merged with overlay
// flags, filtered and ordered per the request.
func (s *CalendarService) List(ctx context.Context, ident models.Identity, req dto.CalendarListRequest) (*dto.CalendarCollection, error) {
	api, err := s.calendars.ClientFor(ctx, ident.Token)
	if err != nil {
		return nil, internalError(err, "calendar client")
	}

	records, err := api.ListCalendars(ctx)
	if err != nil {
		return nil, err
	}

	overlays, err := s.overlays.ListCalendars(ctx, ident.Key)
	if err != nil {
		return nil, internalError(err, "list calendar overlays")
	}
	hiddenByID := make(map[string]bool, len(overlays))
	for _, o := range overlays {
		hiddenByID[o.CalendarID] = o.Hidden
	}

	items := make([]models.CalendarRecord, 0, len(records))
	for _, cal := range records {
		cal.Hidden = hiddenByID[cal.ID]
		if req.Hidden != nil && cal.Hidden != *req.Hidden {
			continue
		}
		items = append(items, cal)
	}

	if req.Search != "" {
		items = search.CalendarKeywordSearch(items, req.Search)
	} else {
		items = search.CalendarAlphaSort(items)
	}

	return &dto.CalendarCollection{Items: items}, nil
}

// Get returns a single calendar with its overlay flag applied.
func (s *CalendarService) Get(ctx context.Context, ident models.Identity, calendarID string) (*models.CalendarRecord, error) {
	api, err := s.calendars.ClientFor(ctx, ident.Token)
	if err != nil {
		return nil, internalError(err, "calendar client")
	}

	cal, err := api.GetCalendar(ctx, calendarID)
	if err != nil {
		return nil, err
	}

	overlay, err := s.overlays.GetCalendar(ctx, ident.Key, calendarID)
	if err != nil {
		return nil, internalError(err, "get calendar overlay")
	}
	if overlay != nil {
		cal.Hidden = overlay.Hidden
	}
	return cal, nil
}

// Patch updates the overlay flag for a calendar, creating the overlay
// row on first write. The calendar must exist upstream.
func (s *CalendarService) Patch(ctx context.Context, ident models.Identity, calendarID string, req dto.CalendarPatchRequest) (*dto.CalendarWriteResponse, error) {
	if err := s.requireCalendar(ctx, ident, calendarID); err != nil {
		return nil, err
	}

	overlay, err := s.overlays.GetCalendar(ctx, ident.Key, calendarID)
	if err != nil {
		return nil, internalError(err, "get calendar overlay")
	}
	if overlay == nil {
		overlay = &models.CalendarOverlay{UserID: ident.Key, CalendarID: calendarID}
	}
	if req.Hidden != nil {
		overlay.Hidden = *req.Hidden
	}

	if err := s.overlays.UpsertCalendar(ctx, overlay); err != nil {
		return nil, internalError(err, "upsert calendar overlay")
	}
	return &dto.CalendarWriteResponse{CalendarID: calendarID, Hidden: overlay.Hidden}, nil
}

// Put replaces the overlay state for a calendar.
func (s *CalendarService) Put(ctx context.Context, ident models.Identity, calendarID string, req dto.CalendarPutRequest) (*dto.CalendarWriteResponse, error) {
	if err := s.requireCalendar(ctx, ident, calendarID); err != nil {
		return nil, err
	}

	overlay := &models.CalendarOverlay{
		UserID:     ident.Key,
		CalendarID: calendarID,
		Hidden:     req.Hidden != nil && *req.Hidden,
	}
	if err := s.overlays.UpsertCalendar(ctx, overlay); err != nil {
		return nil, internalError(err, "upsert calendar overlay")
	}
	return &dto.CalendarWriteResponse{CalendarID: calendarID, Hidden: overlay.Hidden}, nil
}

// Delete removes the overlay row for a calendar. The upstream calendar
// itself is never touched.
func (s *CalendarService) Delete(ctx context.Context, ident models.Identity, calendarID string) error {
	deleted, err := s.overlays.DeleteCalendar(ctx, ident.Key, calendarID)
	if err != nil {
		return internalError(err, "delete calendar overlay")
	}
	if !deleted {
		return appErrors.ErrCalendarNotAdded
	}
	return nil
}

func (s *CalendarService) requireCalendar(ctx context.Context, ident models.Identity, calendarID string) error {
	api, err := s.calendars.ClientFor(ctx, ident.Token)
	if err != nil {
		return internalError(err, "calendar client")
	}
	if _, err := api.GetCalendar(ctx, calendarID); err != nil {
		return err
	}
	return nil
}

func internalError(err error, op string) *appErrors.Error {
	return appErrors.Wrap(fmt.Errorf("%s: %w", op, err),
		appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.ErrInternal.Message)
}
