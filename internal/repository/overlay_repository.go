package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/dhsdevclub/ticktock-api/internal/models"
)

// OverlayRepository persists per-user hidden/starred flags for calendars and
// events. Writes are read back within the same request, so there is no cache
// in front of it.
type OverlayRepository struct {
	db *sqlx.DB
}

// NewOverlayRepository constructs an overlay repository.
func NewOverlayRepository(db *sqlx.DB) *OverlayRepository {
	return &OverlayRepository{db: db}
}

// GetCalendar fetches one calendar overlay, or nil when the user has not
// added the calendar.
func (r *OverlayRepository) GetCalendar(ctx context.Context, userKey int64, calendarID string) (*models.CalendarOverlay, error) {
	const query = `SELECT user_id, calendar_id, hidden FROM calendar_overlays WHERE user_id = $1 AND calendar_id = $2`
	var overlay models.CalendarOverlay
	if err := r.db.GetContext(ctx, &overlay, query, userKey, calendarID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get calendar overlay: %w", err)
	}
	return &overlay, nil
}

// ListCalendars returns every calendar overlay for a user.
func (r *OverlayRepository) ListCalendars(ctx context.Context, userKey int64) ([]models.CalendarOverlay, error) {
	const query = `SELECT user_id, calendar_id, hidden FROM calendar_overlays WHERE user_id = $1 ORDER BY calendar_id`
	var overlays []models.CalendarOverlay
	if err := r.db.SelectContext(ctx, &overlays, query, userKey); err != nil {
		return nil, fmt.Errorf("list calendar overlays: %w", err)
	}
	return overlays, nil
}

// UpsertCalendar stores a calendar overlay.
func (r *OverlayRepository) UpsertCalendar(ctx context.Context, overlay *models.CalendarOverlay) error {
	const query = `INSERT INTO calendar_overlays (user_id, calendar_id, hidden)
VALUES (:user_id, :calendar_id, :hidden)
ON CONFLICT (user_id, calendar_id) DO UPDATE SET hidden = EXCLUDED.hidden`
	if _, err := r.db.NamedExecContext(ctx, query, overlay); err != nil {
		return fmt.Errorf("upsert calendar overlay: %w", err)
	}
	return nil
}

// DeleteCalendar removes a calendar overlay. Event overlays under it are
// kept, so re-adding the calendar restores starred/hidden state. Returns
// false when no row existed.
func (r *OverlayRepository) DeleteCalendar(ctx context.Context, userKey int64, calendarID string) (bool, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM calendar_overlays WHERE user_id = $1 AND calendar_id = $2", userKey, calendarID)
	if err != nil {
		return false, fmt.Errorf("delete calendar overlay: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete calendar overlay: %w", err)
	}
	return affected > 0, nil
}

// GetEvent fetches one event overlay, or nil when none is stored.
func (r *OverlayRepository) GetEvent(ctx context.Context, userKey int64, calendarID, eventID string) (*models.EventOverlay, error) {
	const query = `SELECT user_id, calendar_id, event_id, hidden, starred FROM event_overlays
WHERE user_id = $1 AND calendar_id = $2 AND event_id = $3`
	var overlay models.EventOverlay
	if err := r.db.GetContext(ctx, &overlay, query, userKey, calendarID, eventID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get event overlay: %w", err)
	}
	return &overlay, nil
}

// UpsertEvent stores an event overlay. Hidden wins over starred: a hidden
// event is never persisted as starred.
func (r *OverlayRepository) UpsertEvent(ctx context.Context, overlay *models.EventOverlay) error {
	if overlay.Hidden {
		overlay.Starred = false
	}
	const query = `INSERT INTO event_overlays (user_id, calendar_id, event_id, hidden, starred)
VALUES (:user_id, :calendar_id, :event_id, :hidden, :starred)
ON CONFLICT (user_id, calendar_id, event_id) DO UPDATE SET hidden = EXCLUDED.hidden, starred = EXCLUDED.starred`
	if _, err := r.db.NamedExecContext(ctx, query, overlay); err != nil {
		return fmt.Errorf("upsert event overlay: %w", err)
	}
	return nil
}

// DeleteEvent removes an event overlay, returning the prior row or nil when
// none existed.
func (r *OverlayRepository) DeleteEvent(ctx context.Context, userKey int64, calendarID, eventID string) (*models.EventOverlay, error) {
	const query = `DELETE FROM event_overlays WHERE user_id = $1 AND calendar_id = $2 AND event_id = $3
RETURNING user_id, calendar_id, event_id, hidden, starred`
	var overlay models.EventOverlay
	if err := r.db.GetContext(ctx, &overlay, query, userKey, calendarID, eventID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("delete event overlay: %w", err)
	}
	return &overlay, nil
}

// ListStarredEvents returns the starred overlays for one calendar.
func (r *OverlayRepository) ListStarredEvents(ctx context.Context, userKey int64, calendarID string) ([]models.EventOverlay, error) {
	const query = `SELECT user_id, calendar_id, event_id, hidden, starred FROM event_overlays
WHERE user_id = $1 AND calendar_id = $2 AND starred ORDER BY event_id`
	var overlays []models.EventOverlay
	if err := r.db.SelectContext(ctx, &overlays, query, userKey, calendarID); err != nil {
		return nil, fmt.Errorf("list starred events: %w", err)
	}
	return overlays, nil
}

// ListEventsByUser returns every event overlay a user owns, for the garbage
// collection sweep.
func (r *OverlayRepository) ListEventsByUser(ctx context.Context, userKey int64) ([]models.EventOverlay, error) {
	const query = `SELECT user_id, calendar_id, event_id, hidden, starred FROM event_overlays
WHERE user_id = $1 ORDER BY calendar_id, event_id`
	var overlays []models.EventOverlay
	if err := r.db.SelectContext(ctx, &overlays, query, userKey); err != nil {
		return nil, fmt.Errorf("list event overlays: %w", err)
	}
	return overlays, nil
}
