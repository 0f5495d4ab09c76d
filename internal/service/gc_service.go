package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/dhsdevclub/ticktock-api/internal/gcal"
	"github.com/dhsdevclub/ticktock-api/internal/models"
)

type userLister interface {
	List(ctx context.Context) ([]int64, error)
}

type gcOverlayStore interface {
	ListEventsByUser(ctx context.Context, userKey int64) ([]models.EventOverlay, error)
	DeleteEvent(ctx context.Context, userKey int64, calendarID, eventID string) (*models.EventOverlay, error)
}

type sessionTokens interface {
	TokenFor(ctx context.Context, userKey int64) (string, error)
}

// GCSummary reports one collection sweep.
type GCSummary struct {
	Old          int `json:"old"`
	Unbound      int `json:"unbound"`
	Total        int `json:"total"`
	SkippedUsers int `json:"skippedUsers"`
}

// GCService sweeps event overlays whose upstream events have ended or
// disappeared. Each user's own credentials are needed to look events up, so
// users without a live session are skipped until they next authenticate.
type GCService struct {
	users    userLister
	overlays gcOverlayStore
	clients  gcal.Factory
	sessions sessionTokens
	metrics  *MetricsService
	logger   *zap.Logger
}

func NewGCService(users userLister, overlays gcOverlayStore, clients gcal.Factory, sessions sessionTokens, metrics *MetricsService, logger *zap.Logger) *GCService {
	return &GCService{
		users:    users,
		overlays: overlays,
		clients:  clients,
		sessions: sessions,
		metrics:  metrics,
		logger:   logger,
	}
}

// Run performs one full sweep. Per-entity failures are logged and skipped;
// only being unable to enumerate users fails the sweep.
func (s *GCService) Run(ctx context.Context) (*GCSummary, error) {
	userKeys, err := s.users.List(ctx)
	if err != nil {
		return nil, internalError(err, "list users")
	}

	summary := &GCSummary{}
	for _, userKey := range userKeys {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		token, err := s.sessions.TokenFor(ctx, userKey)
		if err != nil {
			summary.SkippedUsers++
			continue
		}
		api, err := s.clients.ClientFor(ctx, token)
		if err != nil {
			s.logger.Warn("gc: calendar client", zap.Int64("user", userKey), zap.Error(err))
			summary.SkippedUsers++
			continue
		}
		s.sweepUser(ctx, api, userKey, summary)
	}

	s.metrics.RecordGCDeleted("old", summary.Old)
	s.metrics.RecordGCDeleted("unbound", summary.Unbound)
	s.logger.Info("gc sweep complete",
		zap.Int("old", summary.Old),
		zap.Int("unbound", summary.Unbound),
		zap.Int("total", summary.Total),
		zap.Int("skipped_users", summary.SkippedUsers))
	return summary, nil
}

func (s *GCService) sweepUser(ctx context.Context, api gcal.API, userKey int64, summary *GCSummary) {
	overlays, err := s.overlays.ListEventsByUser(ctx, userKey)
	if err != nil {
		s.logger.Warn("gc: list overlays", zap.Int64("user", userKey), zap.Error(err))
		return
	}
	for _, o := range overlays {
		summary.Total++
		_, err := api.GetEvent(ctx, o.CalendarID, o.EventID, "UTC")
		switch {
		case err == nil:
			continue
		case err == gcal.ErrEventEnded:
			if s.remove(ctx, userKey, o) {
				summary.Old++
			}
		case shouldPruneStar(err):
			if s.remove(ctx, userKey, o) {
				summary.Unbound++
			}
		default:
			s.logger.Warn("gc: fetch event",
				zap.String("event_id", o.EventID), zap.Error(err))
		}
	}
}

func (s *GCService) remove(ctx context.Context, userKey int64, o models.EventOverlay) bool {
	if _, err := s.overlays.DeleteEvent(ctx, userKey, o.CalendarID, o.EventID); err != nil {
		s.logger.Warn("gc: delete overlay",
			zap.String("event_id", o.EventID), zap.Error(err))
		return false
	}
	return true
}
