package service

import (
	"context"

	"github.com/dhsdevclub/ticktock-api/internal/dto"
	"github.com/dhsdevclub/ticktock-api/internal/gcal"
	"github.com/dhsdevclub/ticktock-api/internal/search"
)

// PublicService serves unauthenticated read-only listings using the
// service account's credentials. No overlay state is consulted, so the
// upstream cursor passes through as the page token directly.
type PublicService struct {
	clients      gcal.Factory
	accountToken string
	pageSize     int
}

func NewPublicService(clients gcal.Factory, accountToken string, pageSize int) *PublicService {
	if pageSize <= 0 {
		pageSize = 10
	}
	return &PublicService{clients: clients, accountToken: accountToken, pageSize: pageSize}
}

// ListCalendars returns the service account's calendar list.
func (s *PublicService) ListCalendars(ctx context.Context, req dto.CalendarListRequest) (*dto.CalendarCollection, error) {
	api, err := s.clients.ClientFor(ctx, s.accountToken)
	if err != nil {
		return nil, internalError(err, "calendar client")
	}
	items, err := api.ListCalendars(ctx)
	if err != nil {
		return nil, err
	}
	if req.Search != "" {
		items = search.CalendarKeywordSearch(items, req.Search)
	} else {
		items = search.CalendarAlphaSort(items)
	}
	return &dto.CalendarCollection{Items: items}, nil
}

// ListEvents returns one page of upcoming events from a public calendar.
func (s *PublicService) ListEvents(ctx context.Context, req dto.EventListRequest) (*dto.EventCollection, error) {
	api, err := s.clients.ClientFor(ctx, s.accountToken)
	if err != nil {
		return nil, internalError(err, "calendar client")
	}

	pageSize := req.MaxResults
	if pageSize <= 0 || pageSize > maxPageSize {
		pageSize = s.pageSize
	}

	items, next, err := api.ListEvents(ctx, req.CalendarID, gcal.ListEventsOptions{
		PageToken:  req.PageToken,
		TimeZone:   req.TimeZone,
		MaxResults: pageSize,
	})
	if err != nil {
		return nil, err
	}
	if req.Search != "" {
		items = search.EventKeywordChronSearch(items, req.Search)
	} else {
		items = search.EventChronSort(items)
	}
	return &dto.EventCollection{Items: items, NextPageToken: next}, nil
}
