package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/dhsdevclub/ticktock-api/internal/dto"
	"github.com/dhsdevclub/ticktock-api/pkg/response"
)

type publicService interface {
	ListCalendars(ctx context.Context, req dto.CalendarListRequest) (*dto.CalendarCollection, error)
	ListEvents(ctx context.Context, req dto.EventListRequest) (*dto.EventCollection, error)
}

// PublicHandler exposes the unauthenticated read-only endpoints backed by
// the service account's calendars.
type PublicHandler struct {
	service publicService
}

func NewPublicHandler(service publicService) *PublicHandler {
	return &PublicHandler{service: service}
}

func (h *PublicHandler) ListCalendars(c *gin.Context) {
	req := dto.CalendarListRequest{Search: c.Query("search")}
	out, err := h.service.ListCalendars(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, out)
}

func (h *PublicHandler) ListEvents(c *gin.Context) {
	maxResults, err := parseMaxResults(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	req := dto.EventListRequest{
		CalendarID: c.Param("calendarId"),
		Search:     c.Query("search"),
		TimeZone:   c.Query("timeZone"),
		PageToken:  c.Query("pageToken"),
		MaxResults: maxResults,
	}
	out, err := h.service.ListEvents(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, out)
}
