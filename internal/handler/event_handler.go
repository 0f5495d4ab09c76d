package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dhsdevclub/ticktock-api/internal/dto"
	"github.com/dhsdevclub/ticktock-api/internal/models"
	appErrors "github.com/dhsdevclub/ticktock-api/pkg/errors"
	"github.com/dhsdevclub/ticktock-api/pkg/response"
)

type eventService interface {
	List(ctx context.Context, ident models.Identity, req dto.EventListRequest) (*dto.EventCollection, error)
	Patch(ctx context.Context, ident models.Identity, calendarID, eventID string, req dto.EventPatchRequest) (*dto.EventWriteResponse, error)
	Reset(ctx context.Context, ident models.Identity, calendarID, eventID string) (*dto.EventWriteResponse, error)
}

// EventHandler exposes the authenticated event endpoints.
type EventHandler struct {
	service eventService
}

func NewEventHandler(service eventService) *EventHandler {
	return &EventHandler{service: service}
}

func (h *EventHandler) List(c *gin.Context) {
	ident := identityFromContext(c)
	if ident == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	req, err := parseEventListRequest(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	out, err := h.service.List(c.Request.Context(), *ident, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, out)
}

func (h *EventHandler) Patch(c *gin.Context) {
	ident := identityFromContext(c)
	if ident == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.EventPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid event payload"))
		return
	}
	out, err := h.service.Patch(c.Request.Context(), *ident, c.Param("calendarId"), c.Param("eventId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, out)
}

func (h *EventHandler) Reset(c *gin.Context) {
	ident := identityFromContext(c)
	if ident == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	out, err := h.service.Reset(c.Request.Context(), *ident, c.Param("calendarId"), c.Param("eventId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, out)
}

func parseEventListRequest(c *gin.Context) (dto.EventListRequest, error) {
	hidden, err := parseHiddenFilter(c)
	if err != nil {
		return dto.EventListRequest{}, err
	}
	maxResults, err := parseMaxResults(c)
	if err != nil {
		return dto.EventListRequest{}, err
	}
	return dto.EventListRequest{
		CalendarID: c.Param("calendarId"),
		Search:     c.Query("search"),
		Hidden:     hidden,
		TimeZone:   c.Query("timeZone"),
		PageToken:  c.Query("pageToken"),
		MaxResults: maxResults,
	}, nil
}
