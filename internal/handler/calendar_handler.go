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

type calendarService interface {
	List(ctx context.Context, ident models.Identity, req dto.CalendarListRequest) (*dto.CalendarCollection, error)
	Get(ctx context.Context, ident models.Identity, calendarID string) (*models.CalendarRecord, error)
	Patch(ctx context.Context, ident models.Identity, calendarID string, req dto.CalendarPatchRequest) (*dto.CalendarWriteResponse, error)
	Put(ctx context.Context, ident models.Identity, calendarID string, req dto.CalendarPutRequest) (*dto.CalendarWriteResponse, error)
	Delete(ctx context.Context, ident models.Identity, calendarID string) error
}

// CalendarHandler exposes the authenticated calendar endpoints.
type CalendarHandler struct {
	service calendarService
}

func NewCalendarHandler(service calendarService) *CalendarHandler {
	return &CalendarHandler{service: service}
}

func (h *CalendarHandler) List(c *gin.Context) {
	ident := identityFromContext(c)
	if ident == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	hidden, err := parseHiddenFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	req := dto.CalendarListRequest{
		Search: c.Query("search"),
		Hidden: hidden,
	}
	out, err := h.service.List(c.Request.Context(), *ident, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, out)
}

func (h *CalendarHandler) Get(c *gin.Context) {
	ident := identityFromContext(c)
	if ident == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	cal, err := h.service.Get(c.Request.Context(), *ident, c.Param("calendarId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, cal)
}

func (h *CalendarHandler) Patch(c *gin.Context) {
	ident := identityFromContext(c)
	if ident == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.CalendarPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid calendar payload"))
		return
	}
	out, err := h.service.Patch(c.Request.Context(), *ident, c.Param("calendarId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, out)
}

func (h *CalendarHandler) Put(c *gin.Context) {
	ident := identityFromContext(c)
	if ident == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.CalendarPutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid calendar payload"))
		return
	}
	out, err := h.service.Put(c.Request.Context(), *ident, c.Param("calendarId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, out)
}

func (h *CalendarHandler) Delete(c *gin.Context) {
	ident := identityFromContext(c)
	if ident == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.service.Delete(c.Request.Context(), *ident, c.Param("calendarId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
