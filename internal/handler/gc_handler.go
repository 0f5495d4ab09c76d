package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/dhsdevclub/ticktock-api/internal/service"
	"github.com/dhsdevclub/ticktock-api/pkg/response"
)

type gcService interface {
	Run(ctx context.Context) (*service.GCSummary, error)
}

// GCHandler triggers overlay garbage collection. The route is meant to be
// hit by a scheduler, not by clients.
type GCHandler struct {
	service gcService
}

func NewGCHandler(service gcService) *GCHandler {
	return &GCHandler{service: service}
}

func (h *GCHandler) Run(c *gin.Context) {
	summary, err := h.service.Run(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, summary)
}
