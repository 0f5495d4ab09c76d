package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/dhsdevclub/ticktock-api/internal/middleware"
	"github.com/dhsdevclub/ticktock-api/internal/models"
	appErrors "github.com/dhsdevclub/ticktock-api/pkg/errors"
)

func identityFromContext(c *gin.Context) *models.Identity {
	value, exists := c.Get(middleware.ContextIdentityKey)
	if !exists {
		return nil
	}
	ident, ok := value.(*models.Identity)
	if !ok {
		return nil
	}
	return ident
}

// parseHiddenFilter reads the tri-state hidden query parameter. Absent means
// no filtering.
func parseHiddenFilter(c *gin.Context) (*bool, error) {
	raw, ok := c.GetQuery("hidden")
	if !ok || raw == "" {
		return nil, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "hidden must be true or false")
	}
	return &value, nil
}

func parseMaxResults(c *gin.Context) (int, error) {
	raw := c.Query("maxResults")
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "maxResults must be a positive integer")
	}
	return value, nil
}
