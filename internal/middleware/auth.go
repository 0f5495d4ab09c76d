package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dhsdevclub/ticktock-api/internal/models"
	appErrors "github.com/dhsdevclub/ticktock-api/pkg/errors"
	"github.com/dhsdevclub/ticktock-api/pkg/response"
)

// ContextIdentityKey is the gin context key storing the verified identity.
const ContextIdentityKey = "currentIdentity"

type tokenVerifier interface {
	Verify(ctx context.Context, raw string) (*models.Identity, error)
}

type userEnsurer interface {
	Ensure(ctx context.Context, userKey int64) error
}

// Auth protects routes by requiring a Google token in the Authorization
// header. The verified identity is stored on the context, and the user row
// is created on first sight so the garbage collector can enumerate accounts.
func Auth(verifier tokenVerifier, users userEnsurer) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			c.Abort()
			return
		}

		ident, err := verifier.Verify(c.Request.Context(), parts[1])
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		if err := users.Ensure(c.Request.Context(), ident.Key); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "register user"))
			c.Abort()
			return
		}

		c.Set(ContextIdentityKey, ident)
		c.Next()
	}
}
