package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lecturehub/lecturehub-api/internal/models"
	"github.com/lecturehub/lecturehub-api/internal/service"
	appErrors "github.com/lecturehub/lecturehub-api/pkg/errors"
	"github.com/lecturehub/lecturehub-api/pkg/response"
)

// ContextUserKey is the gin context key storing JWT claims.
const ContextUserKey = "currentUser"

// ContextPrincipalKey is the gin context key storing the loaded principal.
// Access decisions need the principal's cohort, which the token does not
// carry, so the middleware resolves the full record once per request.
const ContextPrincipalKey = "currentPrincipal"

type principalLoader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// JWT protects routes by requiring a valid access token and resolves the
// principal behind it.
func JWT(authService *service.AuthService, users principalLoader) gin.HandlerFunc {
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

		claims, err := authService.ValidateToken(parts[1])
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		user, err := users.FindByID(c.Request.Context(), claims.UserID)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "account no longer exists"))
			c.Abort()
			return
		}
		if !user.Active {
			response.Error(c, appErrors.Clone(appErrors.ErrInactiveAccount, "account is inactive"))
			c.Abort()
			return
		}

		c.Set(ContextUserKey, claims)
		c.Set(ContextPrincipalKey, user)
		c.Next()
	}
}
