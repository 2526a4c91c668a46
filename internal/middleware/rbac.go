package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ondemand-reports-api/internal/models"
	appErrors "github.com/noah-isme/ondemand-reports-api/pkg/errors"
	"github.com/noah-isme/ondemand-reports-api/pkg/response"
)

// RequireRoles restricts a route to callers holding one of roles. An empty
// list admits every authenticated caller.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if len(allowed) == 0 {
			c.Next()
			return
		}
		if _, ok := allowed[claims.Role]; ok {
			c.Next()
			return
		}
		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}
