package middleware

import (
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/mas-api/internal/models"
	appErrors "github.com/noah-isme/mas-api/pkg/errors"
	"github.com/noah-isme/mas-api/pkg/response"
)

// RequireUserTypes admits only actors whose user type is listed. Building
// roles are not checked here; those depend on the row being acted on.
func RequireUserTypes(types ...models.UserType) gin.HandlerFunc {
	allowed := mapset.NewSet(types...)
	return func(c *gin.Context) {
		claims, ok := CurrentUser(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if !allowed.Contains(claims.UserType) {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "not available for "+string(claims.UserType)+" users"))
			c.Abort()
			return
		}
		c.Next()
	}
}
