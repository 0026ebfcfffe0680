package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/edutrack/gradebook-api/internal/models"
	appErrors "github.com/edutrack/gradebook-api/pkg/errors"
	"github.com/edutrack/gradebook-api/pkg/response"
)

// ContextSchoolKey is the gin context key storing the resolved school id.
const ContextSchoolKey = "schoolID"

// Tenant is the isolation guard. It runs after JWT and refuses to let a
// request reach any handler unless the verified token carries a school_id
// claim. The resolved id is the only tenant source downstream; handlers and
// services never accept one from the request body or query string.
func Tenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrTenantResolution)
			c.Abort()
			return
		}
		claims, ok := claimsValue.(*models.TenantClaims)
		if !ok || claims.SchoolID == "" {
			response.Error(c, appErrors.ErrTenantResolution)
			c.Abort()
			return
		}

		c.Set(ContextSchoolKey, claims.SchoolID)
		c.Next()
	}
}

// SchoolID returns the resolved tenant id stored by Tenant, or "" when the
// guard has not run.
func SchoolID(c *gin.Context) string {
	if v, exists := c.Get(ContextSchoolKey); exists {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}
