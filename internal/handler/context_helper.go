package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/edutrack/gradebook-api/internal/middleware"
	"github.com/edutrack/gradebook-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.TenantClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.TenantClaims)
	if !ok {
		return nil
	}
	return claims
}

// schoolFromContext returns the tenant resolved by the isolation guard. It
// is the only way handlers obtain a school id.
func schoolFromContext(c *gin.Context) string {
	return middleware.SchoolID(c)
}

func userFromContext(c *gin.Context) string {
	if claims := claimsFromContext(c); claims != nil {
		return claims.UserID
	}
	return ""
}
