package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/edutrack/gradebook-api/internal/models"
)

func tenantTestRouter(claims *models.TenantClaims) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	if claims != nil {
		router.Use(func(c *gin.Context) {
			c.Set(ContextUserKey, claims)
		})
	}
	router.Use(Tenant())
	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, SchoolID(c))
	})
	return router
}

func TestTenantGuardRejectsMissingClaims(t *testing.T) {
	router := tenantTestRouter(nil)

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusForbidden {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}

func TestTenantGuardRejectsEmptySchool(t *testing.T) {
	router := tenantTestRouter(&models.TenantClaims{UserID: "u1"})

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusForbidden {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}

func TestTenantGuardResolvesSchool(t *testing.T) {
	router := tenantTestRouter(&models.TenantClaims{UserID: "u1", SchoolID: "school-1"})

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
	if recorder.Body.String() != "school-1" {
		t.Fatalf("unexpected school id: %s", recorder.Body.String())
	}
}

func TestRBACAllowsListedRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(ContextUserKey, &models.TenantClaims{UserID: "u1", SchoolID: "school-1", Role: models.RoleAdmin})
	})
	router.Use(RBAC(models.RoleAdmin))
	router.GET("/", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusNoContent {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}

func TestRBACRejectsOtherRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(ContextUserKey, &models.TenantClaims{UserID: "u1", SchoolID: "school-1", Role: models.RoleTeacher})
	})
	router.Use(RBAC(models.RoleAdmin))
	router.GET("/", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusForbidden {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}
