package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/lecturehub/lecturehub-api/internal/models"
)

func rbacRouter(claims *models.JWTClaims, allowed ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if claims != nil {
			c.Set(ContextUserKey, claims)
		}
		c.Next()
	})
	router.GET("/resource/:id", RBAC(allowed...), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return router
}

func TestRBACAllowsMatchingRole(t *testing.T) {
	router := rbacRouter(&models.JWTClaims{UserID: "u1", Role: models.RoleAdmin}, string(models.RoleAdmin))

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/resource/x", nil))

	if recorder.Code != http.StatusNoContent {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}

func TestRBACDeniesOtherRoles(t *testing.T) {
	router := rbacRouter(&models.JWTClaims{UserID: "u1", Role: models.RoleStudent}, string(models.RoleAdmin))

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/resource/x", nil))

	if recorder.Code != http.StatusForbidden {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}

func TestRBACSelfMatchesPathParam(t *testing.T) {
	router := rbacRouter(&models.JWTClaims{UserID: "u1", Role: models.RoleStudent}, string(models.RoleAdmin), "SELF")

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/resource/u1", nil))
	if recorder.Code != http.StatusNoContent {
		t.Fatalf("expected self access, got status %d", recorder.Code)
	}

	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/resource/u2", nil))
	if recorder.Code != http.StatusForbidden {
		t.Fatalf("expected denial for foreign id, got status %d", recorder.Code)
	}
}

func TestRBACRequiresClaims(t *testing.T) {
	router := rbacRouter(nil, string(models.RoleAdmin))

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/resource/x", nil))

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}
