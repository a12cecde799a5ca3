package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/custodia-systems/welfare-canteen-api/internal/models"
)

func performWithClaims(t *testing.T, claims *models.JWTClaims, path string, handler gin.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/resource/:id", func(c *gin.Context) {
		if claims != nil {
			c.Set(ContextUserKey, claims)
		}
		c.Next()
	}, handler, func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	router.ServeHTTP(rec, req)
	return rec
}

func TestRBACAllowsListedRole(t *testing.T) {
	claims := &models.JWTClaims{UserID: "u1", Role: models.RolePOS}
	rec := performWithClaims(t, claims, "/resource/x", RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RolePOS))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRBACRejectsUnlistedRole(t *testing.T) {
	claims := &models.JWTClaims{UserID: "u1", Role: models.RoleInmate}
	rec := performWithClaims(t, claims, "/resource/x", RequireRoles(models.RoleSuperAdmin, models.RoleAdmin))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRBACAllowsSelf(t *testing.T) {
	claims := &models.JWTClaims{UserID: "u1", Role: models.RoleInmate}
	rec := performWithClaims(t, claims, "/resource/u1", RBAC("SUPER ADMIN", "SELF"))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = performWithClaims(t, claims, "/resource/u2", RBAC("SUPER ADMIN", "SELF"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestInmateSelfBindsToOwnRecord(t *testing.T) {
	claims := &models.JWTClaims{UserID: "u1", Role: models.RoleInmate, InmateID: "INM-001"}

	rec := performWithClaims(t, claims, "/resource/INM-001", InmateSelf("id"))
	assert.Equal(t, http.StatusOK, rec.Code)

	// business keys match case-insensitively everywhere else too
	rec = performWithClaims(t, claims, "/resource/inm-001", InmateSelf("id"))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = performWithClaims(t, claims, "/resource/INM-OTHER", InmateSelf("id"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestInmateSelfRejectsUnlinkedInmateAccount(t *testing.T) {
	claims := &models.JWTClaims{UserID: "u1", Role: models.RoleInmate}
	rec := performWithClaims(t, claims, "/resource/INM-001", InmateSelf("id"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestInmateSelfPassesStaffThrough(t *testing.T) {
	claims := &models.JWTClaims{UserID: "u1", Role: models.RoleAdmin}
	rec := performWithClaims(t, claims, "/resource/INM-OTHER", InmateSelf("id"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRBACRejectsMissingClaims(t *testing.T) {
	rec := performWithClaims(t, nil, "/resource/x", RequireRoles(models.RoleAdmin))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
