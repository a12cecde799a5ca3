package cors

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func perform(t *testing.T, allowed []string, method, origin string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(New(allowed))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(method, "/ping", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAllowsExactOrigin(t *testing.T) {
	w := perform(t, []string{"https://admin.example.org"}, http.MethodGet, "https://admin.example.org")
	assert.Equal(t, "https://admin.example.org", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestAllowsWildcardSubdomain(t *testing.T) {
	w := perform(t, []string{"*.example.org"}, http.MethodGet, "https://pos.example.org")
	assert.Equal(t, "https://pos.example.org", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRejectsUnknownOrigin(t *testing.T) {
	w := perform(t, []string{"https://admin.example.org"}, http.MethodGet, "https://evil.example.com")
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestExposesDownloadHeaders(t *testing.T) {
	w := perform(t, nil, http.MethodGet, "https://anywhere.test")
	assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), "Content-Disposition")
}

func TestPreflightShortCircuits(t *testing.T) {
	w := perform(t, nil, http.MethodOptions, "https://anywhere.test")
	assert.Equal(t, http.StatusNoContent, w.Code)
}
