package requestid

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func perform(t *testing.T, clientID string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, Value(c)) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	if clientID != "" {
		req.Header.Set("X-Request-ID", clientID)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestKeepsWellFormedClientID(t *testing.T) {
	w := perform(t, "trace-abc-123")
	assert.Equal(t, "trace-abc-123", w.Header().Get("X-Request-ID"))
	assert.Equal(t, "trace-abc-123", w.Body.String())
}

func TestReplacesHostileClientID(t *testing.T) {
	w := perform(t, "bad\nid")
	got := w.Header().Get("X-Request-ID")
	require.NotEmpty(t, got)
	assert.NotContains(t, got, "\n")
	assert.NotEqual(t, "bad\nid", got)
}

func TestGeneratesIDWhenMissing(t *testing.T) {
	w := perform(t, "")
	assert.Len(t, w.Header().Get("X-Request-ID"), 32)
}
