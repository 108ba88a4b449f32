package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestMiddleware_PropagatesRequestLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	base := New("production")

	r := gin.New()
	r.Use(Middleware(base))
	r.GET("/x", func(c *gin.Context) {
		if FromGin(c) == base {
			t.Errorf("expected request-scoped logger in gin context")
		}
		if From(c.Request.Context()) != FromGin(c) {
			t.Errorf("expected request context to carry the same logger")
		}
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-Id", "rid-1")
	r.ServeHTTP(w, req)

	if w.Header().Get("X-Request-Id") != "rid-1" {
		t.Fatalf("expected request id echoed, got %q", w.Header().Get("X-Request-Id"))
	}
}
