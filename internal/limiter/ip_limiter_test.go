package limiter

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

func testLogger() *zerolog.Logger {
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	return &logger
}

func TestGetLimiterReusesPerIP(t *testing.T) {
	l := NewIPRateLimiter(1, 1, testLogger())

	a := l.GetLimiter("10.0.0.1")
	b := l.GetLimiter("10.0.0.1")
	if a != b {
		t.Error("expected the same limiter for repeated lookups of one IP")
	}
	if other := l.GetLimiter("10.0.0.2"); other == a {
		t.Error("expected distinct limiters for distinct IPs")
	}
}

func TestMiddlewareRejectsOverBurst(t *testing.T) {
	gin.SetMode(gin.TestMode)

	l := NewIPRateLimiter(rate.Limit(0.001), 2, testLogger())
	engine := gin.New()
	engine.Use(l.Middleware())
	engine.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	do := func() int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.9:1234"
		engine.ServeHTTP(w, req)
		return w.Code
	}

	if code := do(); code != http.StatusOK {
		t.Fatalf("first request: expected 200, got %d", code)
	}
	if code := do(); code != http.StatusOK {
		t.Fatalf("second request: expected 200, got %d", code)
	}
	if code := do(); code != http.StatusTooManyRequests {
		t.Errorf("over burst: expected 429, got %d", code)
	}
}
