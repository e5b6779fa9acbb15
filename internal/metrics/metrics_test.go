package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestGinMiddlewareRecordsRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := NewRegistry()
	r := gin.New()
	r.Use(reg.GinMiddleware())
	r.GET("/api/v1/tickets/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/tickets/ABC-DEF-GHJK", nil))

	got := testutil.ToFloat64(reg.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/api/v1/tickets/:id", "200"))
	if got != 1 {
		t.Fatalf("expected one request on templated route, got %v", got)
	}
}

func TestObserveNotificationResults(t *testing.T) {
	reg := NewRegistry()
	reg.ObserveNotification("email", nil)
	reg.ObserveNotification("email", errors.New("smtp down"))
	reg.ObserveNotification("email", errors.New("smtp down"))

	if got := testutil.ToFloat64(reg.NotificationsSent.WithLabelValues("email", ResultSuccess)); got != 1 {
		t.Fatalf("success count: want 1 got %v", got)
	}
	if got := testutil.ToFloat64(reg.NotificationsSent.WithLabelValues("email", ResultFailure)); got != 2 {
		t.Fatalf("failure count: want 2 got %v", got)
	}
}

func TestNilRegistryIsSafe(t *testing.T) {
	var reg *Registry
	reg.ObserveNotification("sms", nil)
	reg.ObserveCompletion("gemini", nil)
	reg.ObserveTicketTransition("close", "closed")
}

func TestHandlerExposesMetrics(t *testing.T) {
	reg := NewRegistry()
	reg.ObserveCompletion("openai", nil)

	w := httptest.NewRecorder()
	reg.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "ai_completions_total") {
		t.Fatalf("metrics output missing ai_completions_total")
	}
}
