package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linemk/totembo-store/internal/domain/models"
	"github.com/linemk/totembo-store/internal/lib/metrics"
)

func scrape(t *testing.T, m *metrics.ServerMetrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err)
	return string(body)
}

func TestMiddleware_CountsByRoutePattern(t *testing.T) {
	m := metrics.NewServerMetrics()

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/products/{slug}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, slug := range []string{"tote", "clutch"} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/products/"+slug, nil))
		assert.Equal(t, http.StatusNotFound, rr.Code)
	}

	out := scrape(t, m)
	assert.Contains(t, out, `totembo_http_requests_total{route="/api/products/{slug}",status="404"} 2`)
	assert.Contains(t, out, `totembo_http_request_duration_ms_count{route="/api/products/{slug}"} 2`)
}

func TestObserveTransition(t *testing.T) {
	m := metrics.NewServerMetrics()

	m.ObserveTransition(models.OrderStatusOpen, models.OrderStatusPendingPayment)
	m.ObserveTransition(models.OrderStatusPendingPayment, models.OrderStatusCompleted)
	m.ObserveTransition(models.OrderStatusOpen, models.OrderStatusPendingPayment)

	out := scrape(t, m)
	assert.Contains(t, out, `totembo_checkout_transitions_total{from="open",to="pending_payment"} 2`)
	assert.Contains(t, out, `totembo_checkout_transitions_total{from="pending_payment",to="completed"} 1`)
}

func TestNewServerMetrics_Independent(t *testing.T) {
	assert.NotPanics(t, func() {
		metrics.NewServerMetrics()
		metrics.NewServerMetrics()
	})
}
