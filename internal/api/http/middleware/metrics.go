package middleware

import (
	"net/http"
	"time"

	"github.com/Crush-on-Study/Black-Market/internal/metrics"
)

// Metrics records Prometheus request metrics.
type Metrics struct {
	metrics *metrics.Metrics
}

// NewMetrics creates a new Metrics middleware.
func NewMetrics(m *metrics.Metrics) *Metrics {
	return &Metrics{metrics: m}
}

// Handle records in-flight, count and latency per route.
func (m *Metrics) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		m.metrics.IncInFlight()
		defer m.metrics.DecInFlight()

		rec := newStatusRecorder(w)
		next.ServeHTTP(rec, r)

		m.metrics.RecordHTTPRequest(r.Method, routePath(r), rec.status, time.Since(start))
	})
}
