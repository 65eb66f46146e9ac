package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/mauzenfan/mauzenfan/internal/metrics"
)

// Metrics records request counts and latencies in Prometheus.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		path := r.URL.Path
		metrics.RequestCount.WithLabelValues(path, r.Method, strconv.Itoa(rec.status)).Inc()
		metrics.RequestDuration.WithLabelValues(path, r.Method).Observe(time.Since(start).Seconds())
	})
}
