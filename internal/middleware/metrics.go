package middleware

import (
	"net/http"
	"time"

	"filmgen/internal/metrics"
)

// Metrics records request counts and latency by route pattern.
func Metrics(c *metrics.Collector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := newStatusWriter(w)
			next.ServeHTTP(rw, r)
			c.RecordHTTPRequest(r.Method, routePattern(r), rw.status, time.Since(start))
		})
	}
}
