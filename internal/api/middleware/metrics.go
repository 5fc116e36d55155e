package middleware

import (
	"net/http"
	"sync/atomic"
)

// Metrics holds the request counters reported by /metrics.
type Metrics struct {
	Requests atomic.Int64
	Errors   atomic.Int64
	InFlight atomic.Int64
}

// Middleware counts requests, 4xx/5xx responses and in-flight requests.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.Requests.Add(1)
		m.InFlight.Add(1)
		defer m.InFlight.Add(-1)

		rw := newResponseWriter(w)
		next.ServeHTTP(rw, r)

		if rw.statusCode >= 400 {
			m.Errors.Add(1)
		}
	})
}
