package telemetry

import (
	"net/http"
	"time"
)

// Middleware observes every request passing through the wrapped handler and
// submits a telemetry event for it. Intended for clients constructed with
// WithBootstrap, so the first observed request kicks off initialization
// without host involvement; delivery outcomes are reported through the
// client's diagnostics sink only.
func Middleware(c *Client) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			if c == nil {
				return
			}
			c.Submit(Event{
				StartTime: start.UnixMilli(),
				Path:      r.URL.Path,
				Duration:  float64(time.Since(start)) / float64(time.Millisecond),
				Method:    r.Method,
			})
		})
	}
}
