package api

import (
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/custodia-labs/curator/internal/core/services"
	"github.com/custodia-labs/curator/internal/logger"
)

// clientIDHeader identifies the calling client for rate limiting.
// Anonymous callers fall back to their remote address.
const clientIDHeader = "X-Client-ID"

// rateLimitMiddleware enforces the per-client request budget.
func rateLimitMiddleware(limiter *services.RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			clientID := r.Header.Get(clientIDHeader)
			if clientID == "" {
				host, _, err := net.SplitHostPort(r.RemoteAddr)
				if err != nil {
					host = r.RemoteAddr
				}
				clientID = host
			}

			if err := limiter.Allow(clientID); err != nil {
				jsonError(w, "rate limit exceeded, retry later", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requestLogger logs incoming requests at debug level.
func requestLogger() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			logger.Debug("%s %s -> %d (%dms)",
				r.Method, r.URL.Path, sw.status, time.Since(start).Milliseconds())
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// jsonError writes an error response body.
func jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message}) //nolint:errcheck
}

// writeJSON writes a success response body.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload) //nolint:errcheck
}
