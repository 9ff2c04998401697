package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"podread/internal/metrics"
)

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-Id"

type statusWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.size += n
	return n, err
}

// withRequestID keeps an incoming request id or assigns a new one and echoes
// it on the response.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(RequestIDHeader))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
			r.Header.Set(RequestIDHeader, id)
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

// logRequests attaches a request-scoped logger to the context, then logs and
// counts every request once it completes.
func logRequests(next http.Handler, logger zerolog.Logger, m *metrics.Metrics) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqLogger := logger.With().Str("request_id", r.Header.Get(RequestIDHeader)).Logger()
		r = r.WithContext(reqLogger.WithContext(r.Context()))

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(sw, r)
		duration := time.Since(start)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		m.ObserveRequest(r.Method, route, sw.status, duration)

		reqLogger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", sw.status).
			Int("bytes", sw.size).
			Dur("duration", duration).
			Msg("request")
	})
}
