package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/josh-kwaku/bank-ledger/internal/logging"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Logging attaches a request-scoped logger to the context and logs each
// completed request. Successful probes are logged at debug.
func Logging(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			logger := base.With("request_id", RequestIDFromContext(r.Context()))
			r = r.WithContext(logging.WithLogger(r.Context(), logger))

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			level := slog.LevelInfo
			if rec.status < http.StatusBadRequest && r.URL.Path == "/health" {
				level = slog.LevelDebug
			}
			logger.Log(r.Context(), level, "request completed",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}
