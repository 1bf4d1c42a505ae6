package bridge

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hazyhaar/treebridge/idgen"
)

type contextKey string

const loggerKey contextKey = "bridge_logger"

// maxBody limits request bodies to maxBytes.
func maxBody(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

// traceID tags each request with a trace id, echoed in X-Trace-ID, and
// stores a per-request logger in the context.
func traceID(base *slog.Logger, gen idgen.Generator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := gen()
			w.Header().Set("X-Trace-ID", id)
			logger := base.With(
				"trace_id", id,
				"method", r.Method,
				"path", r.URL.Path,
			)
			logger.Debug("request")
			ctx := context.WithValue(r.Context(), loggerKey, logger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func requestLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}
