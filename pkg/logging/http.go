package logging

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/trace"
)

// traceAttrs returns the trace_id and span_id of the span in ctx, empty when there is none
func traceAttrs(ctx context.Context) []slog.Attr {
	var traceID, spanID string
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		traceID, spanID = sc.TraceID().String(), sc.SpanID().String()
	}
	return []slog.Attr{slog.String("trace_id", traceID), slog.String("span_id", spanID)}
}

// HTTPLoggingMiddleware logs one http_request line per request.
// It must run inside the tracing middleware for trace ids to be logged.
func HTTPLoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			attrs := append([]slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("query", r.URL.RawQuery),
				slog.Int("status", status),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
				slog.String("remote_addr", r.RemoteAddr),
				slog.String("user_agent", r.UserAgent()),
				slog.String("protocol", r.Proto),
			}, traceAttrs(r.Context())...)
			logger.LogAttrs(r.Context(), slog.LevelInfo, "http_request", attrs...)
		})
	}
}

// HTTPErrorLogger logs a failed request; 5xx at error level, the rest at warn
func HTTPErrorLogger(logger *slog.Logger, statusCode int, err error, r *http.Request) {
	level := slog.LevelWarn
	if statusCode >= http.StatusInternalServerError {
		level = slog.LevelError
	}

	attrs := append([]slog.Attr{
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Int("status", statusCode),
		slog.String("error", err.Error()),
		slog.String("remote_addr", r.RemoteAddr),
	}, traceAttrs(r.Context())...)
	logger.LogAttrs(r.Context(), level, "http_error", attrs...)
}

// NewLogger builds the process logger: JSON to stdout at the given level
// ("debug", "info", "warn" or "error"; anything else means info)
func NewLogger(level string) *slog.Logger {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		l = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{Level: l}))
}
