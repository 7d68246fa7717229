package server

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	erp "github.com/eugener/silverbook/internal"
)

var statusWriterPool = sync.Pool{
	New: func() any { return &statusWriter{} },
}

// serveCaptured runs next with a pooled writer and returns the status it
// wrote.
func serveCaptured(next http.Handler, w http.ResponseWriter, r *http.Request) int {
	sw := statusWriterPool.Get().(*statusWriter)
	*sw = statusWriter{ResponseWriter: w, status: http.StatusOK}
	defer func() {
		sw.ResponseWriter = nil
		statusWriterPool.Put(sw)
	}()
	next.ServeHTTP(sw, r)
	return sw.status
}

// recovery turns a handler panic into a 500 with the standard error body.
func (s *server) recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				slog.LogAttrs(r.Context(), slog.LevelError, "panic recovered",
					slog.Any("error", rec),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("request_id", erp.RequestIDFromContext(r.Context())),
				)
				writeJSON(w, http.StatusInternalServerError, errorResponse("internal error", "api_error"))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// Canonical form, so direct header map access skips canonicalization.
const requestIDHeader = "X-Request-Id"

const maxRequestIDLen = 128

// requestID tags the request with the caller's X-Request-Id, or a fresh
// UUID v7 when it is missing or oversized, and echoes it on the response.
func (s *server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ""
		if vals := r.Header[requestIDHeader]; len(vals) > 0 && len(vals[0]) <= maxRequestIDLen {
			id = vals[0]
		}
		if id == "" {
			id = uuid.Must(uuid.NewV7()).String()
		}
		w.Header()[requestIDHeader] = []string{id}
		next.ServeHTTP(w, r.WithContext(erp.ContextWithRequestID(r.Context(), id)))
	})
}

// logging writes one line per request. Probe endpoints log at debug so
// orchestrator polling does not drown the API traffic.
func (s *server) logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		status := serveCaptured(next, w, r)

		slog.LogAttrs(r.Context(), requestLevel(r.URL.Path, status), "request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
			slog.String("request_id", erp.RequestIDFromContext(r.Context())),
		)
	})
}

func requestLevel(path string, status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	case path == "/healthz" || path == "/readyz":
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// statusWriter records the first status code written through it.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (sw *statusWriter) WriteHeader(code int) {
	if !sw.wroteHeader {
		sw.status = code
		sw.wroteHeader = true
	}
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	sw.wroteHeader = true
	return sw.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (sw *statusWriter) Unwrap() http.ResponseWriter {
	return sw.ResponseWriter
}
