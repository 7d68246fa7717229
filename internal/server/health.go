package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// readyTimeout bounds the backend ping behind /readyz.
const readyTimeout = 3 * time.Second

var plainCT = []string{"text/plain"}

// handleHealthz reports process liveness only.
func (s *server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header()["Content-Type"] = plainCT
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

type readiness struct {
	Status  string `json:"status"`
	Backend string `json:"backend"`
}

// handleReadyz pings the backend. A failed or slow ping yields 503; cached
// reads may still succeed, but writes would not.
func (s *server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if s.deps.ReadyCheck == nil {
		writeJSON(w, http.StatusOK, readiness{Status: "ready", Backend: "unchecked"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()
	if err := s.deps.ReadyCheck(ctx); err != nil {
		slog.LogAttrs(r.Context(), slog.LevelWarn, "readiness check failed",
			slog.String("error", err.Error()),
		)
		writeJSON(w, http.StatusServiceUnavailable, readiness{Status: "not ready", Backend: "unreachable"})
		return
	}
	writeJSON(w, http.StatusOK, readiness{Status: "ready", Backend: "ok"})
}
