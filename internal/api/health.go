package api

import (
	"context"
	"net/http"
	"time"
)

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	database := "connected"
	if err := s.deps.Posts.Ping(ctx); err != nil {
		s.logger.WarnContext(r.Context(), "database ping failed", "error", err)
		database = "unavailable"
	}

	events := "disabled"
	if s.deps.Events != nil {
		events = "disconnected"
		if s.deps.Events.Connected() {
			events = "connected"
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "OK",
		"timestamp": s.now().UTC().Format(time.RFC3339Nano),
		"services": map[string]string{
			"database": database,
			"gemini":   "connected",
			"events":   events,
		},
	})
}
