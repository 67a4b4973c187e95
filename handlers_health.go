package main

import (
	"net/http"
)

// handleHealth reports liveness and whether the store is reachable.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := s.store.Ping(r.Context()); err != nil {
		s.logger.Warn("Health check found store unreachable", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"}, s.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"}, s.logger)
}
