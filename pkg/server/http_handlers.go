package server

import (
	"encoding/json"
	"net/http"
	"time"
)

// HealthHandler serves health check status.
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":             "healthy",
		"uptime_seconds":     int64(time.Since(s.startTime).Seconds()),
		"active_connections": s.ActiveSessionCount(),
		"known_users":        len(s.registry.KnownUserIDs()),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(health); err != nil {
		s.log.Error().Err(err).Msg("error encoding health JSON")
	}
}
