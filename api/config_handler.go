package api

import (
	"net/http"

	"github.com/seenimoa/tickerproxy/internal/config"
)

// ConfigResponse is the JSON envelope returned by GET /config.
type ConfigResponse struct {
	Config config.Config      `json:"config"`
	Keys   []config.KeyStatus `json:"keys"`
}

// handleGetConfig returns the running configuration with API keys masked.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, ConfigResponse{
		Config: s.cfg.Redacted(),
		Keys:   config.CheckAPIKeys(s.cfg),
	})
}
