package api

import (
	"net/http"

	"github.com/gak/gochartapi/internal/config"
)

// ConfigResponse is the JSON envelope returned by GET /api/v1/config.
type ConfigResponse struct {
	Settings []config.Setting `json:"settings"`
}

// handleGetConfig returns the running configuration with the source of
// each value. Proxy credentials are masked.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    ConfigResponse{Settings: config.Describe(s.cfg)},
	})
}
