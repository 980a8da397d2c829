// Package api — configuration inspection endpoints.
package api

import (
	"net/http"

	"github.com/trendlens/trendlens/internal/config"
)

// ConfigView is the sanitized configuration returned by GET
// /api/v1/config. Credentials never leave the process; the keys
// endpoint reports their presence with masked values instead.
type ConfigView struct {
	LLM struct {
		Primary string `json:"primary"`
		Model   string `json:"model"`
	} `json:"llm"`
	Ads struct {
		Provider   string `json:"provider"`
		CustomerID string `json:"customer_id,omitempty"`
	} `json:"ads"`
	Alerts   config.AlertsConfig   `json:"alerts"`
	Scraper  config.ScraperConfig  `json:"scraper"`
	Pipeline config.PipelineConfig `json:"pipeline"`
	API      config.APIConfig      `json:"api"`
}

// handleGetConfig returns the current (running) configuration with
// credentials stripped.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	var view ConfigView
	view.LLM.Primary = s.cfg.LLM.Primary
	view.LLM.Model = s.cfg.LLM.Model
	view.Ads.Provider = s.cfg.Ads.Provider
	view.Ads.CustomerID = s.cfg.Ads.CustomerID
	view.Alerts = s.cfg.Alerts
	view.Scraper = s.cfg.Scraper
	view.Pipeline = s.cfg.Pipeline
	view.API = s.cfg.API

	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: view})
}

// handleGetConfigKeys returns the status of all sensitive credentials.
func (s *Server) handleGetConfigKeys(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    config.CheckAPIKeys(s.cfg),
	})
}
