package gateway

import (
	"encoding/json"
	"net/http"
	"time"
)

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
}

// handleHealth returns an http.HandlerFunc for GET /health.
func (g *Gateway) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := HealthResponse{Status: "ok"}
		if g.router != nil {
			resp.Sessions = g.router.Cache().Len()
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// StatusResponse is the JSON response for GET /status.
type StatusResponse struct {
	UptimeSeconds int64 `json:"uptime_seconds"`
	Sessions      int   `json:"sessions"`
}

// handleStatus returns an http.HandlerFunc for GET /status.
func (g *Gateway) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := StatusResponse{
			UptimeSeconds: int64(time.Since(g.startedAt) / time.Second),
		}
		if g.router != nil {
			resp.Sessions = g.router.Cache().Len()
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}
