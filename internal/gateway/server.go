package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// buildRouter constructs the chi mux with all routes wired.
func (g *Gateway) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Public, no auth required.
	r.Get("/health", g.handleHealth())
	r.Handle("/metrics", promhttp.Handler())

	// Chat surfaces.
	r.Post("/v1/chat", g.httpCh.handleChat)
	r.Get("/v1/ws", g.wsCh.handleWS)

	// Admin endpoints require auth and are not mounted when no
	// auth is configured.
	if g.config.Auth.IsConfigured() {
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware(g.config.Auth))
			r.Get("/status", g.handleStatus())
			r.Route("/api", func(r chi.Router) {
				r.Get("/sessions", g.handleListSessions())
				r.Delete("/sessions/{channel}/{chat}", g.handleDeleteSession())
			})
		})
	}

	return r
}
