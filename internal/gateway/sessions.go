package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/foundryhq/foundry/internal/convo"
)

// sessionEntry is one row in the GET /api/sessions listing.
type sessionEntry struct {
	Channel  string `json:"channel"`
	ChatID   string `json:"chat_id"`
	ThreadID string `json:"thread_id,omitempty"`
}

// handleListSessions returns the cached conversation keys.
func (g *Gateway) handleListSessions() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		var entries []sessionEntry
		if g.router != nil {
			for _, k := range g.router.Cache().Keys() {
				entries = append(entries, sessionEntry{
					Channel:  k.Channel,
					ChatID:   k.ChatID,
					ThreadID: k.ThreadID,
				})
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"sessions": entries})
	}
}

// handleDeleteSession drops one conversation from cache and store.
func (g *Gateway) handleDeleteSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if g.router == nil {
			http.Error(w, "router unavailable", http.StatusServiceUnavailable)
			return
		}
		key := convo.Key{
			Channel:  chi.URLParam(r, "channel"),
			ChatID:   chi.URLParam(r, "chat"),
			ThreadID: r.URL.Query().Get("thread_id"),
		}
		if err := g.router.Cache().Drop(r.Context(), key); err != nil {
			http.Error(w, "delete failed", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
