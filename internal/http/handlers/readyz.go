package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/passbridge/internal/cache"
	httpx "github.com/dropDatabas3/passbridge/internal/http"
)

// Pinger es cualquier backend adicional que el readyz deba sondear
// (ej: el pool de Postgres del directorio).
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadyzHandler sondea el cache compartido (y backends opcionales).
type ReadyzHandler struct {
	Cache  cache.Client
	Extras []Pinger
}

func (h *ReadyzHandler) Register(r chi.Router) {
	r.Get("/readyz", h.readyz)
}

func (h *ReadyzHandler) readyz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.Cache.Ping(ctx); err != nil {
		httpx.WriteJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "degraded", "cache": "down"})
		return
	}
	for _, p := range h.Extras {
		if err := p.Ping(ctx); err != nil {
			httpx.WriteJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "degraded"})
			return
		}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}
